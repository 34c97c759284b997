package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/boldreach/logistics-backend/pkg/config"
	"github.com/boldreach/logistics-backend/pkg/db"
	"github.com/boldreach/logistics-backend/pkg/db/models"
	"github.com/boldreach/logistics-backend/pkg/enums"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/boldreach/logistics-backend/pkg/logger"
	"github.com/boldreach/logistics-backend/pkg/mailer"
	pkgpagination "github.com/boldreach/logistics-backend/pkg/pagination"
	"github.com/boldreach/logistics-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const tempPasswordLen = 12

type usersRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListPage(ctx context.Context, limit, offset int) ([]models.User, error)
	CountAll(ctx context.Context) (int64, error)
	ShipmentCounts(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error
}

// UserWithStats is one row of the staff user list.
type UserWithStats struct {
	User          models.User `json:"user"`
	ShipmentCount int64       `json:"shipment_count"`
}

// ListResult pairs one page of users with pagination metadata.
type ListResult struct {
	Users []UserWithStats    `json:"users"`
	Meta  pkgpagination.Meta `json:"meta"`
}

// ProvisionInput holds the fields a super admin supplies to create an account.
type ProvisionInput struct {
	Email    string
	FullName string
	Role     enums.UserRole
	Location *string
}

// Service exposes the staff-facing user management operations.
type Service interface {
	List(ctx context.Context, params pkgpagination.Params) (*ListResult, error)
	SetRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (*models.User, error)
	Provision(ctx context.Context, input ProvisionInput) (*models.User, error)
}

type service struct {
	repo        usersRepository
	mail        mailer.Mailer
	logg        *logger.Logger
	passwordCfg config.PasswordConfig
}

// NewService builds a user management service.
func NewService(repo usersRepository, mail mailer.Mailer, logg *logger.Logger, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, mail: mail, logg: logg, passwordCfg: passwordCfg}, nil
}

// List returns a page of users with their shipment totals resolved in a single
// grouped query rather than one count per row.
func (s *service) List(ctx context.Context, params pkgpagination.Params) (*ListResult, error) {
	page := params.Normalize()

	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
	}

	rows, err := s.repo.ListPage(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, user := range rows {
		ids = append(ids, user.ID)
	}
	counts, err := s.repo.ShipmentCounts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count shipments")
	}

	result := make([]UserWithStats, 0, len(rows))
	for _, user := range rows {
		user.PasswordHash = ""
		result = append(result, UserWithStats{User: user, ShipmentCount: counts[user.ID]})
	}

	return &ListResult{
		Users: result,
		Meta:  pkgpagination.NewMeta(page, total),
	}, nil
}

// SetRole changes an account's role. Only user and admin are assignable;
// super_admin cannot be minted over the API.
func (s *service) SetRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if role != enums.UserRoleUser && role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be user or admin")
	}

	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}
	user.PasswordHash = ""
	return user, nil
}

// Provision creates an account with a temporary password and emails the
// credentials. Delivery failure is logged but does not undo the account.
func (s *service) Provision(ctx context.Context, input ProvisionInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	role := input.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	if role != enums.UserRoleUser && role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be user or admin")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLen)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
		Location:     input.Location,
		IsActive:     true,
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	if err := s.mail.SendTempPassword(ctx, email, fullName, tempPassword); err != nil {
		logCtx := s.logg.WithUserID(ctx, created.ID.String())
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "user.provision.email_failed")
	}

	sanitized := *created
	sanitized.PasswordHash = ""
	return &sanitized, nil
}
