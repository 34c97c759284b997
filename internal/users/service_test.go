package users

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/boldreach/logistics-backend/pkg/config"
	"github.com/boldreach/logistics-backend/pkg/db/models"
	"github.com/boldreach/logistics-backend/pkg/enums"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/boldreach/logistics-backend/pkg/logger"
	pkgpagination "github.com/boldreach/logistics-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	created       *models.User
	createErr     error
	found         *models.User
	findErr       error
	pageRows      []models.User
	total         int64
	counts        map[uuid.UUID]int64
	countsErr     error
	lastCountIDs  []uuid.UUID
	roleUpdates   map[uuid.UUID]enums.UserRole
	updateRoleErr error
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user.ID = uuid.New()
	s.created = user
	return user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.found, nil
}

func (s *stubUserRepo) ListPage(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.pageRows, nil
}

func (s *stubUserRepo) CountAll(ctx context.Context) (int64, error) {
	return s.total, nil
}

func (s *stubUserRepo) ShipmentCounts(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	s.lastCountIDs = userIDs
	if s.countsErr != nil {
		return nil, s.countsErr
	}
	return s.counts, nil
}

func (s *stubUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error {
	if s.updateRoleErr != nil {
		return s.updateRoleErr
	}
	if s.roleUpdates == nil {
		s.roleUpdates = map[uuid.UUID]enums.UserRole{}
	}
	s.roleUpdates[id] = role
	return nil
}

type stubMailer struct {
	sentTo   string
	sentTemp string
	err      error
}

func (s *stubMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	return s.err
}

func (s *stubMailer) SendTempPassword(ctx context.Context, to, fullName, tempPassword string) error {
	if s.err != nil {
		return s.err
	}
	s.sentTo = to
	s.sentTemp = tempPassword
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testPasswordCfg() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
}

func newTestService(t *testing.T, repo *stubUserRepo, mail *stubMailer) Service {
	t.Helper()
	svc, err := NewService(repo, mail, testLogger(), testPasswordCfg())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestListResolvesShipmentCountsInOneQuery(t *testing.T) {
	u1 := models.User{ID: uuid.New(), Email: "a@x.ng", PasswordHash: "secret"}
	u2 := models.User{ID: uuid.New(), Email: "b@x.ng", PasswordHash: "secret"}
	repo := &stubUserRepo{
		pageRows: []models.User{u1, u2},
		total:    2,
		counts:   map[uuid.UUID]int64{u1.ID: 7},
	}
	svc := newTestService(t, repo, &stubMailer{})

	result, err := svc.List(context.Background(), pkgpagination.Params{Page: 1, Limit: 25})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(repo.lastCountIDs) != 2 {
		t.Fatalf("expected one grouped count query over 2 ids, got %v", repo.lastCountIDs)
	}
	if result.Users[0].ShipmentCount != 7 || result.Users[1].ShipmentCount != 0 {
		t.Fatalf("unexpected counts: %+v", result.Users)
	}
	for _, row := range result.Users {
		if row.User.PasswordHash != "" {
			t.Fatal("password hash must not leak through the list")
		}
	}
	if result.Meta.Total != 2 {
		t.Fatalf("expected total 2, got %d", result.Meta.Total)
	}
}

func TestSetRoleAcceptsUserAndAdminOnly(t *testing.T) {
	target := &models.User{ID: uuid.New(), Role: enums.UserRoleAdmin}
	repo := &stubUserRepo{found: target}
	svc := newTestService(t, repo, &stubMailer{})

	if _, err := svc.SetRole(context.Background(), target.ID, enums.UserRoleAdmin); err != nil {
		t.Fatalf("SetRole(admin): %v", err)
	}
	if repo.roleUpdates[target.ID] != enums.UserRoleAdmin {
		t.Fatal("expected role update persisted")
	}

	for _, role := range []enums.UserRole{enums.UserRoleSuperAdmin, "owner", ""} {
		_, err := svc.SetRole(context.Background(), target.ID, role)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for role %q, got %v", role, err)
		}
	}
}

func TestSetRoleNotFound(t *testing.T) {
	repo := &stubUserRepo{updateRoleErr: gorm.ErrRecordNotFound}
	svc := newTestService(t, repo, &stubMailer{})

	_, err := svc.SetRole(context.Background(), uuid.New(), enums.UserRoleUser)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProvisionCreatesAccountAndEmailsTempPassword(t *testing.T) {
	repo := &stubUserRepo{}
	mail := &stubMailer{}
	svc := newTestService(t, repo, mail)

	created, err := svc.Provision(context.Background(), ProvisionInput{
		Email:    "  Staff@BoldReach.NG ",
		FullName: "Chika N.",
		Role:     enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if repo.created.Email != "staff@boldreach.ng" {
		t.Fatalf("expected normalized email, got %q", repo.created.Email)
	}
	if repo.created.PasswordHash == "" {
		t.Fatal("expected a password hash to be stored")
	}
	if mail.sentTo != "staff@boldreach.ng" || len(mail.sentTemp) != tempPasswordLen {
		t.Fatalf("expected temp password email, got to=%q temp=%q", mail.sentTo, mail.sentTemp)
	}
	if created.PasswordHash != "" {
		t.Fatal("hash must not be returned to the caller")
	}
}

func TestProvisionSucceedsWhenEmailFails(t *testing.T) {
	repo := &stubUserRepo{}
	svc := newTestService(t, repo, &stubMailer{err: errors.New("relay refused")})

	if _, err := svc.Provision(context.Background(), ProvisionInput{Email: "x@y.ng", FullName: "X"}); err != nil {
		t.Fatalf("expected provisioning to survive mail failure, got %v", err)
	}
	if repo.created == nil {
		t.Fatal("expected account created")
	}
}

func TestProvisionRejectsSuperAdminAndBadInput(t *testing.T) {
	svc := newTestService(t, &stubUserRepo{}, &stubMailer{})

	cases := map[string]ProvisionInput{
		"super admin role": {Email: "x@y.ng", FullName: "X", Role: enums.UserRoleSuperAdmin},
		"missing email":    {FullName: "X"},
		"bad email":        {Email: "not-an-email", FullName: "X"},
		"missing name":     {Email: "x@y.ng"},
	}
	for name, input := range cases {
		_, err := svc.Provision(context.Background(), input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %s, got %v", name, err)
		}
	}
}

func TestProvisionDuplicateEmailConflicts(t *testing.T) {
	repo := &stubUserRepo{createErr: errors.New(`duplicate key value violates unique constraint "users_email_key"`)}
	svc := newTestService(t, repo, &stubMailer{})

	_, err := svc.Provision(context.Background(), ProvisionInput{Email: "x@y.ng", FullName: "X"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
