package locations

import (
	"context"
	"fmt"
	"strings"

	"github.com/boldreach/logistics-backend/pkg/db/models"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxLocationNameLen = 200

type locationsRepository interface {
	ListActive(ctx context.Context) ([]models.Location, error)
	ListAll(ctx context.Context) ([]models.Location, error)
	FindByName(ctx context.Context, name string) (*models.Location, error)
	Create(ctx context.Context, location *models.Location) (*models.Location, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Service exposes the database-backed location catalogue. Historical shipments
// keep referencing deactivated names, so deletion is always a soft flip.
type Service interface {
	ListActive(ctx context.Context) ([]models.Location, error)
	ListAll(ctx context.Context) ([]models.Location, error)
	Upsert(ctx context.Context, name string) (*models.Location, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo locationsRepository
}

// NewService builds a location service backed by the provided repository.
func NewService(repo locationsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("location repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.Location, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list locations")
	}
	return rows, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.Location, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list locations")
	}
	return rows, nil
}

// Upsert creates a location or reactivates an existing one with the same name.
func (s *service) Upsert(ctx context.Context, name string) (*models.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location name is required")
	}
	if len(name) > maxLocationNameLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location name too long").WithDetails(map[string]any{"max": maxLocationNameLen})
	}

	existing, err := s.repo.FindByName(ctx, name)
	switch {
	case err == nil:
		if !existing.IsActive {
			if err := s.repo.SetActive(ctx, existing.ID, true); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reactivate location")
			}
			existing.IsActive = true
		}
		return existing, nil
	case err == gorm.ErrRecordNotFound:
		created, err := s.repo.Create(ctx, &models.Location{Name: name, IsActive: true})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create location")
		}
		return created, nil
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find location")
	}
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "location not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate location")
	}
	return nil
}
