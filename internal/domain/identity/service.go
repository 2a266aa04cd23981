package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a referenced radiologist does not exist.
var ErrNotFound = errors.New("radiologist not found")

// ErrValidation is returned for missing or malformed required fields.
var ErrValidation = errors.New("validation failed")

type Service struct {
	radiologists RadiologistRepository
}

func NewService(radiologists RadiologistRepository) *Service {
	return &Service{radiologists: radiologists}
}

func (s *Service) Register(ctx context.Context, rad *Radiologist) error {
	if strings.TrimSpace(rad.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	if !strings.Contains(rad.Email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrValidation)
	}
	rad.Email = strings.ToLower(strings.TrimSpace(rad.Email))
	if rad.Status == "" {
		rad.Status = "Active"
	}
	return s.radiologists.Create(ctx, rad)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Radiologist, error) {
	rad, err := s.radiologists.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rad, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Radiologist, error) {
	rad, err := s.radiologists.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rad, nil
}

func (s *Service) UpdateProfile(ctx context.Context, rad *Radiologist) error {
	if strings.TrimSpace(rad.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	if _, err := s.Get(ctx, rad.ID); err != nil {
		return err
	}
	return s.radiologists.Update(ctx, rad)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.radiologists.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Radiologist, int, error) {
	return s.radiologists.List(ctx, limit, offset)
}
