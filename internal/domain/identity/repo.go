package identity

import (
	"context"

	"github.com/google/uuid"
)

// RadiologistRepository is the storage contract for radiologist records.
type RadiologistRepository interface {
	Create(ctx context.Context, r *Radiologist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Radiologist, error)
	GetByEmail(ctx context.Context, email string) (*Radiologist, error)
	Update(ctx context.Context, r *Radiologist) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Radiologist, int, error)
}
