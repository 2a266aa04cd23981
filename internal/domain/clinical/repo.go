package clinical

import (
	"context"

	"github.com/google/uuid"
)

// PatientRepository is the storage contract for patient records.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	UpdateLastScanDate(ctx context.Context, id uuid.UUID, date string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRadiologist(ctx context.Context, radiologistID uuid.UUID, limit, offset int) ([]*Patient, int, error)
}

// CaseRepository is the storage contract for treatment cases.
type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	Update(ctx context.Context, c *Case) error
	// UpdateDiagnosis sets the diagnosis only when it is currently empty,
	// keeping the sticky-write atomic at the store.
	UpdateDiagnosis(ctx context.Context, id uuid.UUID, diagnosis string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Case, error)
}

// ScanRepository is the storage contract for MRI scans.
type ScanRepository interface {
	Create(ctx context.Context, s *Scan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Scan, error)
	UpdateMaskPath(ctx context.Context, id uuid.UUID, maskPath string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByCase returns scans ordered by ascending upload date, so the
	// first element is the case's earliest scan.
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Scan, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Scan, error)
}
