package clinical

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/brainalyze/brainalyze/internal/platform/storage"
)

// defaultPhonePrefix is prepended to contact numbers supplied without a
// country code.
const defaultPhonePrefix = "+212"

type Service struct {
	patients  PatientRepository
	cases     CaseRepository
	scans     ScanRepository
	artifacts storage.ArtifactStore
	logger    zerolog.Logger
}

func NewService(
	patients PatientRepository,
	cases CaseRepository,
	scans ScanRepository,
	artifacts storage.ArtifactStore,
	logger zerolog.Logger,
) *Service {
	return &Service{
		patients:  patients,
		cases:     cases,
		scans:     scans,
		artifacts: artifacts,
		logger:    logger,
	}
}

// -- Patients --

func (s *Service) CreatePatient(ctx context.Context, ownerID uuid.UUID, p *Patient) error {
	if ownerID == uuid.Nil {
		return fmt.Errorf("%w: owning radiologist is required", ErrValidation)
	}
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	if p.Age <= 0 {
		return fmt.Errorf("%w: age is required", ErrValidation)
	}
	if strings.TrimSpace(p.Gender) == "" {
		return fmt.Errorf("%w: gender is required", ErrValidation)
	}

	if p.ContactNumber != nil {
		normalized := normalizePhone(*p.ContactNumber)
		p.ContactNumber = &normalized
	}

	p.CreatedBy = ownerID
	return s.patients.Create(ctx, p)
}

// normalizePhone strips separators and prefixes the default country code
// when the number carries none, dropping a leading trunk zero.
func normalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' || r == '+' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if normalized == "" || strings.HasPrefix(normalized, "+") {
		return normalized
	}
	return defaultPhonePrefix + strings.TrimPrefix(normalized, "0")
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	if _, err := s.GetPatient(ctx, p.ID); err != nil {
		return err
	}
	if p.ContactNumber != nil {
		normalized := normalizePhone(*p.ContactNumber)
		p.ContactNumber = &normalized
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, radiologistID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	return s.patients.ListByRadiologist(ctx, radiologistID, limit, offset)
}

// TouchLastScanDate refreshes the patient's denormalized last-scan cache.
func (s *Service) TouchLastScanDate(ctx context.Context, patientID uuid.UUID, date string) error {
	return s.patients.UpdateLastScanDate(ctx, patientID, date)
}

// -- Cases --

// StartCase opens a new Active case for the patient. Callers are responsible
// for attaching the founding scan in the same operation; a case is never
// started without one.
func (s *Service) StartCase(ctx context.Context, patientID uuid.UUID, treatmentPlan string) (*Case, error) {
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}

	c := &Case{
		PatientID:     patientID,
		TreatmentPlan: treatmentPlan,
		Status:        CaseStatusActive,
		StartDate:     time.Now().Format(DateLayout),
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("case %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateTreatmentPlan(ctx context.Context, caseID uuid.UUID, plan string) error {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	c.TreatmentPlan = plan
	return s.cases.Update(ctx, c)
}

// CloseCase sets the end date and moves the case out of Active. A non-empty
// end date always implies a non-Active status.
func (s *Service) CloseCase(ctx context.Context, caseID uuid.UUID, endDate string) error {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	if endDate == "" {
		endDate = time.Now().Format(DateLayout)
	}
	if _, err := time.Parse(DateLayout, endDate); err != nil {
		return fmt.Errorf("%w: end_date must be %s", ErrValidation, DateLayout)
	}
	c.EndDate = endDate
	c.Status = CaseStatusClosed
	return s.cases.Update(ctx, c)
}

// ListCasesForPatient returns the patient's cases sorted ascending by start
// date with 1-based display ranks assigned. An absent start date is the
// empty string and sorts first. The sort is stable, so ordering among cases
// sharing a start date follows retrieval order and may differ across reads.
func (s *Service) ListCasesForPatient(ctx context.Context, patientID uuid.UUID) ([]*CaseView, error) {
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}

	cases, err := s.cases.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].StartDate < cases[j].StartDate
	})

	views := make([]*CaseView, 0, len(cases))
	for i, c := range cases {
		scans, err := s.scans.ListByCase(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, &CaseView{
			Case:        *c,
			DisplayRank: i + 1,
			LastUpdate:  lastUpdate(c, scans),
			ScanCount:   len(scans),
		})
	}
	return views, nil
}

// lastUpdate picks the latest scan upload time, then the case's stored
// update timestamp, then the unknown sentinel.
func lastUpdate(c *Case, scans []*Scan) string {
	var latest time.Time
	for _, sc := range scans {
		if sc.UploadDate.After(latest) {
			latest = sc.UploadDate
		}
	}
	if !latest.IsZero() {
		return latest.Format(DateLayout)
	}
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt.Format(DateLayout)
	}
	return LastUpdateUnknown
}

// ResolveDiagnosis returns the case's diagnosis, deriving it from the
// earliest scan's classification when empty. The derived value is persisted,
// making the field sticky: later calls return the stored value and write
// nothing. With no scans it returns the pending sentinel without persisting.
func (s *Service) ResolveDiagnosis(ctx context.Context, caseID uuid.UUID) (string, error) {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return "", err
	}
	if c.Diagnosis != "" {
		return c.Diagnosis, nil
	}

	scans, err := s.scans.ListByCase(ctx, caseID)
	if err != nil {
		return "", err
	}
	if len(scans) == 0 || scans[0].Classification == "" {
		return DiagnosisPending, nil
	}

	diagnosis := scans[0].Classification
	if err := s.cases.UpdateDiagnosis(ctx, caseID, diagnosis); err != nil {
		return "", err
	}
	return diagnosis, nil
}

// -- Scans --

// AttachScan validates the scan's ownership references and persists it,
// refreshing the case row and the patient's last-scan cache.
func (s *Service) AttachScan(ctx context.Context, scan *Scan) error {
	if scan.ImagePath == "" {
		return fmt.Errorf("%w: image_path is required", ErrValidation)
	}
	c, err := s.GetCase(ctx, scan.CaseID)
	if err != nil {
		return err
	}
	if c.PatientID != scan.PatientID {
		return fmt.Errorf("case %s does not belong to patient %s: %w",
			scan.CaseID, scan.PatientID, ErrUnauthorized)
	}

	if scan.UploadDate.IsZero() {
		scan.UploadDate = time.Now()
	}
	if err := s.scans.Create(ctx, scan); err != nil {
		return err
	}
	// New imagery counts as case activity.
	c.UpdatedAt = time.Now()
	if err := s.cases.Update(ctx, c); err != nil {
		return err
	}
	return s.patients.UpdateLastScanDate(ctx, scan.PatientID, scan.UploadDate.Format(DateLayout))
}

func (s *Service) GetScan(ctx context.Context, id uuid.UUID) (*Scan, error) {
	scan, err := s.scans.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return scan, nil
}

func (s *Service) ListScansForCase(ctx context.Context, caseID uuid.UUID) ([]*Scan, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.scans.ListByCase(ctx, caseID)
}

func (s *Service) SetScanMask(ctx context.Context, scanID uuid.UUID, maskPath string) error {
	return s.scans.UpdateMaskPath(ctx, scanID, maskPath)
}

// -- Cascading deletes --

// DeletePatientCascade removes the patient and everything under it: every
// scan of every case, each scan's stored artifacts, then the cases, then the
// patient record. The cascade is a sequence of independent store calls, not
// a transaction; each step is safe to retry, and artifact-deletion failures
// are logged and skipped so file-store trouble can never strand metadata.
func (s *Service) DeletePatientCascade(ctx context.Context, patientID uuid.UUID) error {
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return err
	}

	cases, err := s.cases.ListByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	for _, c := range cases {
		if err := s.deleteCaseScans(ctx, c.ID); err != nil {
			return err
		}
		if err := s.cases.Delete(ctx, c.ID); err != nil {
			return err
		}
	}
	return s.patients.Delete(ctx, patientID)
}

// DeleteCase removes a case and its scans after checking the case really
// belongs to expectedPatientID.
func (s *Service) DeleteCase(ctx context.Context, caseID, expectedPatientID uuid.UUID) error {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	if c.PatientID != expectedPatientID {
		return fmt.Errorf("case %s belongs to a different patient: %w", caseID, ErrUnauthorized)
	}

	if err := s.deleteCaseScans(ctx, caseID); err != nil {
		return err
	}
	return s.cases.Delete(ctx, caseID)
}

func (s *Service) deleteCaseScans(ctx context.Context, caseID uuid.UUID) error {
	scans, err := s.scans.ListByCase(ctx, caseID)
	if err != nil {
		return err
	}
	for _, scan := range scans {
		s.deleteScanArtifacts(ctx, scan)
		if err := s.scans.Delete(ctx, scan.ID); err != nil {
			return err
		}
	}
	return nil
}

// deleteScanArtifacts removes the scan's stored image, heat map, and mask.
// Best effort: a failed delete is logged and never blocks the cascade.
func (s *Service) deleteScanArtifacts(ctx context.Context, scan *Scan) {
	for _, path := range []string{scan.ImagePath, scan.HeatmapPath, scan.MaskPath} {
		if path == "" {
			continue
		}
		if err := s.artifacts.Delete(ctx, path); err != nil {
			s.logger.Warn().
				Err(err).
				Str("scan_id", scan.ID.String()).
				Str("artifact", path).
				Msg("artifact deletion failed during cascade")
		}
	}
}
