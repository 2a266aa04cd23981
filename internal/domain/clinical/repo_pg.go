package clinical

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainalyze/brainalyze/internal/platform/db"
)

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, full_name, age, gender, contact_number, medical_notes,
	COALESCE(last_scan_date, ''), created_by, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FullName, &p.Age, &p.Gender, &p.ContactNumber,
		&p.MedicalNotes, &p.LastScanDate, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, full_name, age, gender, contact_number, medical_notes, last_scan_date, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8)`,
		p.ID, p.FullName, p.Age, p.Gender, p.ContactNumber, p.MedicalNotes,
		p.LastScanDate, p.CreatedBy)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET full_name=$2, age=$3, gender=$4, contact_number=$5,
			medical_notes=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FullName, p.Age, p.Gender, p.ContactNumber, p.MedicalNotes)
	return err
}

func (r *patientRepoPG) UpdateLastScanDate(ctx context.Context, id uuid.UUID, date string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET last_scan_date=$2, updated_at=NOW() WHERE id = $1`, id, date)
	return err
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *patientRepoPG) ListByRadiologist(ctx context.Context, radiologistID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE created_by = $1`, radiologistID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE created_by = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		radiologistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Case Repository ===========

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository {
	return &caseRepoPG{pool: pool}
}

func (r *caseRepoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const caseCols = `id, patient_id, COALESCE(diagnosis, ''), COALESCE(treatment_plan, ''),
	status, COALESCE(start_date, ''), COALESCE(end_date, ''), created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.PatientID, &c.Diagnosis, &c.TreatmentPlan,
		&c.Status, &c.StartDate, &c.EndDate, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *caseRepoPG) Create(ctx context.Context, c *Case) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO treatment_case (id, patient_id, diagnosis, treatment_plan, status, start_date, end_date)
		VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,NULLIF($6,''),NULLIF($7,''))`,
		c.ID, c.PatientID, c.Diagnosis, c.TreatmentPlan, c.Status, c.StartDate, c.EndDate)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseCols+` FROM treatment_case WHERE id = $1`, id))
}

func (r *caseRepoPG) Update(ctx context.Context, c *Case) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_case SET treatment_plan=NULLIF($2,''), status=$3,
			start_date=NULLIF($4,''), end_date=NULLIF($5,''), updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.TreatmentPlan, c.Status, c.StartDate, c.EndDate)
	return err
}

func (r *caseRepoPG) UpdateDiagnosis(ctx context.Context, id uuid.UUID, diagnosis string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_case SET diagnosis=$2, updated_at=NOW()
		WHERE id = $1 AND (diagnosis IS NULL OR diagnosis = '')`,
		id, diagnosis)
	return err
}

func (r *caseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_case WHERE id = $1`, id)
	return err
}

func (r *caseRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Case, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+caseCols+` FROM treatment_case WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// =========== Scan Repository ===========

type scanRepoPG struct{ pool *pgxpool.Pool }

func NewScanRepoPG(pool *pgxpool.Pool) ScanRepository {
	return &scanRepoPG{pool: pool}
}

func (r *scanRepoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const scanCols = `id, case_id, patient_id, uploaded_by, image_path,
	COALESCE(classification, ''), confidence_score, COALESCE(heatmap_path, ''),
	COALESCE(mask_path, ''), COALESCE(description, ''), upload_date`

func scanScan(row pgx.Row) (*Scan, error) {
	var s Scan
	err := row.Scan(&s.ID, &s.CaseID, &s.PatientID, &s.UploadedBy, &s.ImagePath,
		&s.Classification, &s.ConfidenceScore, &s.HeatmapPath,
		&s.MaskPath, &s.Description, &s.UploadDate)
	return &s, err
}

func (r *scanRepoPG) Create(ctx context.Context, s *Scan) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO mri_scan (id, case_id, patient_id, uploaded_by, image_path,
			classification, confidence_score, heatmap_path, mask_path, description, upload_date)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),$11)`,
		s.ID, s.CaseID, s.PatientID, s.UploadedBy, s.ImagePath,
		s.Classification, s.ConfidenceScore, s.HeatmapPath, s.MaskPath,
		s.Description, s.UploadDate)
	return err
}

func (r *scanRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Scan, error) {
	return scanScan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scanCols+` FROM mri_scan WHERE id = $1`, id))
}

func (r *scanRepoPG) UpdateMaskPath(ctx context.Context, id uuid.UUID, maskPath string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE mri_scan SET mask_path=$2 WHERE id = $1`, id, maskPath)
	return err
}

func (r *scanRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM mri_scan WHERE id = $1`, id)
	return err
}

func (r *scanRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Scan, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scanCols+` FROM mri_scan WHERE case_id = $1 ORDER BY upload_date ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScans(rows)
}

func (r *scanRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Scan, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scanCols+` FROM mri_scan WHERE patient_id = $1 ORDER BY upload_date ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScans(rows)
}

func collectScans(rows pgx.Rows) ([]*Scan, error) {
	var items []*Scan
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
