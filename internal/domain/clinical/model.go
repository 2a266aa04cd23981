package clinical

import (
	"time"

	"github.com/google/uuid"
)

// Case status values. EndDate non-empty implies the case is no longer Active.
const (
	CaseStatusActive = "Active"
	CaseStatusClosed = "Closed"
)

// DiagnosisPending is returned when a case has no stored diagnosis and no
// scans to derive one from. Never persisted.
const DiagnosisPending = "Pending"

// LastUpdateUnknown marks a case with no scans and no stored update
// timestamp.
const LastUpdateUnknown = "Unknown"

// DateLayout is the calendar-date format used for case start/end dates and
// the patient last-scan cache. Dates are stored as strings so an absent date
// is the empty string, which sorts before every real date.
const DateLayout = "2006-01-02"

// Patient maps to the patient table. Owned by exactly one radiologist via
// CreatedBy.
type Patient struct {
	ID            uuid.UUID `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Age           int       `db:"age" json:"age"`
	Gender        string    `db:"gender" json:"gender"`
	ContactNumber *string   `db:"contact_number" json:"contact_number,omitempty"`
	MedicalNotes  *string   `db:"medical_notes" json:"medical_notes,omitempty"`
	// LastScanDate is a denormalized cache of the most recent upload date,
	// kept so patient lists render without touching the scan table.
	LastScanDate string    `db:"last_scan_date" json:"last_scan_date,omitempty"`
	CreatedBy    uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Case maps to the treatment_case table. Belongs to exactly one patient.
type Case struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	// Diagnosis is write-once-then-sticky: once non-empty it is never
	// overwritten automatically.
	Diagnosis     string    `db:"diagnosis" json:"diagnosis,omitempty"`
	TreatmentPlan string    `db:"treatment_plan" json:"treatment_plan,omitempty"`
	Status        string    `db:"status" json:"status"`
	StartDate     string    `db:"start_date" json:"start_date,omitempty"`
	EndDate       string    `db:"end_date" json:"end_date,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Scan maps to the mri_scan table. CaseID and PatientID are both stored
// directly; PatientID is a deliberate denormalization for query efficiency,
// not a second ownership axis.
type Scan struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	CaseID          uuid.UUID  `db:"case_id" json:"case_id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	UploadedBy      *uuid.UUID `db:"uploaded_by" json:"uploaded_by,omitempty"`
	ImagePath       string     `db:"image_path" json:"image_path"`
	Classification  string     `db:"classification" json:"classification,omitempty"`
	ConfidenceScore float64    `db:"confidence_score" json:"confidence_score"`
	HeatmapPath     string     `db:"heatmap_path" json:"heatmap_path,omitempty"`
	// MaskPath stays empty until segmentation is run for this scan.
	MaskPath    string    `db:"mask_path" json:"mask_path,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
	UploadDate  time.Time `db:"upload_date" json:"upload_date"`
}

// CaseView is a Case decorated with the read-time derived fields. Neither
// field is ever persisted.
type CaseView struct {
	Case
	// DisplayRank is the 1-based position after sorting the patient's cases
	// by ascending start date. Recomputed on every read because start dates
	// can be edited.
	DisplayRank int `json:"display_rank"`
	// LastUpdate is the latest scan upload time, falling back to the case's
	// stored update timestamp, falling back to "Unknown".
	LastUpdate string `json:"last_update"`
	ScanCount  int    `json:"scan_count"`
}
