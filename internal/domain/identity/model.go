package identity

import (
	"time"

	"github.com/google/uuid"
)

// Radiologist maps to the radiologist table. Radiologists own patients;
// every patient record carries the creating radiologist's ID.
type Radiologist struct {
	ID             uuid.UUID `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	ContactNumber  *string   `db:"contact_number" json:"contact_number,omitempty"`
	Specialty      *string   `db:"specialty" json:"specialty,omitempty"`
	ProfilePicture *string   `db:"profile_picture" json:"profile_picture,omitempty"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
