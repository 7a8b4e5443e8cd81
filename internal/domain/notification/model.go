package notification

import (
	"time"

	"github.com/google/uuid"
)

const KindCriticalVitals = "critical_vitals"

// Notification maps to the notifications table.
type Notification struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	MitarbeiterID uuid.UUID  `db:"mitarbeiter_id" json:"mitarbeiter_id"`
	PatientID     *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	VitalID       *uuid.UUID `db:"vital_id" json:"vital_id,omitempty"`
	Kind          string     `db:"kind" json:"kind"`
	Message       string     `db:"message" json:"message"`
	Read          bool       `db:"read" json:"read"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	ReadAt        *time.Time `db:"read_at" json:"read_at,omitempty"`
}
