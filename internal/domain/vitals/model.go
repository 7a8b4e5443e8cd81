package vitals

import (
	"time"

	"github.com/google/uuid"
)

// Vital maps to the vitaldaten table. Measurements are optional.
type Vital struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	MitarbeiterID    *uuid.UUID `db:"mitarbeiter_id" json:"mitarbeiter_id,omitempty"`
	RecordedAt       time.Time  `db:"recorded_at" json:"recorded_at"`
	Systolic         *int       `db:"systolic" json:"systolic,omitempty"`
	Diastolic        *int       `db:"diastolic" json:"diastolic,omitempty"`
	Pulse            *int       `db:"pulse" json:"pulse,omitempty"`
	Temperature      *float64   `db:"temperature" json:"temperature,omitempty"`
	OxygenSaturation *int       `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	Weight           *float64   `db:"weight" json:"weight,omitempty"`
	Glucose          *int       `db:"glucose" json:"glucose,omitempty"`
	Remarks          string     `db:"remarks" json:"remarks,omitempty"`
	Critical         bool       `db:"critical" json:"critical"`
	Severity         Severity   `db:"severity" json:"severity"`
}

// VitalView is a Vital with its display label and patient context, as shown
// in caregiver listings.
type VitalView struct {
	Vital
	Status      string `json:"status"`
	PatientName string `json:"patient_name,omitempty"`
	Room        string `json:"room,omitempty"`
}

// PatientWithVitals is an assigned patient and their latest record, if any.
type PatientWithVitals struct {
	PatientID uuid.UUID  `json:"patient_id"`
	Username  string     `json:"username"`
	Name      string     `json:"name"`
	Room      string     `json:"room"`
	Location  string     `json:"location"`
	Latest    *VitalView `json:"latest,omitempty"`
}

// RecordResult is returned by RecordVitals.
type RecordResult struct {
	Vital    *Vital     `json:"vital"`
	Critical bool       `json:"critical"`
	Severity Severity   `json:"severity"`
	Status   string     `json:"status"`
	Findings []Finding  `json:"findings"`
	Notified *uuid.UUID `json:"notified_mitarbeiter_id,omitempty"`
}

func newView(v *Vital) VitalView {
	return VitalView{Vital: *v, Status: v.Severity.Label()}
}
