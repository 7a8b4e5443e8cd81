package task

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Task maps to the aufgaben table: an ad-hoc job for a caregiver, optionally
// about one patient.
type Task struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	MitarbeiterID uuid.UUID  `db:"mitarbeiter_id" json:"mitarbeiter_id"`
	PatientID     *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Title         string     `db:"title" json:"title"`
	Description   string     `db:"description" json:"description,omitempty"`
	Priority      string     `db:"priority" json:"priority"`
	DueAt         *time.Time `db:"due_at" json:"due_at,omitempty"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Open reports whether the task still needs work.
func (t *Task) Open() bool {
	return t.Status == StatusOpen || t.Status == StatusInProgress
}
