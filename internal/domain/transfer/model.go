package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/pflege/pflege/internal/domain/assignment"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Request maps to the transfer_requests table: a caregiver asking for a
// patient to be moved to another location.
type Request struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	RequesterID     uuid.UUID  `db:"requester_id" json:"requester_id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	CurrentLocation string     `db:"current_location" json:"current_location"`
	DesiredLocation string     `db:"desired_location" json:"desired_location"`
	Reason          string     `db:"reason" json:"reason"`
	Status          string     `db:"status" json:"status"`
	DecidedBy       *uuid.UUID `db:"decided_by" json:"decided_by,omitempty"`
	DecisionNote    string     `db:"decision_note" json:"decision_note,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	DecidedAt       *time.Time `db:"decided_at" json:"decided_at,omitempty"`
}

// Decision is the admin input for approve and reject.
type Decision struct {
	DecidedBy *uuid.UUID `json:"-"`
	Note      string     `json:"note"`
}

// Approval is the outcome of approving a request. Transfer is nil when the
// patient had no active assignment.
type Approval struct {
	Request  *Request                   `json:"request"`
	Transfer *assignment.TransferResult `json:"transfer,omitempty"`
}
