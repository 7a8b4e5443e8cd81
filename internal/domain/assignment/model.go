package assignment

import (
	"time"

	"github.com/google/uuid"
)

// Assignment statuses. Only StatusActive counts towards capacity; every
// other value marks an ended assignment.
const (
	StatusActive      = "active"
	StatusTransferred = "transferred"
	StatusDischarged  = "discharged"
	StatusReleased    = "released"
)

const DefaultCapacity = 24

// Assignment maps to the patient_zuweisung table.
type Assignment struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	MitarbeiterID uuid.UUID  `db:"mitarbeiter_id" json:"mitarbeiter_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	Status        string     `db:"status" json:"status"`
	AssignedAt    time.Time  `db:"assigned_at" json:"assigned_at"`
	EndedAt       *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

// Workload is a caregiver with their number of active assignments.
type Workload struct {
	MitarbeiterID uuid.UUID `json:"mitarbeiter_id"`
	Username      string    `json:"username"`
	Name          string    `json:"name"`
	ActiveCount   int       `json:"active_count"`
}

// AssignedPatient is a patient row joined with its active assignment.
type AssignedPatient struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	PatientID    uuid.UUID `json:"patient_id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Room         string    `json:"room"`
	Location     string    `json:"location"`
	AssignedAt   time.Time `json:"assigned_at"`
}

type AssignResult struct {
	Assignment  *Assignment `json:"assignment"`
	Mitarbeiter Workload    `json:"mitarbeiter"`
}

// TransferResult carries the ended assignment and, when a waiting patient
// could be moved into the freed slot, the backfill assignment.
type TransferResult struct {
	Ended         *Assignment `json:"ended"`
	Backfill      *Assignment `json:"backfill,omitempty"`
	BackfillError string      `json:"backfill_error,omitempty"`
}

type InitialResult struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	Success       bool       `json:"success"`
	MitarbeiterID *uuid.UUID `json:"mitarbeiter_id,omitempty"`
	Error         string     `json:"error,omitempty"`
}

type InitialSummary struct {
	Total    int             `json:"total"`
	Assigned int             `json:"assigned"`
	Failed   int             `json:"failed"`
	Results  []InitialResult `json:"results"`
}

type CaregiverStatistics struct {
	MitarbeiterID uuid.UUID `json:"mitarbeiter_id"`
	Username      string    `json:"username"`
	Name          string    `json:"name"`
	Assigned      int       `json:"assigned"`
	Remaining     int       `json:"remaining"`
}

type Totals struct {
	Caregivers         int `json:"caregivers"`
	ActiveAssignments  int `json:"active_assignments"`
	UnassignedPatients int `json:"unassigned_patients"`
	TotalCapacity      int `json:"total_capacity"`
	RemainingCapacity  int `json:"remaining_capacity"`
}

type Statistics struct {
	Capacity    int                   `json:"capacity"`
	GeneratedAt time.Time             `json:"generated_at"`
	Caregivers  []CaregiverStatistics `json:"caregivers"`
	Totals      Totals                `json:"totals"`
}
