package dashboard

import (
	"time"

	"github.com/pflege/pflege/internal/domain/assignment"
	"github.com/pflege/pflege/internal/domain/identity"
	"github.com/pflege/pflege/internal/domain/notification"
	"github.com/pflege/pflege/internal/domain/task"
	"github.com/pflege/pflege/internal/domain/vitals"
)

// CriticalWindow is how far back dashboards look for critical readings.
const CriticalWindow = 24 * time.Hour

const patientHistoryLimit = 10

type CaregiverDashboard struct {
	Mitarbeiter         *identity.Mitarbeiter        `json:"mitarbeiter"`
	Patients            []assignment.AssignedPatient `json:"patients"`
	PatientCount        int                          `json:"patient_count"`
	Capacity            int                          `json:"capacity"`
	RemainingCapacity   int                          `json:"remaining_capacity"`
	CriticalVitals      []vitals.VitalView           `json:"critical_vitals"`
	OpenTasks           []*task.Task                 `json:"open_tasks"`
	UnreadNotifications int                          `json:"unread_notifications"`
	Notifications       []*notification.Notification `json:"notifications"`
	GeneratedAt         time.Time                    `json:"generated_at"`
}

type PatientDashboard struct {
	Patient     *identity.Patient     `json:"patient"`
	Caregiver   *identity.Mitarbeiter `json:"caregiver,omitempty"`
	Latest      *vitals.VitalView     `json:"latest_vitals,omitempty"`
	History     []vitals.VitalView    `json:"history"`
	GeneratedAt time.Time             `json:"generated_at"`
}

type AdminTotals struct {
	Caregivers         int `json:"caregivers"`
	Patients           int `json:"patients"`
	ActiveAssignments  int `json:"active_assignments"`
	UnassignedPatients int `json:"unassigned_patients"`
	PendingTransfers   int `json:"pending_transfers"`
	CriticalVitals24h  int `json:"critical_vitals_24h"`
}

type AdminDashboard struct {
	Totals      AdminTotals            `json:"totals"`
	Statistics  *assignment.Statistics `json:"statistics"`
	GeneratedAt time.Time              `json:"generated_at"`
}
