package vitals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pflege/pflege/internal/domain/assignment"
	"github.com/pflege/pflege/internal/domain/identity"
	"github.com/pflege/pflege/internal/domain/notification"
	"github.com/pflege/pflege/internal/platform/events"
	"github.com/pflege/pflege/internal/platform/webhook"
)

const (
	defaultHistoryLimit = 50
	maxListLimit        = 500
	maxRemarksLength    = 2000
)

// Assignments is the slice of the assignment service used here.
type Assignments interface {
	CaregiverForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error)
	AssignedPatients(ctx context.Context, mitarbeiterID uuid.UUID) ([]assignment.AssignedPatient, error)
}

type Patients interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

type Service struct {
	repo        Repository
	assignments Assignments
	patients    Patients
	notifier    Notifier
	publisher   events.Publisher
	alerts      webhook.Notifier
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, assignments Assignments, patients Patients, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		assignments: assignments,
		patients:    patients,
		notifier:    notifier,
		publisher:   events.Nop{},
		alerts:      webhook.Nop{},
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

// SetAlerts attaches the webhook that receives critical readings.
func (s *Service) SetAlerts(n webhook.Notifier) {
	s.alerts = n
}

// plausible bounds, inclusive. Values outside are rejected as input errors,
// not classified.
var plausible = []struct {
	name     string
	min, max float64
	value    func(v *Vital) *float64
}{
	{"systolic", 40, 300, func(v *Vital) *float64 { return intPtrToFloat(v.Systolic) }},
	{"diastolic", 20, 200, func(v *Vital) *float64 { return intPtrToFloat(v.Diastolic) }},
	{"pulse", 20, 300, func(v *Vital) *float64 { return intPtrToFloat(v.Pulse) }},
	{"temperature", 25, 45, func(v *Vital) *float64 { return v.Temperature }},
	{"oxygen_saturation", 0, 100, func(v *Vital) *float64 { return intPtrToFloat(v.OxygenSaturation) }},
	{"weight", 0, 500, func(v *Vital) *float64 { return v.Weight }},
	{"glucose", 0, 1000, func(v *Vital) *float64 { return intPtrToFloat(v.Glucose) }},
}

func validate(v *Vital) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrInvalidInput)
	}
	present := 0
	for _, p := range plausible {
		val := p.value(v)
		if val == nil {
			continue
		}
		present++
		if *val < p.min || *val > p.max {
			return fmt.Errorf("%w: %s must be between %g and %g", ErrInvalidInput, p.name, p.min, p.max)
		}
	}
	if present == 0 {
		return fmt.Errorf("%w: at least one measurement is required", ErrInvalidInput)
	}
	if len(v.Remarks) > maxRemarksLength {
		return fmt.Errorf("%w: remarks must be at most %d characters", ErrInvalidInput, maxRemarksLength)
	}
	return nil
}

// RecordVitals validates, classifies and stores a reading. A critical
// reading notifies the patient's caregiver (or the recorder when the patient
// is unassigned), emits an event and posts the alert webhook. Those side
// effects are logged on failure and never undo the stored record.
func (s *Service) RecordVitals(ctx context.Context, v *Vital) (*RecordResult, error) {
	v.Remarks = strings.TrimSpace(v.Remarks)
	if err := validate(v); err != nil {
		return nil, err
	}
	patient, err := s.patients.GetPatient(ctx, v.PatientID)
	if errors.Is(err, identity.ErrPatientNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	class := Classify(v)
	v.ID = uuid.New()
	if v.RecordedAt.IsZero() {
		v.RecordedAt = s.now().UTC()
	}
	v.Severity = class.Severity
	v.Critical = class.Critical()

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("store vitals: %w", err)
	}

	res := &RecordResult{
		Vital:    v,
		Critical: v.Critical,
		Severity: v.Severity,
		Status:   v.Severity.Label(),
		Findings: class.Findings,
	}
	if v.Critical {
		res.Notified = s.raiseCritical(ctx, v, patient, class)
	}
	return res, nil
}

func (s *Service) raiseCritical(ctx context.Context, v *Vital, p *identity.Patient, class Classification) *uuid.UUID {
	log := s.logger.With().
		Str("patient_id", v.PatientID.String()).
		Str("vital_id", v.ID.String()).
		Logger()

	findings := make([]string, 0, len(class.Findings))
	for _, f := range class.Findings {
		if f.Severity == SeverityCritical {
			findings = append(findings, f.String())
		}
	}

	var target *uuid.UUID
	mid, ok, err := s.assignments.CaregiverForPatient(ctx, v.PatientID)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("look up caregiver for critical vitals")
	case ok:
		target = &mid
	}
	if target == nil && v.MitarbeiterID != nil {
		target = v.MitarbeiterID
	}

	if target != nil {
		pid, vid := v.PatientID, v.ID
		n := &notification.Notification{
			MitarbeiterID: *target,
			PatientID:     &pid,
			VitalID:       &vid,
			Kind:          notification.KindCriticalVitals,
			Message: fmt.Sprintf("Kritische Vitalwerte bei %s (Zimmer %s): %s",
				p.Name, p.Room, strings.Join(findings, ", ")),
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			log.Warn().Err(err).Msg("create critical vitals notification")
			target = nil
		}
	} else {
		log.Warn().Msg("critical vitals without caregiver, no notification created")
	}

	data := map[string]interface{}{
		"vital_id":   v.ID.String(),
		"patient_id": v.PatientID.String(),
		"severity":   string(v.Severity),
		"findings":   findings,
	}
	if target != nil {
		data["mitarbeiter_id"] = target.String()
	}
	if err := s.publisher.Publish(ctx, events.TypeVitalsCritical, v.PatientID.String(), data); err != nil {
		log.Warn().Err(err).Msg("publish critical vitals event")
	}

	alert := webhook.Alert{
		Type:        webhook.EventCriticalVitals,
		PatientID:   v.PatientID.String(),
		PatientName: p.Name,
		Room:        p.Room,
		VitalID:     v.ID.String(),
		Severity:    string(v.Severity),
		Findings:    findings,
		RecordedAt:  v.RecordedAt,
	}
	if target != nil {
		alert.MitarbeiterID = target.String()
	}
	if attempt, err := s.alerts.Send(ctx, alert); err != nil {
		log.Error().Err(err).Msg("deliver critical vitals alert")
	} else {
		log.Info().Str("alert_status", attempt.Status).Msg("critical vitals raised")
	}
	return target
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// HistoryForPatient returns the patient's readings, newest first.
func (s *Service) HistoryForPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]VitalView, error) {
	items, err := s.repo.ListByPatient(ctx, patientID, clampLimit(limit, defaultHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	out := make([]VitalView, 0, len(items))
	for _, v := range items {
		out = append(out, newView(v))
	}
	return out, nil
}

// LatestForPatient returns the newest reading or nil.
func (s *Service) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*VitalView, error) {
	items, err := s.repo.ListByPatient(ctx, patientID, 1)
	if err != nil {
		return nil, fmt.Errorf("latest vitals: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	view := newView(items[0])
	return &view, nil
}

func (s *Service) assigned(ctx context.Context, mitarbeiterID uuid.UUID) ([]uuid.UUID, map[uuid.UUID]assignment.AssignedPatient, error) {
	patients, err := s.assignments.AssignedPatients(ctx, mitarbeiterID)
	if err != nil {
		return nil, nil, fmt.Errorf("list assigned patients: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(patients))
	byID := make(map[uuid.UUID]assignment.AssignedPatient, len(patients))
	for _, p := range patients {
		ids = append(ids, p.PatientID)
		byID[p.PatientID] = p
	}
	return ids, byID, nil
}

func decorate(items []*Vital, byID map[uuid.UUID]assignment.AssignedPatient) []VitalView {
	out := make([]VitalView, 0, len(items))
	for _, v := range items {
		view := newView(v)
		if p, ok := byID[v.PatientID]; ok {
			view.PatientName = p.Name
			view.Room = p.Room
		}
		out = append(out, view)
	}
	return out
}

// RecentForCaregiver lists the latest readings across the caregiver's
// actively assigned patients, newest first.
func (s *Service) RecentForCaregiver(ctx context.Context, mitarbeiterID uuid.UUID, limit int) ([]VitalView, error) {
	ids, byID, err := s.assigned(ctx, mitarbeiterID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.RecentForPatients(ctx, ids, clampLimit(limit, defaultHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("list recent vitals: %w", err)
	}
	return decorate(items, byID), nil
}

// CriticalForCaregiverSince lists critical readings of the caregiver's
// patients recorded at or after since.
func (s *Service) CriticalForCaregiverSince(ctx context.Context, mitarbeiterID uuid.UUID, since time.Time, limit int) ([]VitalView, error) {
	ids, byID, err := s.assigned(ctx, mitarbeiterID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.CriticalForPatientsSince(ctx, ids, since, clampLimit(limit, defaultHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("list critical vitals: %w", err)
	}
	return decorate(items, byID), nil
}

// PatientsWithVitals returns each assigned patient with their latest reading.
func (s *Service) PatientsWithVitals(ctx context.Context, mitarbeiterID uuid.UUID) ([]PatientWithVitals, error) {
	patients, err := s.assignments.AssignedPatients(ctx, mitarbeiterID)
	if err != nil {
		return nil, fmt.Errorf("list assigned patients: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(patients))
	for _, p := range patients {
		ids = append(ids, p.PatientID)
	}
	latest, err := s.repo.LatestForPatients(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("latest vitals: %w", err)
	}

	out := make([]PatientWithVitals, 0, len(patients))
	for _, p := range patients {
		item := PatientWithVitals{
			PatientID: p.PatientID,
			Username:  p.Username,
			Name:      p.Name,
			Room:      p.Room,
			Location:  p.Location,
		}
		if v, ok := latest[p.PatientID]; ok {
			view := newView(v)
			view.PatientName = p.Name
			view.Room = p.Room
			item.Latest = &view
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) CountCriticalSince(ctx context.Context, since time.Time) (int, error) {
	return s.repo.CountCriticalSince(ctx, since)
}
