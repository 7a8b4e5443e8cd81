package vitals

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pflege/pflege/internal/domain/assignment"
	"github.com/pflege/pflege/internal/domain/identity"
	"github.com/pflege/pflege/internal/domain/notification"
	"github.com/pflege/pflege/internal/platform/events"
	"github.com/pflege/pflege/internal/platform/webhook"
)

// -- Mocks --

type mockRepo struct {
	items []*Vital
}

func (m *mockRepo) Create(_ context.Context, v *Vital) error {
	cp := *v
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockRepo) sorted(keep func(*Vital) bool) []*Vital {
	var out []*Vital
	for _, v := range m.items {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out
}

func limited(items []*Vital, limit int) []*Vital {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func in(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *mockRepo) ListByPatient(_ context.Context, pid uuid.UUID, limit int) ([]*Vital, error) {
	return limited(m.sorted(func(v *Vital) bool { return v.PatientID == pid }), limit), nil
}

func (m *mockRepo) LatestForPatients(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*Vital, error) {
	out := map[uuid.UUID]*Vital{}
	for _, v := range m.sorted(func(v *Vital) bool { return in(ids, v.PatientID) }) {
		if _, ok := out[v.PatientID]; !ok {
			out[v.PatientID] = v
		}
	}
	return out, nil
}

func (m *mockRepo) RecentForPatients(_ context.Context, ids []uuid.UUID, limit int) ([]*Vital, error) {
	return limited(m.sorted(func(v *Vital) bool { return in(ids, v.PatientID) }), limit), nil
}

func (m *mockRepo) CriticalForPatientsSince(_ context.Context, ids []uuid.UUID, since time.Time, limit int) ([]*Vital, error) {
	return limited(m.sorted(func(v *Vital) bool {
		return v.Critical && in(ids, v.PatientID) && !v.RecordedAt.Before(since)
	}), limit), nil
}

func (m *mockRepo) CountCriticalSince(_ context.Context, since time.Time) (int, error) {
	return len(m.sorted(func(v *Vital) bool { return v.Critical && !v.RecordedAt.Before(since) })), nil
}

type mockAssignments struct {
	byPatient map[uuid.UUID]uuid.UUID
	patients  map[uuid.UUID]*identity.Patient
	err       error
}

func (m *mockAssignments) CaregiverForPatient(_ context.Context, pid uuid.UUID) (uuid.UUID, bool, error) {
	if m.err != nil {
		return uuid.Nil, false, m.err
	}
	mid, ok := m.byPatient[pid]
	return mid, ok, nil
}

func (m *mockAssignments) AssignedPatients(_ context.Context, mid uuid.UUID) ([]assignment.AssignedPatient, error) {
	var out []assignment.AssignedPatient
	for pid, owner := range m.byPatient {
		if owner != mid {
			continue
		}
		p := m.patients[pid]
		out = append(out, assignment.AssignedPatient{PatientID: pid, Username: p.Username, Name: p.Name, Room: p.Room})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockPatients struct {
	patients map[uuid.UUID]*identity.Patient
}

func (m *mockPatients) GetPatient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	if p, ok := m.patients[id]; ok {
		return p, nil
	}
	return nil, identity.ErrPatientNotFound
}

type mockNotifier struct {
	sent []*notification.Notification
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, n *notification.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

type recordingAlerts struct {
	alerts []webhook.Alert
}

func (r *recordingAlerts) Send(_ context.Context, a webhook.Alert) (*webhook.DeliveryAttempt, error) {
	r.alerts = append(r.alerts, a)
	return &webhook.DeliveryAttempt{AlertID: a.ID, Status: "success", StatusCode: 200}, nil
}

type fixture struct {
	svc         *Service
	repo        *mockRepo
	assignments *mockAssignments
	notifier    *mockNotifier
	events      *events.Recorder
	alerts      *recordingAlerts
	patient     *identity.Patient
	caregiver   uuid.UUID
}

func newFixture() *fixture {
	p := &identity.Patient{ID: uuid.New(), Username: "erika", Name: "Erika Muster", Room: "12"}
	patients := map[uuid.UUID]*identity.Patient{p.ID: p}
	f := &fixture{
		repo:        &mockRepo{},
		assignments: &mockAssignments{byPatient: map[uuid.UUID]uuid.UUID{}, patients: patients},
		notifier:    &mockNotifier{},
		events:      &events.Recorder{},
		alerts:      &recordingAlerts{},
		patient:     p,
		caregiver:   uuid.New(),
	}
	f.svc = NewService(f.repo, f.assignments, &mockPatients{patients: patients}, f.notifier, zerolog.Nop())
	f.svc.SetPublisher(f.events)
	f.svc.SetAlerts(f.alerts)
	return f
}

// -- Tests --

func TestRecordVitals_Normal(t *testing.T) {
	f := newFixture()
	res, err := f.svc.RecordVitals(context.Background(), &Vital{
		PatientID: f.patient.ID, Systolic: intp(120), Pulse: intp(70),
	})
	require.NoError(t, err)
	assert.False(t, res.Critical)
	assert.Equal(t, SeverityNormal, res.Severity)
	assert.Equal(t, "Normal", res.Status)
	assert.NotEqual(t, uuid.Nil, res.Vital.ID)
	assert.False(t, res.Vital.RecordedAt.IsZero())
	assert.Len(t, f.repo.items, 1)
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.events.Events())
	assert.Empty(t, f.alerts.alerts)
}

func TestRecordVitals_CriticalNotifiesAssignedCaregiver(t *testing.T) {
	f := newFixture()
	f.assignments.byPatient[f.patient.ID] = f.caregiver
	recorder := uuid.New()

	res, err := f.svc.RecordVitals(context.Background(), &Vital{
		PatientID: f.patient.ID, MitarbeiterID: &recorder, Systolic: intp(190),
	})
	require.NoError(t, err)
	assert.True(t, res.Critical)
	assert.Equal(t, "Kritisch", res.Status)
	require.NotNil(t, res.Notified)
	assert.Equal(t, f.caregiver, *res.Notified)

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, f.caregiver, n.MitarbeiterID)
	assert.Equal(t, notification.KindCriticalVitals, n.Kind)
	assert.Contains(t, n.Message, "Erika Muster")
	assert.Contains(t, n.Message, "systolic 190")

	require.Len(t, f.events.OfType(events.TypeVitalsCritical), 1)
	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, f.caregiver.String(), f.alerts.alerts[0].MitarbeiterID)
	assert.Equal(t, "12", f.alerts.alerts[0].Room)
}

func TestRecordVitals_CriticalUnassignedFallsBackToRecorder(t *testing.T) {
	f := newFixture()
	recorder := uuid.New()

	res, err := f.svc.RecordVitals(context.Background(), &Vital{
		PatientID: f.patient.ID, MitarbeiterID: &recorder, OxygenSaturation: intp(82),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Notified)
	assert.Equal(t, recorder, *res.Notified)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, recorder, f.notifier.sent[0].MitarbeiterID)
}

func TestRecordVitals_CriticalWithoutAnyCaregiverStillAlerts(t *testing.T) {
	f := newFixture()
	res, err := f.svc.RecordVitals(context.Background(), &Vital{PatientID: f.patient.ID, Pulse: intp(140)})
	require.NoError(t, err)
	assert.True(t, res.Critical)
	assert.Nil(t, res.Notified)
	assert.Empty(t, f.notifier.sent)
	assert.Len(t, f.events.Events(), 1)
	assert.Len(t, f.alerts.alerts, 1)
}

func TestRecordVitals_NotificationFailureKeepsRecord(t *testing.T) {
	f := newFixture()
	f.assignments.byPatient[f.patient.ID] = f.caregiver
	f.notifier.err = errors.New("db down")

	res, err := f.svc.RecordVitals(context.Background(), &Vital{PatientID: f.patient.ID, Temperature: floatp(40.1)})
	require.NoError(t, err)
	assert.True(t, res.Critical)
	assert.Nil(t, res.Notified)
	assert.Len(t, f.repo.items, 1)
}

func TestRecordVitals_Validation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name  string
		vital Vital
	}{
		{"missing patient", Vital{Systolic: intp(120)}},
		{"no measurements", Vital{PatientID: f.patient.ID, Remarks: "looks fine"}},
		{"systolic implausible", Vital{PatientID: f.patient.ID, Systolic: intp(400)}},
		{"pulse implausible", Vital{PatientID: f.patient.ID, Pulse: intp(5)}},
		{"temperature implausible", Vital{PatientID: f.patient.ID, Temperature: floatp(50)}},
		{"spo2 above 100", Vital{PatientID: f.patient.ID, OxygenSaturation: intp(101)}},
		{"negative weight", Vital{PatientID: f.patient.ID, Weight: floatp(-1)}},
		{"glucose implausible", Vital{PatientID: f.patient.ID, Glucose: intp(1200)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordVitals(context.Background(), &tt.vital)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Empty(t, f.repo.items)
}

func TestRecordVitals_UnknownPatient(t *testing.T) {
	f := newFixture()
	_, err := f.svc.RecordVitals(context.Background(), &Vital{PatientID: uuid.New(), Systolic: intp(120)})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestRecordVitals_GlucoseOnlyIsAccepted(t *testing.T) {
	f := newFixture()
	res, err := f.svc.RecordVitals(context.Background(), &Vital{PatientID: f.patient.ID, Glucose: intp(450)})
	require.NoError(t, err)
	assert.Equal(t, SeverityNormal, res.Severity)
}

func TestListings(t *testing.T) {
	f := newFixture()
	f.assignments.byPatient[f.patient.ID] = f.caregiver
	other := &identity.Patient{ID: uuid.New(), Username: "max", Name: "Max Muster", Room: "14"}
	f.assignments.patients[other.ID] = other
	f.assignments.byPatient[other.ID] = f.caregiver

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i, sys := range []int{120, 190, 130} {
		_, err := f.svc.RecordVitals(ctx, &Vital{PatientID: f.patient.ID, Systolic: intp(sys), RecordedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	recent, err := f.svc.RecentForCaregiver(ctx, f.caregiver, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "Normal", recent[0].Status)
	assert.Equal(t, "Kritisch", recent[1].Status)
	assert.Equal(t, "Erika Muster", recent[1].PatientName)

	withVitals, err := f.svc.PatientsWithVitals(ctx, f.caregiver)
	require.NoError(t, err)
	require.Len(t, withVitals, 2)
	assert.Equal(t, "Erika Muster", withVitals[0].Name)
	require.NotNil(t, withVitals[0].Latest)
	assert.Equal(t, 130, *withVitals[0].Latest.Systolic)
	assert.Nil(t, withVitals[1].Latest)

	critical, err := f.svc.CriticalForCaregiverSince(ctx, f.caregiver, base, 10)
	require.NoError(t, err)
	assert.Len(t, critical, 1)

	history, err := f.svc.HistoryForPatient(ctx, f.patient.ID, 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	latest, err := f.svc.LatestForPatient(ctx, other.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	n, err := f.svc.CountCriticalSince(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecentForCaregiver_NoPatients(t *testing.T) {
	f := newFixture()
	items, err := f.svc.RecentForCaregiver(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}
