package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pflege/pflege/internal/domain/assignment"
	"github.com/pflege/pflege/internal/domain/identity"
	"github.com/pflege/pflege/internal/domain/notification"
	"github.com/pflege/pflege/internal/domain/task"
	"github.com/pflege/pflege/internal/domain/vitals"
	"github.com/pflege/pflege/internal/platform/cache"
)

// stubSources implements every source interface from fixed data.
type stubSources struct {
	caregiver *identity.Mitarbeiter
	patient   *identity.Patient
	assigned  []assignment.AssignedPatient
	owner     map[uuid.UUID]uuid.UUID
	critical  []vitals.VitalView
	history   []vitals.VitalView
	tasks     []*task.Task
	unread    int
	pending   int
	statsCall int
	since     time.Time
}

func (s *stubSources) GetMitarbeiter(_ context.Context, id uuid.UUID) (*identity.Mitarbeiter, error) {
	if s.caregiver != nil && s.caregiver.ID == id {
		return s.caregiver, nil
	}
	return nil, identity.ErrMitarbeiterNotFound
}

func (s *stubSources) GetPatient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	if s.patient != nil && s.patient.ID == id {
		return s.patient, nil
	}
	return nil, identity.ErrPatientNotFound
}

func (s *stubSources) CountMitarbeiter(context.Context) (int, error) { return 1, nil }

func (s *stubSources) ListPatients(context.Context, int, int) ([]*identity.Patient, int, error) {
	return []*identity.Patient{s.patient}, 5, nil
}

func (s *stubSources) Capacity() int { return 24 }

func (s *stubSources) AssignedPatients(context.Context, uuid.UUID) ([]assignment.AssignedPatient, error) {
	return s.assigned, nil
}

func (s *stubSources) CaregiverForPatient(_ context.Context, pid uuid.UUID) (uuid.UUID, bool, error) {
	mid, ok := s.owner[pid]
	return mid, ok, nil
}

func (s *stubSources) GetStatistics(context.Context) (*assignment.Statistics, error) {
	s.statsCall++
	return &assignment.Statistics{
		Capacity: 24,
		Totals:   assignment.Totals{Caregivers: 1, ActiveAssignments: 1, UnassignedPatients: 4},
	}, nil
}

func (s *stubSources) CriticalForCaregiverSince(_ context.Context, _ uuid.UUID, since time.Time, _ int) ([]vitals.VitalView, error) {
	s.since = since
	return s.critical, nil
}

func (s *stubSources) LatestForPatient(context.Context, uuid.UUID) (*vitals.VitalView, error) {
	if len(s.history) == 0 {
		return nil, nil
	}
	v := s.history[0]
	return &v, nil
}

func (s *stubSources) HistoryForPatient(context.Context, uuid.UUID, int) ([]vitals.VitalView, error) {
	return s.history, nil
}

func (s *stubSources) CountCriticalSince(_ context.Context, since time.Time) (int, error) {
	s.since = since
	return len(s.critical), nil
}

func (s *stubSources) OpenTasks(context.Context, uuid.UUID) ([]*task.Task, error) { return s.tasks, nil }

func (s *stubSources) ListCritical(context.Context, uuid.UUID, int) ([]*notification.Notification, error) {
	return nil, nil
}

func (s *stubSources) CountUnread(context.Context, uuid.UUID) (int, error) { return s.unread, nil }

func (s *stubSources) CountPending(context.Context) (int, error) { return s.pending, nil }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *stubSources) {
	mid := uuid.New()
	pid := uuid.New()
	stub := &stubSources{
		caregiver: &identity.Mitarbeiter{ID: mid, Username: "anna", Name: "Anna Pflege"},
		patient:   &identity.Patient{ID: pid, Username: "erika", Name: "Erika Muster", Room: "12"},
		assigned:  []assignment.AssignedPatient{{PatientID: pid, Name: "Erika Muster", Room: "12"}},
		owner:     map[uuid.UUID]uuid.UUID{pid: mid},
		critical:  []vitals.VitalView{{Status: "Kritisch"}},
		history:   []vitals.VitalView{{Status: "Kritisch"}, {Status: "Normal"}},
		tasks:     []*task.Task{{Title: "Verband", Status: task.StatusOpen}},
		unread:    2,
		pending:   3,
	}
	src := Sources{People: stub, Assignments: stub, Vitals: stub, Tasks: stub, Notifications: stub, Transfers: stub}
	svc := NewService(src, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, stub
}

func TestCaregiverDashboard(t *testing.T) {
	svc, stub := newTestService()
	d, err := svc.Caregiver(context.Background(), stub.caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.PatientCount)
	assert.Equal(t, 23, d.RemainingCapacity)
	assert.Len(t, d.CriticalVitals, 1)
	assert.Len(t, d.OpenTasks, 1)
	assert.Equal(t, 2, d.UnreadNotifications)
	assert.NotNil(t, d.Notifications)
	assert.Equal(t, fixedNow.Add(-CriticalWindow), stub.since)

	_, err = svc.Caregiver(context.Background(), uuid.New())
	assert.ErrorIs(t, err, identity.ErrMitarbeiterNotFound)
}

func TestPatientDashboard(t *testing.T) {
	svc, stub := newTestService()
	d, err := svc.Patient(context.Background(), stub.patient.ID)
	require.NoError(t, err)
	require.NotNil(t, d.Caregiver)
	assert.Equal(t, "anna", d.Caregiver.Username)
	require.NotNil(t, d.Latest)
	assert.Equal(t, "Kritisch", d.Latest.Status)
	assert.Len(t, d.History, 2)

	delete(stub.owner, stub.patient.ID)
	d, err = svc.Patient(context.Background(), stub.patient.ID)
	require.NoError(t, err)
	assert.Nil(t, d.Caregiver)
}

func TestAdminDashboard_Cached(t *testing.T) {
	svc, stub := newTestService()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	c := cache.NewRedisFromClient(client, 30*time.Second)
	svc.SetCache(c)
	ctx := context.Background()

	d, err := svc.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, AdminTotals{
		Caregivers:         1,
		Patients:           5,
		ActiveAssignments:  1,
		UnassignedPatients: 4,
		PendingTransfers:   3,
		CriticalVitals24h:  1,
	}, d.Totals)

	stub.pending = 9
	d, err = svc.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Totals.PendingTransfers, "second call served from cache")
	assert.Equal(t, 1, stub.statsCall)

	require.NoError(t, c.Delete(ctx, cache.KeyAdminDashboard))
	d, err = svc.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, d.Totals.PendingTransfers)

	mr.FastForward(time.Minute)
	stub.pending = 11
	d, err = svc.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, d.Totals.PendingTransfers, "entry expired after TTL")
}

func TestHandler_NotFoundAndBadID(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("patientId")
	c.SetParamValues(uuid.NewString())
	err := h.Patient(c)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("mitarbeiterId")
	c.SetParamValues("nope")
	err = h.Caregiver(c)
	httpErr, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestHandler_Admin(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Admin(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending_transfers":3`)
}
