package vitals

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pflege/pflege/internal/platform/auth"
)

func asCaregiver(req *http.Request, id uuid.UUID) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, id.String())
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{auth.RoleMitarbeiter})
	return req.WithContext(ctx)
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected echo.HTTPError, got %T (%v)", err, err)
	assert.Equal(t, code, httpErr.Code)
}

func TestHandler_Record(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	body := `{"patient_id":"` + f.patient.ID.String() + `","systolic":190,"diastolic":95}`
	req := httptest.NewRequest(http.MethodPost, "/api/health/data", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = asCaregiver(req, f.caregiver)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Record(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success  bool   `json:"success"`
		Critical bool   `json:"critical"`
		Status   string `json:"status"`
		Data     Vital  `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Critical)
	assert.Equal(t, "Kritisch", resp.Status)
	require.NotNil(t, resp.Data.MitarbeiterID)
	assert.Equal(t, f.caregiver, *resp.Data.MitarbeiterID)
}

func TestHandler_Record_Invalid(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patient_id":"`+f.patient.ID.String()+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	expectStatus(t, h.Record(e.NewContext(req, httptest.NewRecorder())), http.StatusBadRequest)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patient_id":"`+uuid.NewString()+`","pulse":80}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	expectStatus(t, h.Record(e.NewContext(req, httptest.NewRecorder())), http.StatusNotFound)
}

func TestHandler_History(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	_, err := f.svc.RecordVitals(context.Background(), &Vital{PatientID: f.patient.ID, Pulse: intp(80)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=5", nil), rec)
	c.SetParamNames("patientId")
	c.SetParamValues(f.patient.ID.String())
	require.NoError(t, h.History(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Normal"`)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("patientId")
	c.SetParamValues("abc")
	expectStatus(t, h.History(c), http.StatusBadRequest)
}

func TestHandler_CaregiverListings(t *testing.T) {
	f := newFixture()
	f.assignments.byPatient[f.patient.ID] = f.caregiver
	h := NewHandler(f.svc)
	e := echo.New()
	_, err := f.svc.RecordVitals(context.Background(), &Vital{PatientID: f.patient.ID, Systolic: intp(190)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(f.caregiver.String())
	require.NoError(t, h.RecentForCaregiver(c))
	assert.Contains(t, rec.Body.String(), `"status":"Kritisch"`)
	assert.Contains(t, rec.Body.String(), `"patient_name":"Erika Muster"`)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(f.caregiver.String())
	require.NoError(t, h.PatientsWithVitals(c))
	assert.Contains(t, rec.Body.String(), `"count":1`)
}
