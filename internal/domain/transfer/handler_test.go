package transfer

import (
	"context"
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

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected echo.HTTPError, got %T (%v)", err, err)
	assert.Equal(t, code, httpErr.Code)
}

func TestHandler_CreateUsesCaller(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	caller := uuid.New()

	body := `{"patient_id":"` + f.patient.ID.String() + `","desired_location":"Station 2","reason":"Reha"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, caller.String()))
	rec := httptest.NewRecorder()

	require.NoError(t, h.Create(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), caller.String())
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}

func TestHandler_CreateIgnoresForeignRequester(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	caller, other := uuid.New(), uuid.New()

	body := `{"requester_id":"` + other.String() + `","patient_id":"` + f.patient.ID.String() + `","desired_location":"Station 2","reason":"Reha"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, caller.String())
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{auth.RoleMitarbeiter})
	rec := httptest.NewRecorder()

	require.NoError(t, h.Create(e.NewContext(req.WithContext(ctx), rec)))
	assert.Contains(t, rec.Body.String(), `"requester_id":"`+caller.String()+`"`)
	assert.NotContains(t, rec.Body.String(), other.String())
}

func TestHandler_ApproveTwiceConflicts(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	r := f.request(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPut, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())
	require.NoError(t, h.Approve(c))
	assert.Contains(t, rec.Body.String(), `"status":"approved"`)

	c = e.NewContext(httptest.NewRequest(http.MethodPut, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())
	expectStatus(t, h.Approve(c), http.StatusConflict)
}

func TestHandler_RejectWithNote(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	r := f.request(t)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"note":"kein Bett frei"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())
	require.NoError(t, h.Reject(c))
	assert.Contains(t, rec.Body.String(), "kein Bett frei")
}

func TestHandler_ListAndGet(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	r := f.request(t)

	rec := httptest.NewRecorder()
	require.NoError(t, h.List(e.NewContext(httptest.NewRequest(http.MethodGet, "/?status=pending", nil), rec)))
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())
	require.NoError(t, h.Get(c))

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	expectStatus(t, h.Get(c), http.StatusNotFound)
}
