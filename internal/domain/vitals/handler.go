package vitals

import (
	"errors"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pflege/pflege/internal/platform/auth"
	"github.com/pflege/pflege/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/health/data", h.Record, auth.RequireRole(auth.RoleMitarbeiter))
	api.GET("/health/data/:patientId", h.History, auth.RequireSelfOrRole("patientId", auth.RoleMitarbeiter))

	pk := api.Group("/pflegekraft", auth.RequireRole(auth.RoleMitarbeiter))
	pk.GET("/patients-with-vitals/:id", h.PatientsWithVitals)
	pk.GET("/recent-vital-data/:id", h.RecentForCaregiver)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) Record(c echo.Context) error {
	var v Vital
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	// A caregiver records under their own id. Admin tokens carry no
	// caregiver identity and keep whatever the body names.
	ctx := c.Request().Context()
	if slices.Contains(auth.RolesFromContext(ctx), auth.RoleMitarbeiter) {
		if uid, err := uuid.Parse(auth.UserIDFromContext(ctx)); err == nil {
			v.MitarbeiterID = &uid
		}
	}

	res, err := h.svc.RecordVitals(ctx, &v)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":  true,
		"data":     res.Vital,
		"critical": res.Critical,
		"severity": res.Severity,
		"status":   res.Status,
		"findings": res.Findings,
	})
}

func (h *Handler) History(c echo.Context) error {
	pid, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	pg := pagination.FromContextWithDefault(c, defaultHistoryLimit)
	items, err := h.svc.HistoryForPatient(c.Request().Context(), pid, pg.Limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items, "count": len(items)})
}

func (h *Handler) PatientsWithVitals(c echo.Context) error {
	mid, err := parseID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.PatientsWithVitals(c.Request().Context(), mid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items, "count": len(items)})
}

func (h *Handler) RecentForCaregiver(c echo.Context) error {
	mid, err := parseID(c, "id")
	if err != nil {
		return err
	}
	pg := pagination.FromContextWithDefault(c, defaultHistoryLimit)
	items, err := h.svc.RecentForCaregiver(c.Request().Context(), mid, pg.Limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items, "count": len(items)})
}
