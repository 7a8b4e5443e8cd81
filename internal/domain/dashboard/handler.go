package dashboard

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pflege/pflege/internal/domain/identity"
	"github.com/pflege/pflege/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard/:mitarbeiterId", h.Caregiver, auth.RequireRole(auth.RoleMitarbeiter))
	api.GET("/patient/dashboard/:patientId", h.Patient, auth.RequireSelfOrRole("patientId", auth.RoleMitarbeiter))
	api.GET("/admin/dashboard", h.Admin, auth.RequireRole(auth.RoleAdmin))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, identity.ErrMitarbeiterNotFound), errors.Is(err, identity.ErrPatientNotFound):
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

func (h *Handler) Caregiver(c echo.Context) error {
	id, err := parseID(c, "mitarbeiterId")
	if err != nil {
		return err
	}
	d, err := h.svc.Caregiver(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": d})
}

func (h *Handler) Patient(c echo.Context) error {
	id, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	d, err := h.svc.Patient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": d})
}

func (h *Handler) Admin(c echo.Context) error {
	d, err := h.svc.Admin(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": d})
}
