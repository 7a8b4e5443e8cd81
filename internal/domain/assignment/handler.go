package assignment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pflege/pflege/internal/platform/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/assigned/:mitarbeiterId", h.AssignedPatients, auth.RequireRole(auth.RoleMitarbeiter))

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/zuweisung/workload", h.Workload)
	admin.GET("/zuweisung/statistics", h.Statistics)
	admin.POST("/zuweisung/assign/:patientId", h.AssignPatient)
	admin.POST("/zuweisung/transfer/:patientId", h.TransferPatient)
	admin.POST("/zuweisung/initial", h.InitialAssignment)
	admin.GET("/statistics/export", h.ExportStatistics)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPatientNotFound), errors.Is(err, ErrNoActiveAssignment):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyAssigned), errors.Is(err, ErrCapacityExhausted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
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

func (h *Handler) Workload(c echo.Context) error {
	items, err := h.svc.Workload(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []Workload{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "capacity": h.svc.Capacity(), "data": items})
}

func (h *Handler) Statistics(c echo.Context) error {
	stats, err := h.svc.GetStatistics(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": stats})
}

func (h *Handler) AssignPatient(c echo.Context) error {
	pid, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	res, err := h.svc.AssignPatient(c.Request().Context(), pid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": res})
}

type transferRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) TransferPatient(c echo.Context) error {
	pid, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	var req transferRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	res, err := h.svc.TransferPatient(c.Request().Context(), pid, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": res})
}

func (h *Handler) InitialAssignment(c echo.Context) error {
	summary, err := h.svc.PerformInitialAssignment(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": summary})
}

func (h *Handler) ExportStatistics(c echo.Context) error {
	data, err := h.svc.ExportStatistics(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	filename := fmt.Sprintf("zuweisung-statistik-%s.xlsx", h.svc.now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) AssignedPatients(c echo.Context) error {
	mid, err := parseID(c, "mitarbeiterId")
	if err != nil {
		return err
	}
	items, err := h.svc.AssignedPatients(c.Request().Context(), mid)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []AssignedPatient{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"data":      items,
		"count":     len(items),
		"remaining": max(h.svc.Capacity()-len(items), 0),
	})
}
