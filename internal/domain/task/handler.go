package task

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pflege/pflege/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts tasks under /assignments, the path the ward
// frontend uses for them.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/assignments", auth.RequireRole(auth.RoleMitarbeiter))
	g.POST("", h.CreateTask)
	g.GET("/mitarbeiter/:mitarbeiterId", h.ListByMitarbeiter)
	g.GET("/:id", h.GetTask)
	g.PUT("/:id/status", h.UpdateStatus)
	g.DELETE("/:id", h.DeleteTask)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
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

func (h *Handler) CreateTask(c echo.Context) error {
	var t Task
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if t.MitarbeiterID == uuid.Nil {
		if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
			t.MitarbeiterID = uid
		}
	}
	if err := h.svc.CreateTask(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": t})
}

func (h *Handler) GetTask(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.GetTask(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": t})
}

func (h *Handler) ListByMitarbeiter(c echo.Context) error {
	mid, err := parseID(c, "mitarbeiterId")
	if err != nil {
		return err
	}
	items, err := h.svc.ListTasksByMitarbeiter(c.Request().Context(), mid, c.QueryParam("status"))
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Task{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items, "count": len(items)})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": t})
}

func (h *Handler) DeleteTask(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTask(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
