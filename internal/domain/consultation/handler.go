package consultation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/ward/internal/platform/auth"
	"github.com/ehr/ward/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleNurse))
	g.GET("/consultations", h.ListConsultations)
	g.POST("/consultations", h.CreateConsultation)
	g.POST("/consultations/:id/cancel", h.CancelConsultation)
}

func (h *Handler) ListConsultations(c echo.Context) error {
	h.svc.FetchConsultations(c.Request().Context())
	st := h.svc.Snapshot()

	items := st.Items
	if status := c.QueryParam("status"); status != "" {
		filtered := make([]Consultation, 0, len(items))
		for _, it := range items {
			if string(it.Status) == status {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	resp := pagination.Of(items, pagination.FromContext(c))
	return c.JSON(resp.Settle(st.Loading, st.Error), resp)
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := in.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.CreateConsultation(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) CancelConsultation(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	out, err := h.svc.CancelConsultation(c.Request().Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}
