package discharge

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/patient"
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
	g := api.Group("/discharge", auth.RequireRole(auth.RolePhysician, auth.RoleNurse))
	g.GET("/active", h.ListActive)
	g.GET("/select", h.GetSelected)
	g.POST("/select", h.Select)
	g.DELETE("/select", h.ClearSelection)
	g.POST("", h.ProcessDischarge)
}

func (h *Handler) ListActive(c echo.Context) error {
	h.svc.FetchActive(c.Request().Context())
	st := h.svc.Snapshot()

	resp := pagination.Of(st.Items, pagination.FromContext(c))
	return c.JSON(resp.Settle(st.Loading, st.Error), resp)
}

func (h *Handler) GetSelected(c echo.Context) error {
	sel := h.svc.Selected()
	if sel == nil {
		return echo.NewHTTPError(http.StatusNotFound, ErrNoPatientSelected.Error())
	}
	return c.JSON(http.StatusOK, sel)
}

func (h *Handler) Select(c echo.Context) error {
	var body struct {
		UnifiedID string `json:"unified_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.UnifiedID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "unified_id is required")
	}
	p, err := h.svc.SelectByUnifiedID(body.UnifiedID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ClearSelection(c echo.Context) error {
	h.svc.ClearSelection()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ProcessDischarge(c echo.Context) error {
	var data DischargeData
	if err := c.Bind(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// The selection is shared by every client, so the request must say which
	// record it is for.
	if data.UnifiedID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "unified_id is required")
	}
	if err := h.svc.ProcessDischarge(c.Request().Context(), data); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNoPatientSelected), errors.Is(err, ErrNoUserLoggedIn):
		return echo.NewHTTPError(http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSelectionChanged), errors.Is(err, patient.ErrInvalidTransition), errors.Is(err, consultation.ErrNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidData):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
