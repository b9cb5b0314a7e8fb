package specialty

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/ward/internal/domain/appointment"
	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/patient"
	"github.com/ehr/ward/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/specialties", auth.RequireRole(auth.RolePhysician, auth.RoleNurse, auth.RoleRegistrar))
	g.GET("/board", h.GetBoard)
	g.POST("/patients/:id/view", h.ViewPatient)
	g.POST("/consultations/:id/view", h.ViewConsultation)
	g.POST("/appointments/view", h.ViewAppointments)
	g.GET("/patients/:id/share", h.SharePatient)
	g.GET("/consultations/:id/share", h.ShareConsultation)
	g.GET("/appointments/:id/share", h.ShareAppointment)
}

type boardResponse struct {
	Board
	Stale  bool              `json:"stale,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// GetBoard refreshes the stores behind the board. Stores that failed to
// refresh contribute their cached rows and the board answers 502.
func (h *Handler) GetBoard(c echo.Context) error {
	errs := h.svc.Refresh(c.Request().Context())
	resp := boardResponse{Board: h.svc.Board(c.QueryParam("specialty"))}
	if len(errs) > 0 {
		resp.Stale = true
		resp.Errors = errs
		return c.JSON(http.StatusBadGateway, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ViewPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.ViewPatient(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ViewConsultation(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.ViewConsultation(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ViewAppointments(c echo.Context) error {
	h.svc.ViewAppointments()
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) SharePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.patients.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.String(http.StatusOK, ShareText(p))
}

func (h *Handler) ShareConsultation(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cons, ok := h.svc.consultations.Find(id)
	if !ok {
		return httpError(consultation.ErrNotFound)
	}
	return c.String(http.StatusOK, ShareText(h.svc.ConsultationAsPatient(cons)))
}

func (h *Handler) ShareAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, ok := h.svc.appointments.Find(id)
	if !ok {
		return httpError(appointment.ErrNotFound)
	}
	return c.String(http.StatusOK, AppointmentShareText(a))
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, patient.ErrNotFound), errors.Is(err, consultation.ErrNotFound), errors.Is(err, appointment.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
