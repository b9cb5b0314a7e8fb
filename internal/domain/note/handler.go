package note

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
	g.GET("/patients/:id/notes", h.ListNotes)
	g.POST("/patients/:id/notes", h.AddNote)
}

func (h *Handler) ListNotes(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	h.svc.FetchNotes(c.Request().Context(), id)
	st := h.svc.Snapshot()

	items := st.Items
	if t := c.QueryParam("type"); t != "" {
		filtered := make([]Note, 0, len(items))
		for _, n := range items {
			if n.NoteType == t {
				filtered = append(filtered, n)
			}
		}
		items = filtered
	}

	resp := pagination.Of(items, pagination.FromContext(c))
	return c.JSON(resp.Settle(st.Loading, st.Error), resp)
}

// AddNote appends a note authored by the logged in actor.
func (h *Handler) AddNote(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no staff member logged in")
	}
	var body struct {
		NoteType string `json:"note_type"`
		Content  string `json:"content"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in := CreateInput{PatientID: id, DoctorID: actor.ID, NoteType: body.NoteType, Content: body.Content}
	if err := in.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, err := h.svc.AddNote(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidType) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, n)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return id, nil
}
