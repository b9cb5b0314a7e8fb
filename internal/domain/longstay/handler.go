package longstay

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/ward/internal/platform/auth"
	"github.com/ehr/ward/internal/platform/blobstore"
	"github.com/ehr/ward/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports", auth.RequireRole(auth.RolePhysician, auth.RoleNurse))
	g.GET("/long-stay", h.ExportReport)
	g.GET("/long-stay/patients", h.ListPatients)
	g.GET("/archive", h.ListArchive)
	g.GET("/archive/:name", h.DownloadArchived)
}

// ExportReport answers with the PDF as an attachment.
func (h *Handler) ExportReport(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	exp, err := h.svc.Export(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if exp.Stale {
		c.Response().Header().Set("X-Data-Stale", "true")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exp.FileName+`"`)
	return c.Blob(http.StatusOK, "application/pdf", exp.Data)
}

// ListPatients previews the rows the report would contain.
func (h *Handler) ListPatients(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	h.svc.patients.FetchPatients(c.Request().Context())
	st := h.svc.patients.Snapshot()

	resp := pagination.Of(h.svc.Select(f), pagination.FromContext(c))
	return c.JSON(resp.Settle(st.Loading, st.Error), resp)
}

func (h *Handler) ListArchive(c echo.Context) error {
	objs, err := h.svc.Archived(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if objs == nil {
		objs = []blobstore.Object{}
	}
	return c.JSON(http.StatusOK, objs)
}

func (h *Handler) DownloadArchived(c echo.Context) error {
	name := c.Param("name")
	obj, data, err := h.svc.Download(c.Request().Context(), name)
	if errors.Is(err, blobstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, obj.ContentType, data)
}

func filterFromQuery(c echo.Context) (Filter, error) {
	f := Filter{Specialty: c.QueryParam("specialty")}
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return Filter{}, echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		f.DoctorID = id
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Filter{}, echo.NewHTTPError(http.StatusBadRequest, "invalid "+p.name+" date, expected YYYY-MM-DD")
		}
		*p.dst = &t
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return Filter{}, echo.NewHTTPError(http.StatusBadRequest, "to is before from")
	}
	return f, nil
}
