package record

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirextract/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/records", h.IngestBundle)
	api.GET("/records", h.ListRecords)
	api.GET("/records/:patient_id", h.GetRecord)
	api.GET("/records/:patient_id/conditions/active", h.ActiveConditions)
	api.GET("/records/:patient_id/medications/current", h.CurrentMedications)
	api.GET("/records/:patient_id/events/:date", h.EventsForDate)
	api.GET("/records/:patient_id/encounters/:encounter_id/context", h.EncounterContext)
}

// httpError maps service errors onto HTTP statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrStructural):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoPatient):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient record not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) IngestBundle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read request body").SetInternal(err)
	}
	rec, err := h.svc.IngestBundle(c.Request().Context(), body)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Location", "/api/v1/records/"+rec.Patient.ID)
	return c.JSON(http.StatusCreated, Summarize(rec, h.svc.AsOf()))
}

func (h *Handler) ListRecords(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSummaries(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL.Path))
}

func (h *Handler) GetRecord(c echo.Context) error {
	s, err := h.svc.GetSummary(c.Request().Context(), c.Param("patient_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) ActiveConditions(c echo.Context) error {
	items, err := h.svc.ActiveConditions(c.Request().Context(), c.Param("patient_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CurrentMedications(c echo.Context) error {
	items, err := h.svc.CurrentMedications(c.Request().Context(), c.Param("patient_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) EventsForDate(c echo.Context) error {
	bucket, err := h.svc.EventsForDate(c.Request().Context(), c.Param("patient_id"), c.Param("date"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bucket)
}

// EncounterContext answers 200 with {} for an unknown encounter of a known
// patient.
func (h *Handler) EncounterContext(c echo.Context) error {
	ctx, err := h.svc.EncounterContext(c.Request().Context(), c.Param("patient_id"), c.Param("encounter_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ctx)
}
