package flatten

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirextract/internal/domain/record"
)

// Handler serves flattened rows of stored records.
type Handler struct {
	records *record.Service
}

func NewHandler(records *record.Service) *Handler {
	return &Handler{records: records}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/records/:patient_id/rows", h.ListDatasets)
	api.GET("/records/:patient_id/rows/:dataset", h.GetRows)
}

// ListDatasets returns the row count of every dataset for one patient.
func (h *Handler) ListDatasets(c echo.Context) error {
	rs, err := h.flatten(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rs.Counts())
}

func (h *Handler) GetRows(c echo.Context) error {
	d, ok := ParseDataset(c.Param("dataset"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown dataset")
	}
	rs, err := h.flatten(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rs.Rows(d))
}

func (h *Handler) flatten(c echo.Context) (*RowSet, error) {
	rec, err := h.records.GetRecord(c.Request().Context(), c.Param("patient_id"))
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "patient record not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return Flatten(rec, h.records.AsOf()), nil
}
