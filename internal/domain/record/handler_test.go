package record

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	t.Helper()
	svc := newTestService()
	if _, err := svc.IngestBundle(context.Background(), []byte(fullBundle)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewHandler(svc), echo.New()
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestHandler_IngestBundle(t *testing.T) {
	h, e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader(patientBundle("p2")))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.IngestBundle(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var s Summary
	json.Unmarshal(rec.Body.Bytes(), &s)
	if s.PatientID != "p2" {
		t.Errorf("expected p2, got %s", s.PatientID)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/v1/records/p2" {
		t.Errorf("Location = %q", loc)
	}
}

func TestHandler_IngestBundle_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"structural", `{"entry": 42}`, http.StatusBadRequest},
		{"not json", `nope`, http.StatusBadRequest},
		{"no patient", `{"entry": [{"resource": {"resourceType": "Encounter", "id": "e1"}}]}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e := newTestHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader(tt.body))
			c := e.NewContext(req, httptest.NewRecorder())
			if got := statusOf(h.IngestBundle(c)); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandler_GetRecord(t *testing.T) {
	h, e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patient_id")
	c.SetParamValues("p1")

	if err := h.GetRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("patient_id")
	c.SetParamValues("ghost")
	if got := statusOf(h.GetRecord(c)); got != http.StatusNotFound {
		t.Errorf("unknown patient status = %d, want 404", got)
	}
}

func TestHandler_ListRecords(t *testing.T) {
	h, e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records?limit=5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListRecords(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []Summary         `json:"data"`
		Total int               `json:"total"`
		Limit int               `json:"limit"`
		Links map[string]string `json:"links"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 1 || len(body.Data) != 1 || body.Limit != 5 {
		t.Errorf("unexpected page: %s", rec.Body.String())
	}
	if body.Links["self"] != "/api/v1/records?_offset=0&_count=5" || body.Links["next"] != "" {
		t.Errorf("links = %v", body.Links)
	}
}

func TestHandler_EventsForDate(t *testing.T) {
	h, e := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("patient_id", "date")
	c.SetParamValues("p1", "2020-05-01")

	if err := h.EventsForDate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var bucket map[string][]json.RawMessage
	json.Unmarshal(rec.Body.Bytes(), &bucket)
	if len(bucket["encounters"]) != 1 || len(bucket["observations"]) != 1 {
		t.Errorf("unexpected bucket: %s", rec.Body.String())
	}
	if bucket["procedures"] == nil {
		t.Error("empty kinds should be [] not null")
	}
}

func TestHandler_EncounterContext(t *testing.T) {
	h, e := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("patient_id", "encounter_id")
	c.SetParamValues("p1", "e1")
	if err := h.EncounterContext(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"active_problems"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_EncounterContext_Unknown(t *testing.T) {
	h, e := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("patient_id", "encounter_id")
	c.SetParamValues("p1", "nope")
	if err := h.EncounterContext(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "{}" {
		t.Errorf("body = %s, want {}", got)
	}
}

func TestHandler_ActiveConditionsAndMedications(t *testing.T) {
	h, e := newTestHandler(t)

	for name, fn := range map[string]echo.HandlerFunc{
		"conditions":  h.ActiveConditions,
		"medications": h.CurrentMedications,
	} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.SetParamNames("patient_id")
		c.SetParamValues("p1")
		if err := fn(c); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		var items []map[string]any
		json.Unmarshal(rec.Body.Bytes(), &items)
		if len(items) != 1 {
			t.Errorf("%s: got %d items", name, len(items))
		}
	}
}
