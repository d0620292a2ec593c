package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		target string
		want   Params
	}{
		{"/", Params{Limit: DefaultLimit}},
		{"/?limit=50&offset=10", Params{Limit: 50, Offset: 10}},
		{"/?_count=25&_offset=5", Params{Limit: 25, Offset: 5}},
		{"/?_count=25&limit=7", Params{Limit: 25}},
		{"/?limit=500", Params{Limit: MaxLimit}},
		{"/?offset=-5", Params{Limit: DefaultLimit}},
		{"/?limit=abc&offset=xyz", Params{Limit: DefaultLimit}},
	}
	for _, tt := range tests {
		if got := paramsFor(tt.target); got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.target, got, tt.want)
		}
	}
}

func TestParams_Offsets(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if !p.HasNext(16) || p.HasNext(15) {
		t.Error("HasNext boundary wrong")
	}
	if !p.HasPrevious() || (Params{Limit: 10}).HasPrevious() {
		t.Error("HasPrevious wrong")
	}
	if p.NextOffset() != 15 || p.PreviousOffset() != 0 {
		t.Errorf("next/previous = %d/%d", p.NextOffset(), p.PreviousOffset())
	}
}

func TestParams_Links(t *testing.T) {
	links := Params{Limit: 10, Offset: 10}.Links("/api/v1/records", 25)
	want := map[string]string{
		"self":     "/api/v1/records?_offset=10&_count=10",
		"next":     "/api/v1/records?_offset=20&_count=10",
		"previous": "/api/v1/records?_offset=0&_count=10",
	}
	for k, v := range want {
		if links[k] != v {
			t.Errorf("%s = %q, want %q", k, links[k], v)
		}
	}

	last := Params{Limit: 10}.Links("/x", 3)
	if _, ok := last["next"]; ok {
		t.Error("unexpected next link on the only page")
	}
	if _, ok := last["previous"]; ok {
		t.Error("unexpected previous link on the first page")
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a"}, 30, Params{Limit: 10, Offset: 20}).WithLinks("/r")
	if r.HasMore || r.Total != 30 || r.Limit != 10 || r.Offset != 20 {
		t.Errorf("response = %+v", r)
	}
	if r.Links["previous"] != "/r?_offset=10&_count=10" {
		t.Errorf("links = %v", r.Links)
	}
}
