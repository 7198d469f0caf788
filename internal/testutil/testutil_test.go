package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAssertHelpers(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
}

func TestNewJSONRequest(t *testing.T) {
	t.Parallel()

	req := NewJSONRequest(t, http.MethodPost, "/api/chart", map[string]int{"year": 2010})
	if req.Method != http.MethodPost || req.URL.Path != "/api/chart" {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}

	rec := httptest.NewRecorder()
	rec.WriteString(`{"year": 2010}`)
	var got map[string]int
	DecodeJSON(t, rec, &got)
	if got["year"] != 2010 {
		t.Errorf("year = %d, want 2010", got["year"])
	}
}

func TestFixtures(t *testing.T) {
	t.Parallel()

	if n := Counties().Len(); n != 3 {
		t.Errorf("counties = %d, want 3", n)
	}
	facts := Facts()
	if n := facts.Len(); n != 7 {
		t.Errorf("records = %d, want 7", n)
	}
	if len(facts.ForCountyYear("01001", 2010)) != 2 {
		t.Error("expected two Autauga rows for 2010")
	}
}
