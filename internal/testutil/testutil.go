// Package testutil provides shared test utilities and fixtures.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/mortality.report/internal/county"
	"github.com/banshee-data/mortality.report/internal/mortality"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewJSONRequest creates a test request whose body is v encoded as JSON.
func NewJSONRequest(t *testing.T, method, path string, v interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encode request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON decodes a recorded response body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// Counties is a small county reference table: two Alabama counties and
// Los Angeles.
func Counties() *county.Table {
	return county.NewTable([]county.Ref{
		{ID: "01001", Latitude: 32.5349, Longitude: -86.6428, Label: "Autauga County, Alabama<br>01001"},
		{ID: "01003", Latitude: 30.7277, Longitude: -87.7226, Label: "Baldwin County, Alabama<br>01003"},
		{ID: "06037", Latitude: 34.3209, Longitude: -118.2248, Label: "Los Angeles County, California<br>06037"},
	})
}

// Facts is a fact table over Counties covering 2010 and 2011, including an
// unreliable rate and an invalid one.
func Facts() *mortality.Table {
	const (
		autauga = "Alabama, Autauga County"
		baldwin = "Alabama, Baldwin County"
		la      = "California, Los Angeles County"
	)
	deaths := func(v float64) mortality.Measure { return mortality.Measure{Value: v, Valid: true} }
	return mortality.NewTable([]mortality.Record{
		{CountyID: "01001", Year: 2010, Deaths: deaths(5), Rate: mortality.Numeric(12.3), Label: autauga},
		{CountyID: "01001", Year: 2010, Deaths: deaths(3), Rate: mortality.Unreliable(4.5), Label: autauga},
		{CountyID: "01001", Year: 2011, Deaths: deaths(4), Rate: mortality.Numeric(8), Label: autauga},
		{CountyID: "01003", Year: 2010, Deaths: deaths(20), Rate: mortality.Numeric(10.1), Label: baldwin},
		{CountyID: "01003", Year: 2011, Rate: mortality.Invalid(), Label: baldwin},
		{CountyID: "06037", Year: 2010, Deaths: deaths(1204), Rate: mortality.Numeric(9.1), Label: la},
		{CountyID: "06037", Year: 2011, Deaths: deaths(1190), Rate: mortality.Numeric(8.8), Label: la},
	})
}
