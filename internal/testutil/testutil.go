// Package testutil provides shared test helpers and sensor fixtures.
package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// DecodeJSON decodes a recorded JSON response into v, failing the test if
// the body is not JSON.
func DecodeJSON(t testing.TB, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content-type = %q, want application/json (body %q)", ct, rec.Body.String())
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
