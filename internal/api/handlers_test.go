package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON_BodilessReplyCarriesNoContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusNoContent, nil)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "" {
		t.Fatalf("bodiless reply must not set Content-Type, got %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("bodiless reply must have an empty body, got %q", rec.Body.String())
	}
}

func TestWriteJSON_BodyReplySetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]string{"status": "ok"})

	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json, got %q", got)
	}
}
