package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ExposesCounters(t *testing.T) {
	ResolveTotal.WithLabelValues("cache", "ok").Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `arqmon_resolve_total{outcome="ok",source="cache"}`) {
		t.Fatalf("counter missing from exposition:\n%s", rec.Body.String())
	}
}
