package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusCollectorExposesIncrementedCounter(t *testing.T) {
	c := NewPrometheusCollector(nil)
	c.IncCounter(RequestsTotal, map[string]string{"kind": "append"}, 1)
	c.IncCounter(RequestsTotal, map[string]string{"kind": "append"}, 2)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, RequestsTotal) {
		t.Fatalf("exposed metrics missing %s:\n%s", RequestsTotal, body)
	}
	if !strings.Contains(body, `kind="append"`) {
		t.Fatalf("exposed metrics missing kind label:\n%s", body)
	}
}

func TestPrometheusCollectorGaugeAndHistogram(t *testing.T) {
	c := NewPrometheusCollector(nil)
	c.SetGauge(CoordinatorsInFlight, nil, 3)
	c.ObserveHistogram(QueryFanoutSeconds, map[string]string{"kind": "query"}, 0.05)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, CoordinatorsInFlight) {
		t.Fatalf("exposed metrics missing %s:\n%s", CoordinatorsInFlight, body)
	}
	if !strings.Contains(body, QueryFanoutSeconds+"_bucket") {
		t.Fatalf("exposed metrics missing histogram buckets:\n%s", body)
	}
}

func TestNoopCollectorDoesNotPanic(t *testing.T) {
	var c NoopCollector
	c.IncCounter("x", nil, 1)
	c.SetGauge("y", nil, 1)
	c.ObserveHistogram("z", nil, 1)
}
