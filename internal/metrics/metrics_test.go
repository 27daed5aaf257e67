package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordersAndExposition(t *testing.T) {
	m := New()

	m.RecordHTTPRequest("POST", "/execute", 200, 12*time.Millisecond)
	m.RecordExecution("command", OutcomeSuccess, 5*time.Millisecond)
	m.RecordExecution("tool", OutcomeTimeout, time.Second)
	m.RecordAdmissionDenied("concurrency")
	m.RecordValidationRejected("policy")
	m.RecordAuthFailure("api_key")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`cmdgate_http_requests_total{method="POST",route="/execute",status="200"} 1`,
		`cmdgate_executions_total{kind="command",outcome="success"} 1`,
		`cmdgate_executions_total{kind="tool",outcome="timeout"} 1`,
		`cmdgate_admission_denied_total{cause="concurrency"} 1`,
		`cmdgate_validation_rejected_total{kind="policy"} 1`,
		`cmdgate_auth_failures_total{method="api_key"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestRegisterGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWith(reg)
	RegisterGauges(reg, GaugeSource{
		Active:      func() float64 { return 3 },
		MemoryMB:    func() float64 { return 42 },
		PoolBusy:    func() float64 { return 1 },
		PoolWorkers: 10,
	})

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	got := map[string]float64{}
	for _, f := range families {
		if f.GetType().String() == "GAUGE" {
			got[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	want := map[string]float64{
		"cmdgate_active_requests":           3,
		"cmdgate_resident_memory_megabytes": 42,
		"cmdgate_pool_busy_workers":         1,
		"cmdgate_pool_workers":              10,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %v, want %v", name, got[name], v)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	m.RecordExecution("command", OutcomeFailure, time.Millisecond)
	m.RecordAdmissionDenied("memory")
	m.RecordValidationRejected("request")
	m.RecordAuthFailure("bearer")
	if m.Gatherer() != nil {
		t.Error("nil Metrics should have nil Gatherer")
	}
}
