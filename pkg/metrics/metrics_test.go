package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.TraversalDuration == nil {
		t.Error("TraversalDuration not initialized")
	}
	if r.VerticesVisited == nil {
		t.Error("VerticesVisited not initialized")
	}
	if r.PhaseDuration == nil {
		t.Error("PhaseDuration not initialized")
	}
	if r.MessagesTotal == nil {
		t.Error("MessagesTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestObserveTraversal(t *testing.T) {
	r := NewRegistry()

	r.ObserveTraversal(0, true, 50*time.Millisecond, 2500)
	r.ObserveTraversal(0, false, 20*time.Millisecond, 100)

	visited, err := r.VerticesVisited.GetMetricWithLabelValues("0")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := visited.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2600 {
		t.Errorf("VerticesVisited = %v, want 2600", metric.Counter.GetValue())
	}

	found, err := r.TraversalsTotal.GetMetricWithLabelValues("found")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if err := found.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("TraversalsTotal{found} = %v, want 1", metric.Counter.GetValue())
	}
}

func TestObservePhase(t *testing.T) {
	r := NewRegistry()

	r.ObservePhase("interior", 10*time.Millisecond)
	r.ObservePhase("interior", 30*time.Millisecond)
	r.ObservePhase("boundary", 5*time.Millisecond)

	hist, err := r.PhaseDuration.GetMetricWithLabelValues("interior")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := hist.(prometheus.Metric).Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("PhaseDuration{interior} samples = %v, want 2", metric.Histogram.GetSampleCount())
	}
}

func TestObserveMessage(t *testing.T) {
	r := NewRegistry()

	r.ObserveMessage("send", "count", 4)
	r.ObserveMessage("send", "count", 4)
	r.ObserveMessage("recv", "payload", 1024)

	bytes, err := r.MessageBytesTotal.GetMetricWithLabelValues("send", "count")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := bytes.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 8 {
		t.Errorf("MessageBytesTotal = %v, want 8", metric.Counter.GetValue())
	}

	msgs, err := r.MessagesTotal.GetMetricWithLabelValues("recv", "payload")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if err := msgs.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("MessagesTotal = %v, want 1", metric.Counter.GetValue())
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics()

	var metric dto.Metric
	if err := r.GoRoutines.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() < 1 {
		t.Errorf("GoRoutines = %v, want >= 1", metric.Gauge.GetValue())
	}
	if err := r.MemoryAllocBytes.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() <= 0 {
		t.Errorf("MemoryAllocBytes = %v, want > 0", metric.Gauge.GetValue())
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.ObserveTraversal(3, false, time.Millisecond, 42)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "traverse_vertices_visited_total") {
		t.Error("scrape output missing traverse_vertices_visited_total")
	}
	if !strings.Contains(body, `rank="3"`) {
		t.Error("scrape output missing rank label")
	}
}
