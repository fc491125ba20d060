package ledger

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")

	rec.RecordOperation("register_batch", 10*time.Millisecond, "ok")
	rec.RecordOperation("register_batch", 5*time.Millisecond, "ok")
	rec.RecordOperation("register_batch", 2*time.Millisecond, "error")
	rec.RecordOperation("", time.Millisecond, "ok") // dropped

	snap := rec.Snapshot()
	if got := snap.DurationsMS["register_batch"]; got != 17 {
		t.Fatalf("duration total = %v ms, want 17", got)
	}
	if got := snap.Results["register_batch"]["ok"]; got != 2 {
		t.Fatalf("ok count = %d, want 2", got)
	}
	if got := snap.Results["register_batch"]["error"]; got != 1 {
		t.Fatalf("error count = %d, want 1", got)
	}
	if rec.Name() == "" {
		t.Fatal("expected generated expvar name")
	}
}

func TestExpvarSnapshotIsACopy(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.RecordOperation("read_batch", time.Millisecond, "ok")

	snap := rec.Snapshot()
	snap.DurationsMS["read_batch"] = 999
	snap.Results["read_batch"]["ok"] = 999

	fresh := rec.Snapshot()
	if fresh.DurationsMS["read_batch"] == 999 {
		t.Fatal("snapshot durations alias internal state")
	}
	if fresh.Results["read_batch"]["ok"] == 999 {
		t.Fatal("snapshot results alias internal state")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	rec.RecordOperation("update_status", 3*time.Millisecond, "ok")
	rec.RecordOperation("update_status", 3*time.Millisecond, "error")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	if !names["herbledger_operation_duration_seconds"] {
		t.Fatal("duration histogram not registered")
	}
	if !names["herbledger_operations_total"] {
		t.Fatal("operation counter not registered")
	}

	// Double registration must surface the registry error.
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
