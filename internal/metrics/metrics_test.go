package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Batch("ok")
	m.JudgeOutcome("quota")
	m.JudgeOutcome("quota")
	m.ObserveStage("embed", time.Now(), nil)
	m.ObserveStage("index", time.Now(), errors.New("down"))
	m.ResumeStarted()
	m.ResumeFinished(86)

	if got := testutil.ToFloat64(m.batches.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected 1 ok batch, got %v", got)
	}
	if got := testutil.ToFloat64(m.judgeOutcomes.WithLabelValues("quota")); got != 2 {
		t.Fatalf("expected 2 quota outcomes, got %v", got)
	}
	if got := testutil.ToFloat64(m.stageFailures.WithLabelValues("index")); got != 1 {
		t.Fatalf("expected 1 index failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Fatalf("expected no resumes in flight, got %v", got)
	}
	if got := testutil.ToFloat64(m.resumes); got != 1 {
		t.Fatalf("expected 1 resume, got %v", got)
	}
	if n := testutil.CollectAndCount(m.stageDuration); n != 2 {
		t.Fatalf("expected 2 stage series, got %d", n)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Batch("ok")
	m.JudgeOutcome("ok")
	m.ObserveStage("judge", time.Now(), nil)
	m.ResumeStarted()
	m.ResumeFinished(10)
}
