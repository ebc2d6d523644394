package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "skillscreen"

// Metrics holds the evaluation collectors. A nil *Metrics records nothing.
type Metrics struct {
	batches       *prometheus.CounterVec
	resumes       prometheus.Counter
	inFlight      prometheus.Gauge
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	judgeOutcomes *prometheus.CounterVec
	finalScores   prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Evaluation batches by outcome",
			},
			[]string{"outcome"},
		),
		resumes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resumes_evaluated_total",
				Help:      "Resumes that produced a candidate result",
			},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resumes_in_flight",
				Help:      "Resumes currently being evaluated",
			},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"stage"},
		),
		stageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_failures_total",
				Help:      "Failed pipeline stages",
			},
			[]string{"stage"},
		),
		judgeOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "judge_outcomes_total",
				Help:      "Judge verdicts by outcome (ok, quota, backend, parse)",
			},
			[]string{"outcome"},
		),
		finalScores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "final_score",
				Help:      "Distribution of fused candidate scores",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
		),
	}
}

func (m *Metrics) ObserveStage(stage string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	if err != nil {
		m.stageFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) JudgeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.judgeOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Batch(outcome string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ResumeStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) ResumeFinished(score int) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.resumes.Inc()
	m.finalScores.Observe(float64(score))
}
