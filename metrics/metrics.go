package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "childsafe_rag_queries_total",
		Help: "Queries answered, by branch and outcome",
	}, []string{"mode", "outcome"})

	fallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "childsafe_rag_fallbacks_total",
		Help: "Fallback answers returned, by reason",
	}, []string{"mode", "reason"})

	stageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "childsafe_rag_stage_latency_ms",
		Help:    "Latency of pipeline stages in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"stage"})

	retrieverResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "childsafe_rag_retriever_results",
		Help:    "Number of results returned by a retriever",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	}, []string{"type"})

	lmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "childsafe_rag_lm_calls_total",
		Help: "Language model calls by prompt kind and status",
	}, []string{"kind", "status"})

	validatorVerdict = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "childsafe_rag_validator_verdict_total",
		Help: "Grounding validator verdicts",
	}, []string{"mode", "verdict"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}

// Register registers the collectors with the default registry. It is safe
// to call more than once.
func Register() {
	ensureRegistered()
}

// IncQuery counts a finished query. outcome is "answered", "fallback" or "error".
func IncQuery(mode, outcome string) {
	ensureRegistered()
	queriesTotal.WithLabelValues(mode, outcome).Inc()
}

// IncFallback records why a fallback answer was returned.
func IncFallback(mode, reason string) {
	ensureRegistered()
	fallbacksTotal.WithLabelValues(mode, reason).Inc()
}

// ObserveStage records the latency of one pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	ensureRegistered()
	stageLatency.WithLabelValues(stage).Observe(float64(d.Milliseconds()))
}

// ObserveRetriever records result size for a retriever type.
func ObserveRetriever(typ string, results int) {
	ensureRegistered()
	retrieverResults.WithLabelValues(typ).Observe(float64(results))
}

// IncLMCall counts a language model call.
func IncLMCall(kind string, err error) {
	ensureRegistered()
	status := "ok"
	if err != nil {
		status = "error"
	}
	lmCalls.WithLabelValues(kind, status).Inc()
}

// IncVerdict increments the validator verdict counter.
func IncVerdict(mode, verdict string) {
	ensureRegistered()
	validatorVerdict.WithLabelValues(mode, verdict).Inc()
}

// Collectors exposes all collectors for external registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		queriesTotal, fallbacksTotal, stageLatency, retrieverResults, lmCalls, validatorVerdict,
	}
}
