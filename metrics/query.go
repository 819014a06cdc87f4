package metrics

import (
	"encoding/json"
	"time"

	"github.com/childsafe-za/childsafe-rag/common/logger"
)

// QueryMetrics records the trace of one pipeline run.
type QueryMetrics struct {
	QueryID   string    `json:"query_id"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`

	Mode             string `json:"mode"`
	IntentDefaulted  bool   `json:"intent_defaulted"`
	Rewritten        string `json:"rewritten,omitempty"`
	SearchBackend    string `json:"search_backend,omitempty"`
	RetrievedCount   int    `json:"retrieved_count"`
	FilteredCount    int    `json:"filtered_count,omitempty"`
	ProviderError    string `json:"provider_error,omitempty"`
	Verdict          string `json:"verdict,omitempty"`
	FallbackReason   string `json:"fallback_reason,omitempty"`
	SynthesisSkipped bool   `json:"synthesis_skipped"`

	States         []string         `json:"states"`
	StageLatencyMs map[string]int64 `json:"stage_latency_ms"`
	TotalLatencyMs int64            `json:"total_latency_ms"`
	Success        bool             `json:"success"`
	ErrorMsg       string           `json:"error_msg,omitempty"`
}

func NewQueryMetrics(id, query string) *QueryMetrics {
	return &QueryMetrics{
		QueryID:        id,
		Query:          query,
		Timestamp:      time.Now(),
		States:         make([]string, 0, 8),
		StageLatencyMs: make(map[string]int64),
	}
}

// Enter appends a visited state.
func (m *QueryMetrics) Enter(state string) {
	m.States = append(m.States, state)
}

// RecordStage stores and exports the latency of a stage.
func (m *QueryMetrics) RecordStage(stage string, start time.Time) {
	d := time.Since(start)
	m.StageLatencyMs[stage] = d.Milliseconds()
	ObserveStage(stage, d)
}

// Finish closes the trace, exports the counters and logs it.
func (m *QueryMetrics) Finish(err error) {
	m.TotalLatencyMs = time.Since(m.Timestamp).Milliseconds()
	m.Success = err == nil
	outcome := "answered"
	switch {
	case err != nil:
		m.ErrorMsg = err.Error()
		outcome = "error"
	case m.FallbackReason != "":
		outcome = "fallback"
		IncFallback(m.Mode, m.FallbackReason)
	}
	IncQuery(m.Mode, outcome)
	m.Log()
}

// Log writes the trace as one JSON line.
func (m *QueryMetrics) Log() {
	if data, err := json.Marshal(m); err == nil {
		logger.Infof("[RAG_METRICS] %s", string(data))
	}
}
