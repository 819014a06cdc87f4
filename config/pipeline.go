package config

// RouterConfig selects the intent classifier.
type RouterConfig struct {
	// Provider: "llm" (default) or "rule"
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	// WebKeywords overrides the keyword list of the rule-based router.
	WebKeywords []string `json:"web_keywords,omitempty" yaml:"web_keywords,omitempty"`
}

// HTTPClientConfig holds defaults for outbound HTTP calls (vector store REST,
// web search backends, report downloads).
type HTTPClientConfig struct {
	TimeoutMs    int `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry        int `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs int `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs int `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	// Allowed outbound hosts; supports exact match and wildcard suffix like *.example.com
	HostAllowlist []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	// Circuit breaker: open after N consecutive failures, for CircuitOpenSeconds.
	MaxConsecutiveFailures int `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// CacheConfig controls the query embedding cache.
type CacheConfig struct {
	Enable     bool `json:"enable,omitempty" yaml:"enable,omitempty"`
	Capacity   int  `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	TTLSeconds int  `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}
