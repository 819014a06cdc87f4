package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/config"
	"github.com/childsafe-za/childsafe-rag/llm"
	"github.com/childsafe-za/childsafe-rag/schema"
)

// RoutingDecision represents the routing decision for a query
type RoutingDecision struct {
	Intent schema.Intent `json:"intent"`
	Raw    string        `json:"raw,omitempty"`    // classifier output before normalisation
	Reason string        `json:"reason,omitempty"` // Human-readable reason
	// Defaulted is set when the branch was not positively selected and the
	// local default was applied.
	Defaulted bool `json:"defaulted"`
}

// Router determines which branch answers a given query
type Router interface {
	Route(ctx context.Context, query string) (*RoutingDecision, error)
}

// ParseIntent normalises classifier output. Only the literal "web" selects
// the web branch; everything else defaults to local.
func ParseIntent(raw string) (schema.Intent, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "web":
		return schema.IntentWeb, false
	case "local":
		return schema.IntentLocal, false
	default:
		return schema.IntentLocal, true
	}
}

// LLMRouter classifies queries with a single intent prompt.
type LLMRouter struct {
	LM llm.Invoker
}

func NewLLMRouter(lm llm.Invoker) *LLMRouter {
	return &LLMRouter{LM: lm}
}

// Route never returns an error; classifier failures default to local.
func (r *LLMRouter) Route(ctx context.Context, query string) (*RoutingDecision, error) {
	raw, err := r.LM.Invoke(ctx, llm.KindIntent, map[string]string{"query": query})
	if err != nil {
		logger.Warnf("router: classifier failed, defaulting to local: %v", err)
		return &RoutingDecision{
			Intent:    schema.IntentLocal,
			Reason:    fmt.Sprintf("classifier error: %v", err),
			Defaulted: true,
		}, nil
	}

	intent, defaulted := ParseIntent(raw)
	decision := &RoutingDecision{Intent: intent, Raw: raw, Defaulted: defaulted}
	if defaulted {
		decision.Reason = fmt.Sprintf("unrecognised classifier output %q", strings.TrimSpace(raw))
		logger.Warnf("router: %s, defaulting to local", decision.Reason)
	} else {
		decision.Reason = "classified by language model"
	}
	logger.Infof("router: decision - intent=%s defaulted=%v", decision.Intent, decision.Defaulted)
	return decision, nil
}

var defaultWebKeywords = []string{
	"latest", "news", "recent", "current", "today", "this week", "article", "articles", "headline",
}

// RuleBasedRouter implements simple keyword routing for offline use.
type RuleBasedRouter struct {
	webKeywords []string
}

// NewRuleBasedRouter creates a new rule-based router
func NewRuleBasedRouter(webKeywords []string) *RuleBasedRouter {
	if len(webKeywords) == 0 {
		webKeywords = defaultWebKeywords
	}
	kws := make([]string, 0, len(webKeywords))
	for _, kw := range webKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			kws = append(kws, kw)
		}
	}
	return &RuleBasedRouter{webKeywords: kws}
}

// Route applies rule-based logic to determine routing
func (r *RuleBasedRouter) Route(ctx context.Context, query string) (*RoutingDecision, error) {
	queryLower := strings.ToLower(query)
	for _, kw := range r.webKeywords {
		if containsWord(queryLower, kw) {
			decision := &RoutingDecision{
				Intent: schema.IntentWeb,
				Reason: fmt.Sprintf("detected %q requiring up-to-date information", kw),
			}
			logger.Infof("router: rule-based decision - intent=%s reason=%s", decision.Intent, decision.Reason)
			return decision, nil
		}
	}
	decision := &RoutingDecision{
		Intent:    schema.IntentLocal,
		Reason:    "no news keywords, answering from reports",
		Defaulted: true,
	}
	logger.Infof("router: rule-based decision - intent=%s reason=%s", decision.Intent, decision.Reason)
	return decision, nil
}

// containsWord matches kw on word boundaries so that "new" does not hit "newsletter".
func containsWord(text, kw string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], kw)
		if idx < 0 {
			return false
		}
		i := start + idx
		j := i + len(kw)
		if (i == 0 || !isWordByte(text[i-1])) && (j == len(text) || !isWordByte(text[j])) {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// NewRouter builds the router selected by cfg.Provider.
func NewRouter(cfg config.RouterConfig, lm llm.Invoker) (Router, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "llm":
		if lm == nil {
			return nil, fmt.Errorf("router: llm provider requires a language model")
		}
		return NewLLMRouter(lm), nil
	case "rule":
		return NewRuleBasedRouter(cfg.WebKeywords), nil
	default:
		return nil, fmt.Errorf("router: unsupported provider %q", cfg.Provider)
	}
}
