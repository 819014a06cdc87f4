package llm

import (
	"context"
	"errors"
	"time"

	"github.com/childsafe-za/childsafe-rag/common/logger"
)

// Invoker renders a prompt of the given kind and completes it.
type Invoker interface {
	Invoke(ctx context.Context, kind PromptKind, vars map[string]string) (string, error)
}

// CallObserver is notified after every completion attempt.
type CallObserver func(kind PromptKind, d time.Duration, err error)

// PromptInvoker is the Invoker backed by a Provider.
type PromptInvoker struct {
	Provider Provider
	Prompts  *Prompts
	Observe  CallObserver
}

func NewPromptInvoker(provider Provider, prompts *Prompts) *PromptInvoker {
	if prompts == nil {
		prompts = MustPrompts()
	}
	return &PromptInvoker{Provider: provider, Prompts: prompts}
}

var ErrNoProvider = errors.New("llm: no provider configured")

func (inv *PromptInvoker) Invoke(ctx context.Context, kind PromptKind, vars map[string]string) (string, error) {
	if inv.Provider == nil {
		return "", ErrNoProvider
	}
	prompt, err := inv.Prompts.Render(kind, vars)
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := inv.Provider.GenerateCompletion(ctx, prompt)
	elapsed := time.Since(start)
	if inv.Observe != nil {
		inv.Observe(kind, elapsed, err)
	}
	if err != nil {
		logger.Warnf("llm: %s call via %s failed after %s: %v", kind, inv.Provider.GetProviderType(), elapsed, err)
		return "", err
	}
	logger.Debugf("llm: %s call via %s took %s (%d chars)", kind, inv.Provider.GetProviderType(), elapsed, len(out))
	return out, nil
}
