// Package llmtest provides a scripted llm.Invoker for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/childsafe-za/childsafe-rag/llm"
)

// Reply is the scripted outcome for one prompt kind.
type Reply struct {
	Text string
	Err  error
}

// Call records one invocation.
type Call struct {
	Kind llm.PromptKind
	Vars map[string]string
}

// Invoker answers each prompt kind with a fixed reply. Kinds without a
// reply return an empty string.
type Invoker struct {
	mu      sync.Mutex
	Replies map[llm.PromptKind]Reply
	Calls   []Call
}

func New(replies map[llm.PromptKind]Reply) *Invoker {
	return &Invoker{Replies: replies}
}

func (f *Invoker) Invoke(_ context.Context, kind llm.PromptKind, vars map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Kind: kind, Vars: vars})
	r := f.Replies[kind]
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

// Count returns how many times kind was invoked.
func (f *Invoker) Count(kind llm.PromptKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Total returns the number of invocations of any kind.
func (f *Invoker) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
