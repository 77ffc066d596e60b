// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/nvandessel/faqloop/internal/llm"
)

// Fake replies from Respond, or with Replies in order. It records every call.
type Fake struct {
	// Unavailable makes Available return false
	Unavailable bool

	// Respond computes a reply; it takes precedence over Replies
	Respond func(messages []llm.Message) (string, error)

	// Replies are returned in order; the last one repeats
	Replies []string

	// Err is returned for every call when set
	Err error

	mu    sync.Mutex
	calls [][]llm.Message
}

// Available implements llm.Client.
func (f *Fake) Available() bool {
	return !f.Unavailable
}

// Generate implements llm.Client.
func (f *Fake) Generate(_ context.Context, messages []llm.Message, _ llm.Options) (string, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, messages)
	f.mu.Unlock()

	if f.Unavailable {
		return "", llm.ErrUnavailable
	}
	if f.Err != nil {
		return "", f.Err
	}
	if f.Respond != nil {
		return f.Respond(messages)
	}
	if len(f.Replies) == 0 {
		return "", nil
	}
	if n >= len(f.Replies) {
		n = len(f.Replies) - 1
	}
	return f.Replies[n], nil
}

// Calls returns the number of Generate calls so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Call returns the messages of the i-th call.
func (f *Fake) Call(i int) []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}
