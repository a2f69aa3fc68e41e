// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/trendjack/core/internal/modules/processing/llm"
)

// Rule answers prompts whose system or user text contains Match.
type Rule struct {
	Match    string
	Response string
	Err      error
}

// Fake is a concurrency-safe scripted client. Rules are checked in order;
// the first match wins.
type Fake struct {
	mu       sync.Mutex
	rules    []Rule
	Fallback string
	requests []llm.Request
}

// New returns a Fake with the given rules.
func New(rules ...Rule) *Fake {
	return &Fake{rules: rules}
}

// On appends a rule and returns the fake for chaining.
func (f *Fake) On(match, response string) *Fake {
	f.mu.Lock()
	f.rules = append(f.rules, Rule{Match: match, Response: response})
	f.mu.Unlock()
	return f
}

// Fail appends a rule that returns err.
func (f *Fake) Fail(match string, err error) *Fake {
	f.mu.Lock()
	f.rules = append(f.rules, Rule{Match: match, Err: err})
	f.mu.Unlock()
	return f
}

func (f *Fake) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	text := req.System + "\n" + req.Prompt
	for _, rule := range f.rules {
		if strings.Contains(text, rule.Match) {
			if rule.Err != nil {
				return "", rule.Err
			}
			return rule.Response, nil
		}
	}
	if f.Fallback != "" {
		return f.Fallback, nil
	}
	return "", fmt.Errorf("llmtest: no rule matches prompt %q", llm.Truncate(req.Prompt, 80))
}

// Requests returns a copy of every request received.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Count returns how many requests contained match.
func (f *Fake) Count(match string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.requests {
		if strings.Contains(req.System+"\n"+req.Prompt, match) {
			n++
		}
	}
	return n
}
