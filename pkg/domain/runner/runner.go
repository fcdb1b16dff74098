// Package runner defines the external execution capability a task delegates
// to: an AI provider call or a local script runtime. The core only knows its
// request/result shape and how its errors classify.
package runner

import (
	"context"
)

// Request carries the materialized instruction for one execution attempt.
// Instruction has already been through macro resolution; no placeholder
// tokens remain.
type Request struct {
	Instruction string
	Config      map[string]string
	Temperature float32
	MaxTokens   int
}

// Result is the outcome of one execution attempt.
type Result struct {
	Content string
	Usage   TokenUsage
	Model   string
}

// TokenUsage tracks costs.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Runner is the interface for all execution backends.
type Runner interface {
	ID() string
	Execute(ctx context.Context, req Request) (*Result, error)
}
