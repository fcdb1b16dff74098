package runner

import (
	"context"

	"github.com/taskdeck/taskdeck/pkg/domain/runner"
)

// Func adapts a function to the Runner interface.
type Func struct {
	Name string
	Fn   func(ctx context.Context, req runner.Request) (*runner.Result, error)
}

func (f Func) ID() string { return f.Name }

func (f Func) Execute(ctx context.Context, req runner.Request) (*runner.Result, error) {
	return f.Fn(ctx, req)
}

// Echo returns a runner that echoes the materialized instruction back as the
// result content. The CLI uses it for dry runs: the full graph, macro and
// checkpoint machinery executes without touching a provider.
func Echo() runner.Runner {
	return Func{
		Name: "echo",
		Fn: func(_ context.Context, req runner.Request) (*runner.Result, error) {
			return &runner.Result{Content: req.Instruction}, nil
		},
	}
}
