package runner

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/taskdeck/taskdeck/pkg/domain/runner"
)

// DefaultCallTimeout bounds one execution attempt. AI provider calls on
// large prompts routinely take minutes.
const DefaultCallTimeout = 300 * time.Second

// Resilient wraps an execution backend with a per-attempt timeout. Retry and
// failure classification live in the task executor, which needs to treat a
// timeout differently from a rate limit; this wrapper only guarantees an
// attempt cannot hang forever.
type Resilient struct {
	inner       runner.Runner
	callTimeout time.Duration
}

// NewResilient wraps the inner runner. A non-positive timeout uses
// DefaultCallTimeout.
func NewResilient(inner runner.Runner, callTimeout time.Duration) *Resilient {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Resilient{inner: inner, callTimeout: callTimeout}
}

func (r *Resilient) ID() string {
	return r.inner.ID()
}

func (r *Resilient) Execute(ctx context.Context, req runner.Request) (*runner.Result, error) {
	t := timeout.New[*runner.Result](timeout.Config{
		DefaultTimeout: r.callTimeout,
	})

	start := time.Now()
	res, err := t.Execute(ctx, r.callTimeout, func(ctx context.Context) (*runner.Result, error) {
		return r.inner.Execute(ctx, req)
	})
	if err != nil {
		overran := time.Since(start) >= r.callTimeout
		if ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || overran) {
			// A per-attempt deadline is a transient condition. The caller's
			// own context staying live distinguishes it from a cancellation.
			return nil, runner.NewTransientError(err)
		}
		return nil, err
	}
	return res, nil
}
