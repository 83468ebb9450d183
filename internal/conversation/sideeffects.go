package conversation

import (
	"context"
	"time"
)

// sideEffect is work that follows a committed calendar change. Its failure
// is logged and never changes the turn's reply.
type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

const sideEffectTimeout = 10 * time.Second

// runBestEffort runs effects one after another. Each gets its own timeout and
// ignores cancellation of ctx.
func (a *Agent) runBestEffort(ctx context.Context, effects ...sideEffect) {
	base := context.WithoutCancel(ctx)
	for _, eff := range effects {
		effCtx, cancel := context.WithTimeout(base, sideEffectTimeout)
		err := safeRun(effCtx, eff.run)
		cancel()
		if err != nil {
			a.logger.Warn("side effect failed", "effect", eff.name, "error", err)
			if a.metrics != nil {
				a.metrics.RecordSideEffectFailure(eff.name)
			}
		}
	}
}

// safeRun turns a panic inside a side effect into an error.
func safeRun(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return fn(ctx)
}
