package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"bibcheck/internal/check"
	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
)

// checkEntries runs plan over entries on up to jobs goroutines. Each entry
// writes only its own slot, so no locking is needed and the output keeps
// entry order.
func checkEntries(ctx context.Context, plan *check.Plan, entries []*entry.Entry, jobs int) ([][]diag.Message, error) {
	slots := make([][]diag.Message, len(entries))
	if len(entries) == 0 {
		return slots, ctx.Err()
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(entries)))
	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = plan.Check(e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// a cancellation after the last entry still discards the pass
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}
