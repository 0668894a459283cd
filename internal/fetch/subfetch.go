// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runSubfetches distributes n sub-fetch items across bounded workers,
// each owning its own Services. The parent services serve the first
// worker; additional workers run only when Fork can mint independent
// ones, so a session is never driven from two goroutines. fn must not
// panic and reports per-item failures through its own side channel.
func runSubfetches(ctx context.Context, svc *Services, workers, n int, fn func(ctx context.Context, svc *Services, i int)) error {
	count := workerCap(workers)
	if count > n {
		count = n
	}
	if svc.Fork == nil {
		count = 1
	}

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < count; w++ {
		g.Go(func() error {
			wsvc := svc
			if w > 0 {
				forked, err := svc.Fork(gctx)
				if err != nil {
					// Fewer workers, not a failed fetch.
					return nil
				}
				defer forked.Close()
				wsvc = forked
			}
			for i := range jobs {
				fn(gctx, wsvc, i)
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return
			}
		}
	}()

	return g.Wait()
}
