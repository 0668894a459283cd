// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/okrent/forage/internal/fetcherr"
)

// Outcome pairs one input reference with its fetch result or error.
// Err, when set, is always a *fetcherr.Error.
type Outcome struct {
	Reference string
	Result    *Result
	Err       *fetcherr.Error
}

// Pool fetches batches of references concurrently. Each worker builds
// its own Services through the factory; collaborator sessions are
// never shared between workers.
type Pool struct {
	router  *Router
	factory Factory
	log     *zap.Logger
}

// NewPool builds a pool over the router. A nil logger disables
// logging.
func NewPool(router *Router, factory Factory, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{router: router, factory: factory, log: log}
}

// FetchAll fetches every reference and returns outcomes in input
// order. Individual failures land in their outcome; the only error
// return is a factory failure, which means no work could start.
func (p *Pool) FetchAll(ctx context.Context, refs []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(refs))
	for i, r := range refs {
		outcomes[i].Reference = r
	}
	if len(refs) == 0 {
		return outcomes, nil
	}

	workers := workerCap(p.router.cfg.Workers)
	if workers > len(refs) {
		workers = len(refs)
	}

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			svc, err := p.factory(gctx)
			if err != nil {
				return err
			}
			defer svc.Close()
			for i := range jobs {
				res, ferr := p.router.Fetch(gctx, svc, refs[i])
				if ferr != nil {
					outcomes[i].Err = fetcherr.Normalize(ferr, FetchSubject(refs[i]))
					p.log.Warn("reference failed",
						zap.String("reference", FetchSubject(refs[i])),
						zap.String("code", string(outcomes[i].Err.Code)))
					continue
				}
				outcomes[i].Result = res
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for i := range refs {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return
			}
		}
	}()

	if err := g.Wait(); err != nil {
		return nil, fetcherr.Normalize(err, "starting fetch workers")
	}

	// Cancellation mid-batch: references never dispatched fail closed.
	for i := range outcomes {
		if outcomes[i].Result == nil && outcomes[i].Err == nil {
			outcomes[i].Err = fetcherr.Wrap(fetcherr.NetworkError, ctx.Err(), "batch interrupted before %s", FetchSubject(refs[i]))
		}
	}
	return outcomes, nil
}
