// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/okrent/forage/internal/diag"
	"github.com/okrent/forage/internal/fetcherr"
	"github.com/okrent/forage/pkg/types"
)

// insufficientError is the escape a tier uses to hand off to the next
// one: the tier ran, but its output is not worth keeping.
type insufficientError struct {
	reason string
}

func (e *insufficientError) Error() string {
	return "insufficient: " + e.reason
}

// insufficient builds the tier hand-off error.
func insufficient(format string, args ...any) error {
	return &insufficientError{reason: fmt.Sprintf(format, args...)}
}

// tier is one rung of an extraction ladder.
type tier struct {
	name string
	run  func(ctx context.Context) (*types.ExtractionResult, error)
}

// runTiers runs tiers in order until one produces a result. A tier
// that reports insufficient output, or times out while later tiers
// remain, falls through with its reason recorded. Terminal conditions
// (auth, missing content, access refusal, throttling already retried)
// abort the ladder immediately. When every tier falls through the
// trail becomes an EXTRACTION_FAILED error.
func runTiers(ctx context.Context, rec *diag.Recorder, subject string, tiers []tier) (*types.ExtractionResult, error) {
	var trail []string
	for i, t := range tiers {
		res, err := t.run(ctx)
		if err == nil {
			if len(trail) > 0 {
				rec.Add("%s succeeded after: %s", t.name, trail[len(trail)-1])
			}
			return res, nil
		}

		var ins *insufficientError
		if errors.As(err, &ins) {
			trail = append(trail, fmt.Sprintf("%s: %s", t.name, ins.reason))
			continue
		}

		last := i == len(tiers)-1
		if !last && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			trail = append(trail, fmt.Sprintf("%s: timed out", t.name))
			continue
		}

		if code, ok := fetcherr.CodeOf(err); ok && !last {
			// Terminal failures abort; only EXTRACTION_FAILED and
			// NETWORK_ERROR are worth a more expensive tier.
			if code != fetcherr.ExtractionFailed && code != fetcherr.NetworkError {
				return nil, err
			}
			trail = append(trail, fmt.Sprintf("%s: %s", t.name, code))
			continue
		}

		if last {
			fe := fetcherr.Normalize(err, subject)
			fe.Trail = append(trail, fmt.Sprintf("%s: %s", t.name, fe.Code))
			return nil, fe
		}

		trail = append(trail, fmt.Sprintf("%s: %v", t.name, err))
	}
	return nil, fetcherr.Exhausted(fmt.Sprintf("no tier produced acceptable content for %s", subject), trail)
}
