// Package retry implements the exponential-backoff retry engine of
// spec.md §4.F: classify a query's failure, and if retryable, sleep with
// jitter before the caller re-acquires a connection and re-runs. The
// classification and whole-query retry-grain logic are this package's
// own; the delay/jitter math is delegated to backoff/v4, matching the
// domain-stack expansion in SPEC_FULL.md §2.2.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
	"github.com/neo4j-labs/neo4rs-sub001/log"
)

// Policy configures the backoff schedule, per spec.md §6's `backoff`
// configuration surface. Defaults match spec.md §4.F.
type Policy struct {
	Multiplier   float64
	MinDelay     time.Duration
	MaxDelay     time.Duration
	TotalBudget  time.Duration
	Disabled     bool
}

// DefaultPolicy is spec.md §4.F's default parameter set.
var DefaultPolicy = Policy{
	Multiplier:  2.0,
	MinDelay:    time.Millisecond,
	MaxDelay:    10 * time.Second,
	TotalBudget: 60 * time.Second,
}

// Engine drives retries around one query attempt function. Per spec.md
// §4.F/§9 ("retry idempotency"), callers must only invoke Attempt for
// work that has not yet yielded a row to the caller.
type Engine struct {
	Policy Policy
	Log    log.Logger
	LogID  string
}

// New builds an Engine with p (a zero Policy falls back to
// DefaultPolicy).
func New(p Policy, logger log.Logger, logID string) *Engine {
	if p == (Policy{}) {
		p = DefaultPolicy
	}
	if logger == nil {
		logger = log.Void{}
	}
	return &Engine{Policy: p, Log: logger, LogID: logID}
}

// Attempt is the unit of retryable work: acquire a connection, RUN, set
// up the first batch. Returning an error whose boltdb.IsRetryable is true
// causes Do to sleep and retry. Do does not track whether a record has
// been observed: an Attempt must not yield any row to its caller before it
// returns.
type Attempt func(ctx context.Context) error

// Do runs fn, retrying on retryable errors per the configured policy.
// When the policy is disabled, fn runs exactly once.
func (e *Engine) Do(ctx context.Context, fn Attempt) error {
	if e.Policy.Disabled {
		return fn(ctx)
	}
	bo := backoff.NewExponentialBackOff()
	bo.Multiplier = e.Policy.Multiplier
	bo.InitialInterval = e.Policy.MinDelay
	bo.MaxInterval = e.Policy.MaxDelay
	bo.MaxElapsedTime = e.Policy.TotalBudget
	bo.Reset()

	var lastErr error
	attempt := 0
	for {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !boltdb.IsRetryable(err) {
			return err
		}
		d := bo.NextBackOff()
		if d == backoff.Stop {
			e.Log.Warnf("retry", e.LogID, "retry budget exhausted after %d attempts: %v", attempt, err)
			return lastErr
		}
		e.Log.Debugf("retry", e.LogID, "attempt %d failed with retryable error, sleeping %s: %v", attempt, d, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}
