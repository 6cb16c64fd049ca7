// Package probe defines the protocol health-check contract and the
// lookup table that maps a target's protocol tag to its implementation.
//
// A probe executes exactly one bounded-time check and always produces a
// terminal CheckResult: timeouts, refused connections and protocol
// errors are captured in the result's error field, never raised. Adding
// support for a new engine is registering one new implementation.
package probe

import (
	"context"

	"github.com/vigilo/vigilo/internal/domain/result"
	"github.com/vigilo/vigilo/internal/domain/target"
)

type Probe interface {
	// Name returns the registry key this probe serves
	// ("endpoint", or a database engine tag).
	Name() string

	// Run executes one check against the target, bounded by the
	// target's own timeout. It must return within that bound and
	// must release every connection it opened, on all exit paths.
	Run(ctx context.Context, t target.Target) *result.CheckResult
}
