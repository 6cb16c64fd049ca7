package result

import (
	"context"
	"errors"
)

// ErrTargetNotFound reports that the monitored target no longer exists
// in the store (it was deleted while a check was in flight). The
// dispatcher reacts by deregistering the target instead of logging a
// storage failure.
var ErrTargetNotFound = errors.New("monitoring target not found")

// Recorder persists one check result as a time-series row and touches
// the target's last-checked timestamp.
type Recorder interface {
	Record(ctx context.Context, r *CheckResult) error
}
