// Package ratelimit provides the time-windowed admission gate that throttles
// order and call creation per table.  It is best-effort abuse protection,
// not accounting: the in-memory implementation forgets everything on
// restart and a race with storage writes may let one extra action through.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Decision is the outcome of one admission check.  RetryAfter is the
// caller-facing wait hint in whole seconds and is zero when Allowed.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

// Admitter admits at most one action per key per window.
type Admitter interface {
	Admit(ctx context.Context, key string, window time.Duration) (Decision, error)
}

// CallKey is the admission key for a call of the given type at a table.
func CallKey(tableID uint64, callType string) string {
	return fmt.Sprintf("call:%d:%s", tableID, callType)
}

// OrderKey is the admission key for order creation at a table.
func OrderKey(tableID uint64) string {
	return fmt.Sprintf("order:%d", tableID)
}

// retryAfter rounds the remaining wait up to whole seconds, never below one.
func retryAfter(remaining time.Duration) int {
	secs := int(math.Ceil(remaining.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
