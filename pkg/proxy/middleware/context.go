package middleware

import (
	"context"
	"time"

	"mercator-hq/iptvrelay/pkg/limits"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// StartTimeKey stores the request start time.
	StartTimeKey contextKey = "start_time"

	// SlotKey stores the admission slot of an admitted stream.
	SlotKey contextKey = "admission_slot"
)

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}

// GetSlot returns the admission slot granted to the request, or nil.
func GetSlot(ctx context.Context) *limits.Slot {
	if slot, ok := ctx.Value(SlotKey).(*limits.Slot); ok {
		return slot
	}
	return nil
}
