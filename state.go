package iaq

import (
	"context"
	"time"
)

// State of a driver instance.
type State int

const (
	StateUninitialized State = iota
	StateBringingUp
	StateReady
	StateMeasuring
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateBringingUp:
		return "bringing-up"
	case StateReady:
		return "ready"
	case StateMeasuring:
		return "measuring"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// DefaultSettleDelay is applied after a reset when no other delay is configured.
const DefaultSettleDelay = 3 * time.Second

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
