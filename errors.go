package iaq

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrShortRead        = errors.New("short read")
	ErrInvalidDevice    = errors.New("invalid device")
	ErrNotReady         = errors.New("data not ready")
	ErrClosed           = errors.New("device closed")
)

// BusError reports a failed transfer on the underlying transport.
type BusError struct {
	Op   string
	Addr byte
	Err  error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus %s at %#02x: %v", e.Op, e.Addr, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}
