package iaq

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// AddressableReader reads from the device bound at address. It returns the number
// of bytes actually received which may be lower than len(buffer).
type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) (int, error)
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is address scoped: every transfer selects its target, so drivers sharing
// one physical bus never rely on a binding made by a previous call.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}
