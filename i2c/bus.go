// Package i2c provides iaq.I2CBus implementations for buses exposed by the host
// (periph.io) and by gobot adaptors.
package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/iaq"
)

var _ iaq.I2CBus = &GenericBus{}

// GenericBus drives a host I2C bus such as /dev/i2c-1.
type GenericBus struct {
	mx  sync.Mutex
	bus i2c.Bus
}

// NewGenericBus opens the bus by name ("1", "/dev/i2c-1" or "" for the first one).
func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus %q: %w", dev, err)
	}
	return newGenericBus(bus), nil
}

func newGenericBus(bus i2c.Bus) *GenericBus {
	return &GenericBus{bus: bus}
}

// SetSpeed changes the bus clock, e.g. 100*physic.KiloHertz.
func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if err := b.bus.SetSpeed(f); err != nil {
		return fmt.Errorf("could not set i2c bus speed to %s: %w", f, err)
	}
	return nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return 0, fmt.Errorf("could not read from i2c bus %#02x: %w", address, err)
	}
	return len(buffer), nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %#02x: %w", address, err)
	}
	return nil
}

// Release is a no-op: transactions on a host bus carry their own address.
func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	if c, ok := b.bus.(i2c.BusCloser); ok {
		return c.Close()
	}
	return nil
}

func (b *GenericBus) String() string {
	return b.bus.String()
}
