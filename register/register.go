// Package register implements the two access styles used by the station's chips:
// direct register addressing (select a register, then read or write) and the
// mailbox style where every logical channel has a fixed size and independent
// read/write permissions.
package register

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/snsctx"
)

// Device binds a transport to one device address.
type Device struct {
	transport iaq.I2CBus
	addr      byte
}

func NewDevice(transport iaq.I2CBus, addr byte) *Device {
	return &Device{transport: transport, addr: addr}
}

func (d *Device) Address() byte {
	return d.addr
}

// ReadRegisters selects start and reads count bytes. The returned slice holds only
// the bytes the transport delivered; a zero count yields an empty slice without any
// bus traffic.
func (d *Device) ReadRegisters(ctx context.Context, start byte, count int) ([]byte, error) {
	if count < 0 {
		return nil, fmt.Errorf("register: invalid read count %d", count)
	}
	if count == 0 {
		return []byte{}, nil
	}
	if err := d.WriteCommand(ctx, start); err != nil {
		return nil, err
	}
	return d.Read(ctx, count)
}

// Read reads up to count bytes without selecting a register first.
func (d *Device) Read(ctx context.Context, count int) ([]byte, error) {
	if count < 0 {
		return nil, fmt.Errorf("register: invalid read count %d", count)
	}
	buf := make([]byte, count)
	if count == 0 {
		return buf, nil
	}
	n, err := d.transport.ReadFromAddr(ctx, d.addr, buf)
	if err != nil {
		return nil, &iaq.BusError{Op: "read", Addr: d.addr, Err: err}
	}
	// the count comes from the transport, never trust it past the buffer
	n = min(max(n, 0), len(buf))
	if snsctx.IsVerbose(ctx) {
		slog.Debug("bus read", "addr", d.addr, "requested", count, "data", hex.EncodeToString(buf[:n]))
	}
	return buf[:n], nil
}

// WriteCommand issues a raw write, e.g. a command byte or a [register, value] pair.
func (d *Device) WriteCommand(ctx context.Context, cmd ...byte) error {
	if snsctx.IsVerbose(ctx) {
		slog.Debug("bus write", "addr", d.addr, "data", hex.EncodeToString(cmd))
	}
	if err := d.transport.WriteToAddr(ctx, d.addr, cmd); err != nil {
		return &iaq.BusError{Op: "write", Addr: d.addr, Err: err}
	}
	return nil
}

func (d *Device) WriteRegister(ctx context.Context, reg, value byte) error {
	return d.WriteCommand(ctx, reg, value)
}

// Release frees the transport binding. The binding belongs to the transport, not
// to this device: on adapters such as the MCP2221 it cancels any transfer in
// progress for every device on the bus.
func (d *Device) Release(ctx context.Context) error {
	if err := d.transport.Release(ctx); err != nil {
		return &iaq.BusError{Op: "release", Addr: d.addr, Err: err}
	}
	return nil
}
