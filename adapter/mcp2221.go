// Package adapter implements iaq.I2CBus over USB to I2C bridges.
package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/snsctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const reportSize = 64

// HID command codes
const (
	cmdStatusSetParams = 0x10
	cmdWriteData       = 0x90
	cmdReadData        = 0x91
	cmdGetReadData     = 0x40
)

const (
	cancelTransfer = 0x10
	setSpeed       = 0x20
)

const i2cEngineError = 0x41

// data size reported by the engine on a failed read
const readDataError = 127

const clockFrequency = 12 * physic.MegaHertz

var ErrCommandFailed = errors.New("command failed")
var ErrDeviceNotFound = errors.New("MCP2221 device not found")

var _ iaq.I2CBus = &MCP2221{}

type hidDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

type opener func(id ...int) (hidDevice, error)

// MCP2221 talks to the first Microchip MCP2221 found on USB. The device is opened
// for every command so the adapter may be unplugged between calls.
type MCP2221 struct {
	mx           sync.Mutex
	open         opener
	id           []int
	request      []byte
	response     []byte
	responseWait time.Duration
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type MCP2221Opt func(*MCP2221)

// WithDeviceIndex selects one of several connected adapters by enumeration index.
func WithDeviceIndex(index int) MCP2221Opt {
	return func(d *MCP2221) {
		d.id = []int{index}
	}
}

func WithResponseWait(wait time.Duration) MCP2221Opt {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	d := &MCP2221{
		open:         openHID,
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func openHID(id ...int) (hidDevice, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	index := 0
	if len(id) > 0 {
		index = id[0]
	} else if len(devs) > 1 {
		return nil, fmt.Errorf("ambiguous device identification: %d adapters connected", len(devs))
	}
	if index < 0 || index >= len(devs) {
		return nil, fmt.Errorf("no device with id %d", index)
	}
	dev, err := devs[index].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdWriteData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to %#02x failed: %w", address, err)
	}
	if d.response[1] != 0x00 {
		slog.Debug("adapter busy", "addr", address)
		return iaq.ErrBusBusy
	}
	return nil
}

// ReadFromAddr returns the number of bytes the engine actually delivered.
func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdReadData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return 0, fmt.Errorf("bus read from %#02x failed: %w", address, err)
	}
	if d.response[1] != 0x00 {
		slog.Debug("adapter busy", "addr", address)
		return 0, iaq.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetReadData
	err = d.send(ctx)
	if err != nil {
		return 0, fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == i2cEngineError || d.response[3] == readDataError {
		return 0, fmt.Errorf("error reading the I2C slave data from the I2C engine: %w", ErrCommandFailed)
	}
	n := min(int(d.response[3]), len(buffer), reportSize-4)
	copy(buffer, d.response[4:4+n])
	return n, nil
}

// SetSpeed programs the I2C clock divider, e.g. 100*physic.KiloHertz.
func (d *MCP2221) SetSpeed(ctx context.Context, f physic.Frequency) error {
	divider, err := speedDivider(f)
	if err != nil {
		return err
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[3] = setSpeed
	d.request[4] = divider
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("set speed request failed: %w", err)
	}
	if d.response[3] != setSpeed {
		return fmt.Errorf("speed %s not accepted: %w", f, ErrCommandFailed)
	}
	return nil
}

func speedDivider(f physic.Frequency) (byte, error) {
	if f <= 0 {
		return 0, fmt.Errorf("invalid i2c speed %s", f)
	}
	divider := int64(clockFrequency/f) - 3
	if divider < 1 || divider > 0xFF {
		return 0, fmt.Errorf("i2c speed %s out of range", f)
	}
	return byte(divider), nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
		25: I2C read pending
	*/
	return &MCP2221Status{
		I2CDataBufferCounter:   int(buffer[13]),
		I2CSpeedDivider:        int(buffer[14]),
		I2CTimeout:             int(buffer[15]),
		CurrentAddress:         hex.EncodeToString(buffer[16:18]),
		LastWriteRequestedSize: binary.LittleEndian.Uint16(buffer[9:11]),
		LastWriteSentSize:      binary.LittleEndian.Uint16(buffer[11:13]),
		ReadPending:            int(buffer[25]),
	}
}

// Release cancels any pending transfer and frees the bus.
func (d *MCP2221) Release(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	return err
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[2] = cancelTransfer
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dev, err := d.open(d.id...)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Warn("could not close adapter", "error", err)
		}
	}()
	verbose := snsctx.IsVerbose(ctx)
	if verbose {
		slog.Debug("sending message to adapter", "report", "\n"+hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	if err := iaq.Sleep(ctx, d.responseWait); err != nil {
		return err
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		slog.Debug("read message from adapter", "report", "\n"+hex.Dump(d.response))
	}
	if d.response[0] != d.request[0] {
		return fmt.Errorf("response to command %#02x, expected %#02x: %w", d.response[0], d.request[0], ErrCommandFailed)
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}

// Device describes a connected adapter.
type Device struct {
	Index        int
	Path         string
	Serial       string
	Manufacturer string
	Product      string
	Release      uint16
}

// Devices lists connected MCP2221 adapters.
func Devices() []Device {
	infos := hid.Enumerate(VendorID, ProductID)
	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, Device{
			Index:        i,
			Path:         info.Path,
			Serial:       info.Serial,
			Manufacturer: info.Manufacturer,
			Product:      info.Product,
			Release:      info.Release,
		})
	}
	return devices
}
