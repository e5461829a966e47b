package environment

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sigurn/crc8"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/register"
)

const Si7021DefaultAddress = 0x40

// Commands (Si7021-A20 datasheet, table 11)
const (
	si7021CmdMeasureRH           = 0xF5 // no hold master mode
	si7021CmdTempFromPreviousRH  = 0xE0
	si7021CmdReset               = 0xFE
	si7021CmdSerialFirstAccess1  = 0xFA
	si7021CmdSerialFirstAccess2  = 0x0F
	si7021CmdSerialSecondAccess1 = 0xFC
	si7021CmdSerialSecondAccess2 = 0xC9
	si7021CmdFirmwareRevision1   = 0x84
	si7021CmdFirmwareRevision2   = 0xB8
)

var ErrChecksum = errors.New("si7021: checksum mismatch")

// CRC-8 x^8+x^5+x^4+1, initialization 0x00
var si7021Checksum = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0x00,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xA2,
	Name:   "CRC-8/Si7021",
})

type Si7021Config struct {
	Address         byte
	SettleDelay     time.Duration
	ConversionDelay time.Duration
	CheckCRC        bool
}

type Si7021Option func(*Si7021Config)

func WithSi7021Address(address byte) Si7021Option {
	return func(c *Si7021Config) {
		c.Address = address
	}
}

func WithSi7021SettleDelay(delay time.Duration) Si7021Option {
	return func(c *Si7021Config) {
		c.SettleDelay = delay
	}
}

// WithConversionDelay sets the wait between a measurement command and the read.
func WithConversionDelay(delay time.Duration) Si7021Option {
	return func(c *Si7021Config) {
		c.ConversionDelay = delay
	}
}

// WithCRCCheck toggles checksum validation of serial number and humidity payloads.
func WithCRCCheck(enabled bool) Si7021Option {
	return func(c *Si7021Config) {
		c.CheckCRC = enabled
	}
}

// Si7021 represents Silicon Labs Si7021-A20 humidity and temperature sensor.
// Typical usage:
//
//	s, err := NewSi7021(ctx, bus)
//	err = s.Measure(ctx)
//	rh, t := s.Humidity(), s.Temperature()
type Si7021 struct {
	dev    *register.Device
	config Si7021Config
	state  iaq.State
	now    func() time.Time

	serial     uint64
	fwRevision byte

	humidity    float64
	temperature float64
	measuredAt  time.Time
}

// NewSi7021 resets the sensor and caches its serial number and firmware revision.
func NewSi7021(ctx context.Context, transport iaq.I2CBus, opts ...Si7021Option) (*Si7021, error) {
	config := Si7021Config{
		Address:         Si7021DefaultAddress,
		SettleDelay:     iaq.DefaultSettleDelay,
		ConversionDelay: 30 * time.Millisecond,
		CheckCRC:        true,
	}
	for _, opt := range opts {
		opt(&config)
	}
	s := &Si7021{
		dev:    register.NewDevice(transport, config.Address),
		config: config,
		now:    time.Now,
	}
	if err := s.bringUp(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Si7021) bringUp(ctx context.Context) error {
	s.state = iaq.StateBringingUp
	slog.Info("resetting si7021", "addr", s.config.Address)
	if err := s.dev.WriteCommand(ctx, si7021CmdReset); err != nil {
		return fmt.Errorf("si7021: reset failed: %w", err)
	}
	if err := iaq.Sleep(ctx, s.config.SettleDelay); err != nil {
		return err
	}
	serial, err := s.readSerial(ctx)
	if err != nil {
		return err
	}
	s.serial = serial
	rev, err := s.command(ctx, 1, si7021CmdFirmwareRevision1, si7021CmdFirmwareRevision2)
	if err != nil {
		return fmt.Errorf("si7021: could not read firmware revision: %w", err)
	}
	s.fwRevision = rev[0]
	slog.Info("si7021 ready", "serial", fmt.Sprintf("%016x", s.serial), "firmware", s.FirmwareVersion())
	s.state = iaq.StateReady
	return nil
}

// command writes cmd and reads exactly count bytes back.
func (s *Si7021) command(ctx context.Context, count int, cmd ...byte) ([]byte, error) {
	if err := s.dev.WriteCommand(ctx, cmd...); err != nil {
		return nil, err
	}
	data, err := s.dev.Read(ctx, count)
	if err != nil {
		return nil, err
	}
	if len(data) != count {
		return nil, fmt.Errorf("%w: got %d of %d bytes", iaq.ErrShortRead, len(data), count)
	}
	return data, nil
}

// readSerial assembles the 64-bit electronic id from two accesses. Checksums are
// cumulative: each covers all id bytes of the access received so far.
func (s *Si7021) readSerial(ctx context.Context) (uint64, error) {
	first, err := s.command(ctx, 8, si7021CmdSerialFirstAccess1, si7021CmdSerialFirstAccess2)
	if err != nil {
		return 0, fmt.Errorf("si7021: could not read serial (SNA): %w", err)
	}
	// SNA_3 CRC SNA_2 CRC SNA_1 CRC SNA_0 CRC
	sna := make([]byte, 0, 4)
	for i := 0; i < len(first); i += 2 {
		sna = append(sna, first[i])
		if err := s.verify(sna, first[i+1]); err != nil {
			return 0, fmt.Errorf("si7021: serial (SNA): %w", err)
		}
	}
	second, err := s.command(ctx, 6, si7021CmdSerialSecondAccess1, si7021CmdSerialSecondAccess2)
	if err != nil {
		return 0, fmt.Errorf("si7021: could not read serial (SNB): %w", err)
	}
	// SNB_3 SNB_2 CRC SNB_1 SNB_0 CRC
	snb := []byte{second[0], second[1], second[3], second[4]}
	if err := s.verify(snb[:2], second[2]); err != nil {
		return 0, fmt.Errorf("si7021: serial (SNB): %w", err)
	}
	if err := s.verify(snb, second[5]); err != nil {
		return 0, fmt.Errorf("si7021: serial (SNB): %w", err)
	}
	return uint64(binary.BigEndian.Uint32(sna))<<32 | uint64(binary.BigEndian.Uint32(snb)), nil
}

func (s *Si7021) verify(data []byte, expected byte) error {
	if !s.config.CheckCRC {
		return nil
	}
	if crc := crc8.Checksum(data, si7021Checksum); crc != expected {
		return fmt.Errorf("%w: expected %#02x, got %#02x", ErrChecksum, expected, crc)
	}
	return nil
}

// Measure triggers a humidity conversion and reads the temperature taken during
// the same conversion. A sensor that has not finished converting answers with no
// data, which is reported as iaq.ErrNotReady with the cache left untouched.
func (s *Si7021) Measure(ctx context.Context) error {
	if s.state == iaq.StateClosed {
		return iaq.ErrClosed
	}
	s.state = iaq.StateMeasuring
	defer func() { s.state = iaq.StateReady }()

	if err := s.dev.WriteCommand(ctx, si7021CmdMeasureRH); err != nil {
		return fmt.Errorf("si7021: could not start humidity conversion: %w", err)
	}
	if err := iaq.Sleep(ctx, s.config.ConversionDelay); err != nil {
		return err
	}
	size := 2
	if s.config.CheckCRC {
		size = 3
	}
	rh, err := s.readCode(ctx, size)
	if err != nil {
		return fmt.Errorf("si7021: humidity: %w", err)
	}
	if s.config.CheckCRC {
		if err := s.verify(rh[:2], rh[2]); err != nil {
			return fmt.Errorf("si7021: humidity: %w", err)
		}
	}
	if err := s.dev.WriteCommand(ctx, si7021CmdTempFromPreviousRH); err != nil {
		return fmt.Errorf("si7021: could not request temperature: %w", err)
	}
	temp, err := s.readCode(ctx, 2)
	if err != nil {
		return fmt.Errorf("si7021: temperature: %w", err)
	}
	s.humidity = convertSi7021Humidity(binary.BigEndian.Uint16(rh))
	s.temperature = convertSi7021Temperature(binary.BigEndian.Uint16(temp))
	s.measuredAt = s.now()
	return nil
}

func (s *Si7021) readCode(ctx context.Context, size int) ([]byte, error) {
	data, err := s.dev.Read(ctx, size)
	if err != nil {
		return nil, err
	}
	switch len(data) {
	case 0:
		return nil, iaq.ErrNotReady
	case size:
		return data, nil
	default:
		return nil, fmt.Errorf("%w: got %d of %d bytes", iaq.ErrShortRead, len(data), size)
	}
}

// convertSi7021Humidity applies RH = 125*code/65536 - 6. Values slightly outside
// 0..100 are possible and reported as such.
func convertSi7021Humidity(code uint16) float64 {
	return 125*float64(code)/65536 - 6
}

func convertSi7021Temperature(code uint16) float64 {
	return 175.72*float64(code)/65536 - 46.85
}

// Humidity returns the last relative humidity in %RH.
func (s *Si7021) Humidity() float64 {
	return s.humidity
}

// Temperature returns the last temperature in °C.
func (s *Si7021) Temperature() float64 {
	return s.temperature
}

func (s *Si7021) LastMeasurement() time.Time {
	return s.measuredAt
}

func (s *Si7021) Serial() uint64 {
	return s.serial
}

func (s *Si7021) FirmwareRevision() byte {
	return s.fwRevision
}

// FirmwareVersion decodes the revision byte: 0xFF is 1.0 and 0x20 is 2.0.
func (s *Si7021) FirmwareVersion() string {
	switch s.fwRevision {
	case 0xFF:
		return "1.0"
	case 0x20:
		return "2.0"
	default:
		return fmt.Sprintf("unknown (%#02x)", s.fwRevision)
	}
}

func (s *Si7021) State() iaq.State {
	return s.state
}

// Sense fills temperature and humidity of e from the last measurement.
func (s *Si7021) Sense(e *physic.Env) {
	e.Temperature = physic.Temperature(s.temperature*1000)*physic.MilliCelsius + physic.ZeroCelsius
	e.Humidity = physic.RelativeHumidity(s.humidity * float64(physic.PercentRH))
}

// Close marks the driver closed and releases the transport binding. Drivers
// sharing one transport share that binding, so close them only once the whole
// station is done; later calls are no-ops.
func (s *Si7021) Close(ctx context.Context) error {
	if s.state == iaq.StateClosed {
		return nil
	}
	s.state = iaq.StateClosed
	return s.dev.Release(ctx)
}
