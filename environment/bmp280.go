package environment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/register"
)

// BMP280DefaultAddress is the address with SDO tied to ground.
const BMP280DefaultAddress = 0x76

const bmp280ChipID = 0x58

const (
	bmp280RegCalibration = 0x88
	bmp280RegID          = 0xD0
	bmp280RegReset       = 0xE0
	bmp280RegStatus      = 0xF3
	bmp280RegCtrlMeas    = 0xF4
	bmp280RegConfig      = 0xF5
	bmp280RegData        = 0xF7
)

const (
	bmp280ResetCommand = 0xB6
	// status bit 0: NVM data is being copied to image registers
	bmp280StatusImUpdate = 0x01
)

const (
	oversamplingX1 = 0b001
	modeNormal     = 0b11
	standby500ms   = 0b100
	filterOff      = 0b000
)

// ctrl_meas: osrs_t[7:5] osrs_p[4:2] mode[1:0]
const bmp280CtrlMeas = oversamplingX1<<5 | oversamplingX1<<2 | modeNormal

// config: t_sb[7:5] filter[4:2] spi3w_en[0]
const bmp280Config = standby500ms<<5 | filterOff<<2

type BMP280Config struct {
	Address      byte
	SettleDelay  time.Duration
	StatusPolls  int
	PollInterval time.Duration
}

type BMP280Option func(*BMP280Config)

func WithBMP280Address(address byte) BMP280Option {
	return func(c *BMP280Config) {
		c.Address = address
	}
}

// WithBMP280SettleDelay sets the wait after the soft reset.
func WithBMP280SettleDelay(delay time.Duration) BMP280Option {
	return func(c *BMP280Config) {
		c.SettleDelay = delay
	}
}

// WithBMP280StatusPolling sets how many times and how often the status register is
// polled while the chip copies its calibration after reset.
func WithBMP280StatusPolling(polls int, interval time.Duration) BMP280Option {
	return func(c *BMP280Config) {
		c.StatusPolls = polls
		c.PollInterval = interval
	}
}

// BMP280 represents Bosch BMP280 pressure and temperature sensor.
// Typical usage:
//
//	s, err := NewBMP280(ctx, bus)
//	err = s.Measure(ctx)
//	t, p := s.Temperature(), s.Pressure()
//
// Compensation uses the datasheet integer formulas: temperature has a 0.01 °C
// resolution, pressure is kept as Q24.8 Pa (1/256 Pa resolution).
type BMP280 struct {
	dev    *register.Device
	config BMP280Config
	comp   compensator
	state  iaq.State
	now    func() time.Time

	temperature int32
	pressure    uint32
	measuredAt  time.Time
}

// NewBMP280 resets and configures the sensor. No driver is returned if any step of
// the bring-up fails.
func NewBMP280(ctx context.Context, transport iaq.I2CBus, opts ...BMP280Option) (*BMP280, error) {
	config := BMP280Config{
		Address:      BMP280DefaultAddress,
		SettleDelay:  iaq.DefaultSettleDelay,
		StatusPolls:  10,
		PollInterval: 5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	s := &BMP280{
		dev:    register.NewDevice(transport, config.Address),
		config: config,
		now:    time.Now,
	}
	if err := s.bringUp(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BMP280) bringUp(ctx context.Context) error {
	s.state = iaq.StateBringingUp
	slog.Info("resetting bmp280", "addr", s.config.Address)
	if err := s.dev.WriteRegister(ctx, bmp280RegReset, bmp280ResetCommand); err != nil {
		return fmt.Errorf("bmp280: reset failed: %w", err)
	}
	if err := iaq.Sleep(ctx, s.config.SettleDelay); err != nil {
		return err
	}
	if err := s.waitCalibrationCopied(ctx); err != nil {
		return err
	}
	id, err := s.dev.ReadRegisters(ctx, bmp280RegID, 1)
	if err != nil {
		return fmt.Errorf("bmp280: could not read chip id: %w", err)
	}
	if len(id) != 1 {
		return fmt.Errorf("bmp280: chip id: %w", iaq.ErrShortRead)
	}
	if id[0] != bmp280ChipID {
		return fmt.Errorf("%w: bmp280 chip id %#02x, expected %#02x", iaq.ErrInvalidDevice, id[0], bmp280ChipID)
	}
	block, err := s.dev.ReadRegisters(ctx, bmp280RegCalibration, bmp280CalibrationSize)
	if err != nil {
		return fmt.Errorf("bmp280: could not read calibration: %w", err)
	}
	s.comp.cal, err = decodeBMP280Calibration(block)
	if err != nil {
		return err
	}
	slog.Debug("bmp280 calibration loaded", "calibration", s.comp.cal)
	if err := s.dev.WriteRegister(ctx, bmp280RegCtrlMeas, bmp280CtrlMeas); err != nil {
		return fmt.Errorf("bmp280: could not set measurement control: %w", err)
	}
	if err := s.dev.WriteRegister(ctx, bmp280RegConfig, bmp280Config); err != nil {
		return fmt.Errorf("bmp280: could not set configuration: %w", err)
	}
	s.state = iaq.StateReady
	return nil
}

func (s *BMP280) waitCalibrationCopied(ctx context.Context) error {
	for i := 0; i < s.config.StatusPolls; i++ {
		status, err := s.dev.ReadRegisters(ctx, bmp280RegStatus, 1)
		if err != nil {
			return fmt.Errorf("bmp280: could not read status: %w", err)
		}
		if len(status) == 1 && status[0]&bmp280StatusImUpdate == 0 {
			return nil
		}
		if err := iaq.Sleep(ctx, s.config.PollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("bmp280: calibration copy did not complete: %w", iaq.ErrNotReady)
}

// Measure reads one sample and updates the cached values. Temperature is always
// compensated before pressure since the latter depends on its t_fine.
func (s *BMP280) Measure(ctx context.Context) error {
	if s.state == iaq.StateClosed {
		return iaq.ErrClosed
	}
	s.state = iaq.StateMeasuring
	defer func() { s.state = iaq.StateReady }()

	// a single burst keeps pressure and temperature from the same conversion
	data, err := s.dev.ReadRegisters(ctx, bmp280RegData, 6)
	if err != nil {
		return fmt.Errorf("bmp280: could not read data registers: %w", err)
	}
	if len(data) != 6 {
		return fmt.Errorf("bmp280: data registers returned %d of 6 bytes: %w", len(data), iaq.ErrShortRead)
	}
	adcP := rawBMP280(data[0:3])
	adcT := rawBMP280(data[3:6])

	s.comp.reset()
	t := s.comp.temperature(adcT)
	p, err := s.comp.pressure(adcP)
	if err != nil {
		return err
	}
	slog.Debug("bmp280 sample", "adc_t", adcT, "adc_p", adcP, "t_fine", s.comp.tFine, "t", t, "p", p)
	s.temperature = t
	s.pressure = p
	s.measuredAt = s.now()
	return nil
}

// Temperature returns the last temperature in °C.
func (s *BMP280) Temperature() float64 {
	return CentiCelsius(s.temperature)
}

// Pressure returns the last pressure in hPa.
func (s *BMP280) Pressure() float64 {
	return PascalQ248ToHectopascal(s.pressure)
}

// RawValues returns the last compensated values in their native fixed-point form:
// temperature in 0.01 °C and pressure in Q24.8 Pa.
func (s *BMP280) RawValues() (int32, uint32) {
	return s.temperature, s.pressure
}

func (s *BMP280) LastMeasurement() time.Time {
	return s.measuredAt
}

func (s *BMP280) Calibration() BMP280Calibration {
	return s.comp.cal
}

func (s *BMP280) State() iaq.State {
	return s.state
}

// Sense fills temperature and pressure of e from the last measurement.
func (s *BMP280) Sense(e *physic.Env) {
	e.Temperature = physic.Temperature(s.temperature)*10*physic.MilliCelsius + physic.ZeroCelsius
	// Q24.8 Pa: one LSB is 1/256 Pa = 15625/4 µPa
	e.Pressure = physic.Pressure(s.pressure) * 15625 * physic.MicroPascal / 4
}

// Close marks the driver closed and releases the transport binding. Drivers
// sharing one transport share that binding, so close them only once the whole
// station is done; later calls are no-ops.
func (s *BMP280) Close(ctx context.Context) error {
	if s.state == iaq.StateClosed {
		return nil
	}
	s.state = iaq.StateClosed
	return s.dev.Release(ctx)
}
