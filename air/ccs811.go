package air

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/register"
)

// CCS811DefaultAddress is the address with ADDR pulled high.
const CCS811DefaultAddress = 0x5B

const ccs811HardwareID = 0x81

// APP_START is a bare command, not a mailbox
const cmdAppStart = 0xF4

var resetSequence = []byte{0x11, 0xE5, 0x72, 0x8A}

// STATUS bits
const (
	statusError     = 0x01
	statusDataReady = 0x08
	statusAppValid  = 0x10
	statusFWMode    = 0x80
)

// statusResultReady is the STATUS copy embedded in a fresh ALG_RESULT_DATA payload:
// firmware in application mode, valid application and data ready.
const statusResultReady = statusFWMode | statusAppValid | statusDataReady

// the top bit of eCO2 and TVOC is sporadically set by the sensor
const resultMask = 0x7FFF

// DriveMode selects the measurement cadence written to MEAS_MODE.
type DriveMode byte

const (
	DriveModeIdle  DriveMode = 0
	DriveMode1s    DriveMode = 1
	DriveMode10s   DriveMode = 2
	DriveMode60s   DriveMode = 3
	DriveMode250ms DriveMode = 4
)

// Interval is the time between samples in the mode; zero when idle.
func (m DriveMode) Interval() time.Duration {
	switch m {
	case DriveMode1s:
		return time.Second
	case DriveMode10s:
		return 10 * time.Second
	case DriveMode60s:
		return time.Minute
	case DriveMode250ms:
		return 250 * time.Millisecond
	default:
		return 0
	}
}

type CCS811Opts struct {
	Address     byte
	SettleDelay time.Duration
	StartDelay  time.Duration
	DriveMode   DriveMode
}

type CCS811Opt func(*CCS811Opts)

func WithAddress(address byte) CCS811Opt {
	return func(o *CCS811Opts) {
		o.Address = address
	}
}

// WithSettleDelay sets the wait after the software reset.
func WithSettleDelay(delay time.Duration) CCS811Opt {
	return func(o *CCS811Opts) {
		o.SettleDelay = delay
	}
}

// WithStartDelay sets the wait between APP_START and the first application command.
func WithStartDelay(delay time.Duration) CCS811Opt {
	return func(o *CCS811Opts) {
		o.StartDelay = delay
	}
}

func WithDriveMode(mode DriveMode) CCS811Opt {
	return func(o *CCS811Opts) {
		o.DriveMode = mode
	}
}

// Version is a firmware or hardware version split into nibbles.
type Version struct {
	Major   uint8
	Minor   uint8
	Trivial uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Trivial)
}

func decodeVersion(b []byte) Version {
	v := Version{Major: b[0] >> 4, Minor: b[0] & 0x0F}
	if len(b) > 1 {
		v.Trivial = b[1]
	}
	return v
}

// CCS811 represents ams CCS811 eCO2/TVOC sensor.
// Typical usage:
//
//	s, err := NewCCS811(ctx, bus)
//	err = s.ReadSensors(ctx)
//	co2, tvoc := s.CO2(), s.TVOC()
//
// ReadSensors only updates the cached values when the device signals a fresh,
// error free sample; otherwise the last good reading is kept.
type CCS811 struct {
	dev    *register.Device
	config CCS811Opts
	state  iaq.State
	now    func() time.Time

	hwVersion   Version
	bootVersion Version
	appVersion  Version

	co2        uint16
	tvoc       uint16
	current    uint8
	rawADC     uint16
	measuredAt time.Time
}

// NewCCS811 verifies the hardware id, resets the sensor, starts its application
// firmware and selects the drive mode. No driver is returned if any step fails.
func NewCCS811(ctx context.Context, transport iaq.I2CBus, opts ...CCS811Opt) (*CCS811, error) {
	config := CCS811Opts{
		Address:     CCS811DefaultAddress,
		SettleDelay: iaq.DefaultSettleDelay,
		StartDelay:  10 * time.Millisecond,
		DriveMode:   DriveMode1s,
	}
	for _, opt := range opts {
		opt(&config)
	}
	s := &CCS811{
		dev:    register.NewDevice(transport, config.Address),
		config: config,
		now:    time.Now,
	}
	if err := s.bringUp(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CCS811) read(ctx context.Context, m Mailbox) ([]byte, error) {
	data, err := s.dev.ReadMailbox(ctx, m.Channel())
	if err != nil {
		return nil, fmt.Errorf("ccs811: %s: %w", m, err)
	}
	return data, nil
}

func (s *CCS811) write(ctx context.Context, m Mailbox, payload []byte) error {
	if err := s.dev.WriteMailbox(ctx, m.Channel(), payload); err != nil {
		return fmt.Errorf("ccs811: %s: %w", m, err)
	}
	return nil
}

func (s *CCS811) bringUp(ctx context.Context) error {
	s.state = iaq.StateBringingUp
	slog.Info("checking ccs811 hardware id", "addr", s.config.Address)
	id, err := s.read(ctx, MailboxHWID)
	if err != nil {
		return err
	}
	if id[0] != ccs811HardwareID {
		return fmt.Errorf("%w: ccs811 hardware id %#02x, expected %#02x", iaq.ErrInvalidDevice, id[0], ccs811HardwareID)
	}
	slog.Info("resetting ccs811")
	if err := s.write(ctx, MailboxSWReset, resetSequence); err != nil {
		return err
	}
	if err := iaq.Sleep(ctx, s.config.SettleDelay); err != nil {
		return err
	}
	status, err := s.read(ctx, MailboxStatus)
	if err != nil {
		return err
	}
	if status[0]&statusAppValid == 0 {
		return fmt.Errorf("%w: ccs811 has no valid application firmware (status %#02x)", iaq.ErrInvalidDevice, status[0])
	}
	if err := s.readVersions(ctx); err != nil {
		return err
	}
	slog.Info("starting ccs811 application",
		"hw", fmt.Sprintf("%d.%d", s.hwVersion.Major, s.hwVersion.Minor), "boot", s.bootVersion, "app", s.appVersion)
	if err := s.dev.WriteCommand(ctx, cmdAppStart); err != nil {
		return fmt.Errorf("ccs811: app start failed: %w", err)
	}
	if err := iaq.Sleep(ctx, s.config.StartDelay); err != nil {
		return err
	}
	status, err = s.read(ctx, MailboxStatus)
	if err != nil {
		return err
	}
	if status[0]&statusFWMode == 0 {
		return fmt.Errorf("%w: ccs811 did not enter application mode (status %#02x)", iaq.ErrInvalidDevice, status[0])
	}
	slog.Info("configuring ccs811 measurement mode", "drive_mode", s.config.DriveMode)
	if err := s.write(ctx, MailboxMeasMode, []byte{byte(s.config.DriveMode) << 4}); err != nil {
		return err
	}
	s.state = iaq.StateReady
	return nil
}

func (s *CCS811) readVersions(ctx context.Context) error {
	hw, err := s.read(ctx, MailboxHWVersion)
	if err != nil {
		return err
	}
	boot, err := s.read(ctx, MailboxFWBootVersion)
	if err != nil {
		return err
	}
	app, err := s.read(ctx, MailboxFWAppVersion)
	if err != nil {
		return err
	}
	s.hwVersion = decodeVersion(hw)
	s.bootVersion = decodeVersion(boot)
	s.appVersion = decodeVersion(app)
	return nil
}

// ReadSensors reads one sample. The channel status, the status embedded in the
// result and the embedded error code must all agree before eCO2 and TVOC are
// updated. iaq.ErrNotReady means no new sample was available yet.
func (s *CCS811) ReadSensors(ctx context.Context) error {
	if s.state == iaq.StateClosed {
		return iaq.ErrClosed
	}
	s.state = iaq.StateMeasuring
	defer func() { s.state = iaq.StateReady }()

	status, err := s.read(ctx, MailboxStatus)
	if err != nil {
		return err
	}
	if status[0]&statusError != 0 {
		return s.deviceError(ctx)
	}
	if status[0]&statusDataReady == 0 {
		return iaq.ErrNotReady
	}
	data, err := s.read(ctx, MailboxAlgResultData)
	if err != nil {
		return err
	}
	if data[5] != 0 {
		return DeviceError(data[5])
	}
	if data[4] != statusResultReady {
		return fmt.Errorf("%w: status %#02x", ErrStaleData, data[4])
	}
	s.co2, s.tvoc = decodeResult(data)
	s.current, s.rawADC = decodeRawData(data[6:8])
	s.measuredAt = s.now()
	return nil
}

func (s *CCS811) deviceError(ctx context.Context) error {
	code, err := s.read(ctx, MailboxErrorID)
	if err != nil {
		return fmt.Errorf("ccs811: error flag set, could not read error id: %w", err)
	}
	return DeviceError(code[0])
}

// decodeResult extracts eCO2 (ppm) and TVOC (ppb) from ALG_RESULT_DATA.
func decodeResult(data []byte) (uint16, uint16) {
	co2 := binary.BigEndian.Uint16(data[0:2]) & resultMask
	tvoc := binary.BigEndian.Uint16(data[2:4]) & resultMask
	return co2, tvoc
}

// decodeRawData splits RAW_DATA into the sensor current (µA, 6 bits) and the
// 10-bit voltage ADC reading.
func decodeRawData(b []byte) (uint8, uint16) {
	return b[0] >> 2, uint16(b[0]&0x03)<<8 | uint16(b[1])
}

// SetEnvironmentalData feeds relative humidity (%) and temperature (°C) to the
// sensor's compensation.
func (s *CCS811) SetEnvironmentalData(ctx context.Context, humidity, temperature float64) error {
	if s.state == iaq.StateClosed {
		return iaq.ErrClosed
	}
	return s.write(ctx, MailboxEnvData, encodeEnvData(humidity, temperature))
}

// encodeEnvData packs humidity and temperature+25 as unsigned 1/512 fixed point,
// big endian, clamped to the representable range.
func encodeEnvData(humidity, temperature float64) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], fixed512(humidity))
	binary.BigEndian.PutUint16(buf[2:4], fixed512(temperature+25))
	return buf
}

func fixed512(v float64) uint16 {
	scaled := math.Round(v * 512)
	switch {
	case math.IsNaN(scaled) || scaled < 0:
		return 0
	case scaled > math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(scaled)
}

// Baseline reads the current algorithm baseline.
func (s *CCS811) Baseline(ctx context.Context) (uint16, error) {
	if s.state == iaq.StateClosed {
		return 0, iaq.ErrClosed
	}
	data, err := s.read(ctx, MailboxBaseline)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(data), nil
}

// SetBaseline restores a baseline previously obtained with Baseline.
func (s *CCS811) SetBaseline(ctx context.Context, baseline uint16) error {
	if s.state == iaq.StateClosed {
		return iaq.ErrClosed
	}
	return s.write(ctx, MailboxBaseline, binary.BigEndian.AppendUint16(nil, baseline))
}

// NTC reads the voltages across the reference resistor and the NTC thermistor.
func (s *CCS811) NTC(ctx context.Context) (uint16, uint16, error) {
	if s.state == iaq.StateClosed {
		return 0, 0, iaq.ErrClosed
	}
	data, err := s.read(ctx, MailboxNTC)
	if err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint16(data[0:2]), binary.BigEndian.Uint16(data[2:4]), nil
}

// CO2 returns the last equivalent CO2 in ppm.
func (s *CCS811) CO2() uint16 {
	return s.co2
}

// TVOC returns the last total volatile organic compounds in ppb.
func (s *CCS811) TVOC() uint16 {
	return s.tvoc
}

// RawData returns the sensor current (µA) and voltage ADC code of the last sample.
func (s *CCS811) RawData() (uint8, uint16) {
	return s.current, s.rawADC
}

func (s *CCS811) LastMeasurement() time.Time {
	return s.measuredAt
}

func (s *CCS811) HardwareVersion() Version {
	return s.hwVersion
}

func (s *CCS811) BootVersion() Version {
	return s.bootVersion
}

func (s *CCS811) AppVersion() Version {
	return s.appVersion
}

func (s *CCS811) DriveMode() DriveMode {
	return s.config.DriveMode
}

func (s *CCS811) State() iaq.State {
	return s.state
}

// Close marks the driver closed and releases the transport binding. Drivers
// sharing one transport share that binding, so close them only once the whole
// station is done; later calls are no-ops.
func (s *CCS811) Close(ctx context.Context) error {
	if s.state == iaq.StateClosed {
		return nil
	}
	s.state = iaq.StateClosed
	return s.dev.Release(ctx)
}
