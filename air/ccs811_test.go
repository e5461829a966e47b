package air

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/internal/bustest"
)

const addr = CCS811DefaultAddress

func expectBringUp(bus *bustest.MockI2CBus) {
	bus.ExpectRegister(addr, 0x20, 0x81)
	bus.ExpectWrite(addr, 0xFF, 0x11, 0xE5, 0x72, 0x8A)
	bus.ExpectRegister(addr, 0x00, 0x10)
	bus.ExpectRegister(addr, 0x21, 0x12)
	bus.ExpectRegister(addr, 0x23, 0x10, 0x00)
	bus.ExpectRegister(addr, 0x24, 0x20, 0x00)
	bus.ExpectWrite(addr, 0xF4)
	bus.ExpectRegister(addr, 0x00, 0x90)
	bus.ExpectWrite(addr, 0x01, 0x10)
}

func newTestCCS811(t *testing.T, bus *bustest.MockI2CBus) *CCS811 {
	t.Helper()
	expectBringUp(bus)
	s, err := NewCCS811(context.Background(), bus, WithSettleDelay(0), WithStartDelay(0))
	require.NoError(t, err)
	return s
}

func TestCCS811_BringUp(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	s := newTestCCS811(t, bus)
	assert.Equal(t, iaq.StateReady, s.State())
	assert.Equal(t, Version{Major: 1, Minor: 2}, s.HardwareVersion())
	assert.Equal(t, "1.0.0", s.BootVersion().String())
	assert.Equal(t, "2.0.0", s.AppVersion().String())
	bus.AssertExpectations(t)
}

func TestCCS811_BringUp_DriveMode(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	bus.ExpectRegister(addr, 0x20, 0x81)
	bus.ExpectWrite(addr, 0xFF, 0x11, 0xE5, 0x72, 0x8A)
	bus.ExpectRegister(addr, 0x00, 0x10)
	bus.ExpectRegister(addr, 0x21, 0x12)
	bus.ExpectRegister(addr, 0x23, 0x10, 0x00)
	bus.ExpectRegister(addr, 0x24, 0x20, 0x00)
	bus.ExpectWrite(addr, 0xF4)
	bus.ExpectRegister(addr, 0x00, 0x90)
	bus.ExpectWrite(addr, 0x01, 0x20)
	s, err := NewCCS811(context.Background(), bus, WithSettleDelay(0), WithStartDelay(0), WithDriveMode(DriveMode10s))
	require.NoError(t, err)
	assert.Equal(t, DriveMode10s, s.DriveMode())
	assert.Equal(t, 10*time.Second, s.DriveMode().Interval())
	assert.Zero(t, DriveModeIdle.Interval())
	bus.AssertExpectations(t)
}

func TestCCS811_BringUp_InvalidHardwareID(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	bus.ExpectRegister(addr, 0x20, 0x55)
	s, err := NewCCS811(context.Background(), bus, WithSettleDelay(0))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, iaq.ErrInvalidDevice)
	// the reset sequence is never sent to an unknown device
	bus.AssertNumberOfCalls(t, "WriteToAddr", 1)
}

func TestCCS811_BringUp_NoApplication(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	bus.ExpectRegister(addr, 0x20, 0x81)
	bus.ExpectWrite(addr, 0xFF, 0x11, 0xE5, 0x72, 0x8A)
	bus.ExpectRegister(addr, 0x00, 0x00)
	s, err := NewCCS811(context.Background(), bus, WithSettleDelay(0))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, iaq.ErrInvalidDevice)
}

func TestCCS811_BringUp_NotInApplicationMode(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	bus.ExpectRegister(addr, 0x20, 0x81)
	bus.ExpectWrite(addr, 0xFF, 0x11, 0xE5, 0x72, 0x8A)
	bus.ExpectRegister(addr, 0x00, 0x10)
	bus.ExpectRegister(addr, 0x21, 0x12)
	bus.ExpectRegister(addr, 0x23, 0x10, 0x00)
	bus.ExpectRegister(addr, 0x24, 0x20, 0x00)
	bus.ExpectWrite(addr, 0xF4)
	bus.ExpectRegister(addr, 0x00, 0x10)
	s, err := NewCCS811(context.Background(), bus, WithSettleDelay(0), WithStartDelay(0))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, iaq.ErrInvalidDevice)
}

func TestCCS811_BringUp_ShortVersion(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	bus.ExpectRegister(addr, 0x20, 0x81)
	bus.ExpectWrite(addr, 0xFF, 0x11, 0xE5, 0x72, 0x8A)
	bus.ExpectRegister(addr, 0x00, 0x10)
	bus.ExpectRegister(addr, 0x21, 0x12)
	bus.ExpectRegister(addr, 0x23, 0x10)
	s, err := NewCCS811(context.Background(), bus, WithSettleDelay(0))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, iaq.ErrShortRead)
}

func TestCCS811_ReadSensors(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	s := newTestCCS811(t, bus)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	bus.ExpectRegister(addr, 0x00, 0x98)
	bus.ExpectRegister(addr, 0x02, 0x01, 0x90, 0x00, 0x64, 0x98, 0x00, 0x4D, 0x2C)
	require.NoError(t, s.ReadSensors(context.Background()))

	assert.Equal(t, uint16(400), s.CO2())
	assert.Equal(t, uint16(100), s.TVOC())
	current, adc := s.RawData()
	assert.Equal(t, uint8(19), current)
	assert.Equal(t, uint16(0x12C), adc)
	assert.Equal(t, at, s.LastMeasurement())
	assert.Equal(t, iaq.StateReady, s.State())

	// getters never touch the bus
	assert.Equal(t, s.CO2(), s.CO2())
	assert.Equal(t, s.TVOC(), s.TVOC())
	bus.AssertExpectations(t)
}

func TestCCS811_ReadSensors_MasksTopBit(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	s := newTestCCS811(t, bus)
	bus.ExpectRegister(addr, 0x00, 0x98)
	bus.ExpectRegister(addr, 0x02, 0x81, 0x90, 0x80, 0x64, 0x98, 0x00, 0x00, 0x00)
	require.NoError(t, s.ReadSensors(context.Background()))
	assert.Equal(t, uint16(400), s.CO2())
	assert.Equal(t, uint16(100), s.TVOC())
}

func TestCCS811_DecodeResult_TopBitAlwaysClear(t *testing.T) {
	for hi := 0; hi < 256; hi++ {
		for _, lo := range []byte{0x00, 0x5A, 0xFF} {
			co2, tvoc := decodeResult([]byte{byte(hi), lo, byte(hi), lo})
			assert.Zero(t, co2&0x8000)
			assert.Zero(t, tvoc&0x8000)
			assert.Equal(t, uint16(hi&0x7F)<<8|uint16(lo), co2)
		}
	}
}

func expectFirstSample(bus *bustest.MockI2CBus) {
	bus.ExpectRegister(addr, 0x00, 0x98)
	bus.ExpectRegister(addr, 0x02, 0x01, 0x90, 0x00, 0x64, 0x98, 0x00, 0x00, 0x00)
}

func TestCCS811_ReadSensors_KeepsLastGoodReading(t *testing.T) {
	tests := []struct {
		name     string
		expect   func(bus *bustest.MockI2CBus)
		expected error
	}{
		{
			name: "data not ready",
			expect: func(bus *bustest.MockI2CBus) {
				bus.ExpectRegister(addr, 0x00, 0x90)
			},
			expected: iaq.ErrNotReady,
		},
		{
			name: "error flag",
			expect: func(bus *bustest.MockI2CBus) {
				bus.ExpectRegister(addr, 0x00, 0x99)
				bus.ExpectRegister(addr, 0xE0, 0x10)
			},
			expected: ErrHeaterFault,
		},
		{
			name: "embedded status not ready",
			expect: func(bus *bustest.MockI2CBus) {
				bus.ExpectRegister(addr, 0x00, 0x98)
				bus.ExpectRegister(addr, 0x02, 0x02, 0x00, 0x00, 0x20, 0x90, 0x00, 0x00, 0x00)
			},
			expected: ErrStaleData,
		},
		{
			name: "embedded error",
			expect: func(bus *bustest.MockI2CBus) {
				bus.ExpectRegister(addr, 0x00, 0x98)
				bus.ExpectRegister(addr, 0x02, 0x02, 0x00, 0x00, 0x20, 0x98, 0x08, 0x00, 0x00)
			},
			expected: ErrMaxResistance,
		},
		{
			name: "short result",
			expect: func(bus *bustest.MockI2CBus) {
				bus.ExpectRegister(addr, 0x00, 0x98)
				bus.ExpectRegister(addr, 0x02, 0x02, 0x00, 0x00)
			},
			expected: iaq.ErrShortRead,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(bustest.MockI2CBus)
			s := newTestCCS811(t, bus)
			expectFirstSample(bus)
			require.NoError(t, s.ReadSensors(context.Background()))
			measuredAt := s.LastMeasurement()

			tt.expect(bus)
			err := s.ReadSensors(context.Background())
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, uint16(400), s.CO2())
			assert.Equal(t, uint16(100), s.TVOC())
			assert.Equal(t, measuredAt, s.LastMeasurement())
			assert.Equal(t, iaq.StateReady, s.State())
			bus.AssertExpectations(t)
		})
	}
}

func TestCCS811_ReadSensors_NotReadySkipsResult(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	s := newTestCCS811(t, bus)
	bus.ExpectRegister(addr, 0x00, 0x90)
	assert.ErrorIs(t, s.ReadSensors(context.Background()), iaq.ErrNotReady)
	bus.AssertNotCalled(t, "WriteToAddr", mock.Anything, byte(addr), []byte{0x02})
	assert.Zero(t, s.CO2())
	assert.True(t, s.LastMeasurement().IsZero())
}

func TestCCS811_ReadSensors_BusError(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	s := newTestCCS811(t, bus)
	bus.On("WriteToAddr", mock.Anything, byte(addr), []byte{0x00}).Return(errors.New("nack")).Once()
	err := s.ReadSensors(context.Background())
	var busErr *iaq.BusError
	assert.ErrorAs(t, err, &busErr)
}

func TestCCS811_SetEnvironmentalData(t *testing.T) {
	tests := []struct {
		name        string
		humidity    float64
		temperature float64
		expected    []byte
	}{
		{"datasheet example", 48.5, 25, []byte{0x61, 0x00, 0x64, 0x00}},
		{"fraction", 50.25, 22.5, []byte{0x64, 0x80, 0x5F, 0x00}},
		{"below zero", 30, -10, []byte{0x3C, 0x00, 0x1E, 0x00}},
		{"clamped", -1, -30, []byte{0x00, 0x00, 0x00, 0x00}},
		{"saturated", 200, math.Inf(1), []byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, encodeEnvData(tt.humidity, tt.temperature))
		})
	}

	bus := new(bustest.MockI2CBus)
	s := newTestCCS811(t, bus)
	bus.ExpectWrite(addr, 0x05, 0x61, 0x00, 0x64, 0x00)
	require.NoError(t, s.SetEnvironmentalData(context.Background(), 48.5, 25))
	bus.AssertExpectations(t)
}

func TestCCS811_Baseline(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	s := newTestCCS811(t, bus)
	bus.ExpectRegister(addr, 0x11, 0x84, 0xB3)
	baseline, err := s.Baseline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(0x84B3), baseline)

	bus.ExpectWrite(addr, 0x11, 0x84, 0xB3)
	require.NoError(t, s.SetBaseline(context.Background(), baseline))
	bus.AssertExpectations(t)
}

func TestCCS811_NTC(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	s := newTestCCS811(t, bus)
	bus.ExpectRegister(addr, 0x06, 0x03, 0x20, 0x01, 0x90)
	ref, ntc, err := s.NTC(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(800), ref)
	assert.Equal(t, uint16(400), ntc)
}

func TestCCS811_Close(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	s := newTestCCS811(t, bus)
	bus.On("Release", mock.Anything).Return(nil).Once()
	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))
	bus.AssertNumberOfCalls(t, "Release", 1)
	assert.Equal(t, iaq.StateClosed, s.State())
	assert.ErrorIs(t, s.ReadSensors(context.Background()), iaq.ErrClosed)
	assert.ErrorIs(t, s.SetEnvironmentalData(context.Background(), 40, 20), iaq.ErrClosed)
	_, err := s.Baseline(context.Background())
	assert.ErrorIs(t, err, iaq.ErrClosed)
	bus.AssertExpectations(t)
}

func TestDeviceError(t *testing.T) {
	err := error(DeviceError(0x11))
	assert.Equal(t, "ccs811: device error WRITE_REG_INVALID|HEATER_FAULT", err.Error())
	assert.ErrorIs(t, err, ErrHeaterFault)
	assert.ErrorIs(t, err, ErrWriteRegInvalid)
	assert.NotErrorIs(t, err, ErrHeaterSupply)
	assert.Equal(t, "ccs811: device error 0x80", DeviceError(0x80).Error())
}
