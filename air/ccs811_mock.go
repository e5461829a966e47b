package air

import (
	"context"
	"time"
)

// SampleBehaviorFunc produces one eCO2 (ppm) and TVOC (ppb) sample or an error.
type SampleBehaviorFunc func(ctx context.Context) (uint16, uint16, error)

// MockCCS811 behaves like CCS811 without hardware. Samples come from a behavior
// function and, as with the real sensor, a failed sample keeps the previous values.
//
// Example usage:
//
//	sensor := NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) { return 400, 0, nil })
type MockCCS811 struct {
	behavior SampleBehaviorFunc

	co2         uint16
	tvoc        uint16
	humidity    float64
	temperature float64
	measuredAt  time.Time
}

func NewMockCCS811(behavior SampleBehaviorFunc) *MockCCS811 {
	return &MockCCS811{behavior: behavior}
}

func (m *MockCCS811) ReadSensors(ctx context.Context) error {
	co2, tvoc, err := m.behavior(ctx)
	if err != nil {
		return err
	}
	m.co2, m.tvoc = co2&resultMask, tvoc&resultMask
	m.measuredAt = time.Now()
	return nil
}

// SetEnvironmentalData records the compensation values; see EnvironmentalData.
func (m *MockCCS811) SetEnvironmentalData(ctx context.Context, humidity, temperature float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.humidity, m.temperature = humidity, temperature
	return nil
}

// EnvironmentalData returns the last humidity and temperature passed to SetEnvironmentalData.
func (m *MockCCS811) EnvironmentalData() (float64, float64) {
	return m.humidity, m.temperature
}

func (m *MockCCS811) CO2() uint16 {
	return m.co2
}

func (m *MockCCS811) TVOC() uint16 {
	return m.tvoc
}

func (m *MockCCS811) LastMeasurement() time.Time {
	return m.measuredAt
}
