package environment

import (
	"context"
	"time"
)

// TemperatureBehaviorFunc returns the temperature in Celsius or an error.
type TemperatureBehaviorFunc func(ctx context.Context) (float64, error)

// HumidityBehaviorFunc returns the relative humidity in %RH or an error.
type HumidityBehaviorFunc func(ctx context.Context) (float64, error)

// PressureBehaviorFunc returns the pressure in hPa or an error.
type PressureBehaviorFunc func(ctx context.Context) (float64, error)

// MockHumiditySensor stands in for Si7021 without any hardware. Measure calls the
// humidity behavior first, then the temperature behavior; values are cached only
// when both succeed.
//
// Example usage:
//
//	temp := 20.0
//	sensor := NewMockHumiditySensor(
//		func(ctx context.Context) (float64, error) { return temp, nil },
//		func(ctx context.Context) (float64, error) { return 45.0, nil },
//	)
type MockHumiditySensor struct {
	tempBehavior TemperatureBehaviorFunc
	humBehavior  HumidityBehaviorFunc

	temperature float64
	humidity    float64
	measuredAt  time.Time
}

func NewMockHumiditySensor(tempBehavior TemperatureBehaviorFunc, humBehavior HumidityBehaviorFunc) *MockHumiditySensor {
	return &MockHumiditySensor{
		tempBehavior: tempBehavior,
		humBehavior:  humBehavior,
	}
}

func (m *MockHumiditySensor) Measure(ctx context.Context) error {
	hum, err := m.humBehavior(ctx)
	if err != nil {
		return err
	}
	temp, err := m.tempBehavior(ctx)
	if err != nil {
		return err
	}
	m.humidity, m.temperature = hum, temp
	m.measuredAt = time.Now()
	return nil
}

func (m *MockHumiditySensor) Humidity() float64 {
	return m.humidity
}

func (m *MockHumiditySensor) Temperature() float64 {
	return m.temperature
}

func (m *MockHumiditySensor) LastMeasurement() time.Time {
	return m.measuredAt
}

// MockPressureSensor stands in for BMP280. Temperature is always sampled before
// pressure, mirroring the compensation order of the real device.
type MockPressureSensor struct {
	tempBehavior     TemperatureBehaviorFunc
	pressureBehavior PressureBehaviorFunc

	temperature float64
	pressure    float64
	measuredAt  time.Time
}

func NewMockPressureSensor(tempBehavior TemperatureBehaviorFunc, pressureBehavior PressureBehaviorFunc) *MockPressureSensor {
	return &MockPressureSensor{
		tempBehavior:     tempBehavior,
		pressureBehavior: pressureBehavior,
	}
}

func (m *MockPressureSensor) Measure(ctx context.Context) error {
	temp, err := m.tempBehavior(ctx)
	if err != nil {
		return err
	}
	pressure, err := m.pressureBehavior(ctx)
	if err != nil {
		return err
	}
	m.temperature, m.pressure = temp, pressure
	m.measuredAt = time.Now()
	return nil
}

func (m *MockPressureSensor) Temperature() float64 {
	return m.temperature
}

func (m *MockPressureSensor) Pressure() float64 {
	return m.pressure
}

func (m *MockPressureSensor) LastMeasurement() time.Time {
	return m.measuredAt
}
