// Package monitor samples the air quality, pressure and humidity sensors of one
// station and feeds the measured climate back into the air quality sensor.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/air"
	"github.com/mklimuk/iaq/environment"
)

var (
	_ AirQualitySensor = &air.CCS811{}
	_ AirQualitySensor = &air.MockCCS811{}
	_ PressureSensor   = &environment.BMP280{}
	_ PressureSensor   = &environment.MockPressureSensor{}
	_ HumiditySensor   = &environment.Si7021{}
	_ HumiditySensor   = &environment.MockHumiditySensor{}
)

// AirQualitySensor is implemented by air.CCS811.
type AirQualitySensor interface {
	ReadSensors(ctx context.Context) error
	SetEnvironmentalData(ctx context.Context, humidity, temperature float64) error
	CO2() uint16
	TVOC() uint16
}

// PressureSensor is implemented by environment.BMP280.
type PressureSensor interface {
	Measure(ctx context.Context) error
	Temperature() float64
	Pressure() float64
}

// HumiditySensor is implemented by environment.Si7021.
type HumiditySensor interface {
	Measure(ctx context.Context) error
	Temperature() float64
	Humidity() float64
}

// Reading is a snapshot of the cached values after one cycle. The Has* flags are
// set once a sensor has produced a good sample; until then its values stay zero
// and are left out of the temperature average and the feedback.
type Reading struct {
	Time time.Time

	HasAirQuality bool
	CO2           uint16
	TVOC          uint16

	HasPressure         bool
	Pressure            float64
	PressureTemperature float64

	HasHumidity         bool
	Humidity            float64
	HumidityTemperature float64
}

// Temperature averages the temperatures of the available climate sensors.
func (r Reading) Temperature() (float64, bool) {
	var sum float64
	var n int
	if r.HasPressure {
		sum += r.PressureTemperature
		n++
	}
	if r.HasHumidity {
		sum += r.HumidityTemperature
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

type StationOpt func(*Station)

func WithAirQuality(s AirQualitySensor) StationOpt {
	return func(st *Station) {
		st.air = s
	}
}

func WithPressure(s PressureSensor) StationOpt {
	return func(st *Station) {
		st.pressure = s
	}
}

func WithHumidity(s HumiditySensor) StationOpt {
	return func(st *Station) {
		st.humidity = s
	}
}

// Station polls the configured sensors in a fixed order. Sensor errors never
// stop the station: they are logged and the previous good values are reported.
type Station struct {
	air      AirQualitySensor
	pressure PressureSensor
	humidity HumiditySensor
	now      func() time.Time

	airSampled      bool
	pressureSampled bool
	humiditySampled bool

	mu     sync.RWMutex
	latest Reading
}

func NewStation(opts ...StationOpt) *Station {
	st := &Station{now: time.Now}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Cycle reads the air quality sensor, then the pressure and humidity sensors, and
// writes the resulting humidity and temperature to the air quality sensor for
// its next sample.
func (st *Station) Cycle(ctx context.Context) Reading {
	r := Reading{}
	if st.air != nil {
		st.airSampled = sample("ccs811", st.air.ReadSensors(ctx), st.airSampled)
		if st.airSampled {
			r.HasAirQuality = true
			r.CO2, r.TVOC = st.air.CO2(), st.air.TVOC()
		}
	}
	if st.pressure != nil {
		st.pressureSampled = sample("bmp280", st.pressure.Measure(ctx), st.pressureSampled)
		if st.pressureSampled {
			r.HasPressure = true
			r.Pressure, r.PressureTemperature = st.pressure.Pressure(), st.pressure.Temperature()
		}
	}
	if st.humidity != nil {
		st.humiditySampled = sample("si7021", st.humidity.Measure(ctx), st.humiditySampled)
		if st.humiditySampled {
			r.HasHumidity = true
			r.Humidity, r.HumidityTemperature = st.humidity.Humidity(), st.humidity.Temperature()
		}
	}
	r.Time = st.now()
	st.feedback(ctx, r)

	st.mu.Lock()
	st.latest = r
	st.mu.Unlock()
	return r
}

// feedback needs a humidity sample; temperature averages whichever sensors have one.
func (st *Station) feedback(ctx context.Context, r Reading) {
	if st.air == nil || !r.HasHumidity {
		return
	}
	temperature, _ := r.Temperature()
	slog.Debug("updating ccs811 environment", "humidity", r.Humidity, "temperature", temperature)
	if err := st.air.SetEnvironmentalData(ctx, r.Humidity, temperature); err != nil {
		slog.Error("could not update ccs811 environment", "error", err)
	}
}

// sample logs a failed measurement and reports whether the sensor has produced
// at least one good sample so far.
func sample(sensor string, err error, sampled bool) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, iaq.ErrNotReady):
		slog.Debug("no new sample", "sensor", sensor)
	default:
		slog.Error("measurement failed", "sensor", sensor, "error", err)
	}
	return sampled
}

// Latest returns the reading of the most recent cycle.
func (st *Station) Latest() Reading {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.latest
}

// Run performs a cycle immediately and then once per interval until ctx is done.
// Each reading is passed to report, which may be nil.
func (st *Station) Run(ctx context.Context, interval time.Duration, report func(Reading)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := st.Cycle(ctx)
		if report != nil {
			report(r)
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}
