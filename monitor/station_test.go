package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/air"
	"github.com/mklimuk/iaq/environment"
)

func constant(v float64) func(ctx context.Context) (float64, error) {
	return func(ctx context.Context) (float64, error) { return v, nil }
}

func TestStation_Cycle(t *testing.T) {
	ccs := air.NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) { return 450, 25, nil })
	bmp := environment.NewMockPressureSensor(constant(20), constant(1006.53))
	si := environment.NewMockHumiditySensor(constant(22), constant(40))
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewStation(WithAirQuality(ccs), WithPressure(bmp), WithHumidity(si))
	st.now = func() time.Time { return at }

	r := st.Cycle(context.Background())
	assert.Equal(t, Reading{
		Time:                at,
		HasAirQuality:       true,
		CO2:                 450,
		TVOC:                25,
		HasPressure:         true,
		Pressure:            1006.53,
		PressureTemperature: 20,
		HasHumidity:         true,
		Humidity:            40,
		HumidityTemperature: 22,
	}, r)
	assert.Equal(t, r, st.Latest())

	rh, temp := ccs.EnvironmentalData()
	assert.Equal(t, 40.0, rh)
	assert.Equal(t, 21.0, temp)
}

func TestStation_Cycle_FeedbackWithHumidityOnly(t *testing.T) {
	ccs := air.NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) { return 400, 0, nil })
	si := environment.NewMockHumiditySensor(constant(23.5), constant(55))
	st := NewStation(WithAirQuality(ccs), WithHumidity(si))

	r := st.Cycle(context.Background())
	assert.False(t, r.HasPressure)
	rh, temp := ccs.EnvironmentalData()
	assert.Equal(t, 55.0, rh)
	assert.Equal(t, 23.5, temp)
}

func TestStation_Cycle_NoFeedbackWithoutHumidity(t *testing.T) {
	ccs := air.NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) { return 400, 0, nil })
	bmp := environment.NewMockPressureSensor(constant(20), constant(1000))
	st := NewStation(WithAirQuality(ccs), WithPressure(bmp))

	st.Cycle(context.Background())
	rh, temp := ccs.EnvironmentalData()
	assert.Zero(t, rh)
	assert.Zero(t, temp)
}

func TestStation_Cycle_ErrorsAreSwallowed(t *testing.T) {
	samples := 0
	ccs := air.NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) {
		samples++
		if samples > 1 {
			return 0, 0, iaq.ErrNotReady
		}
		return 410, 8, nil
	})
	failing := false
	bmp := environment.NewMockPressureSensor(constant(19), func(ctx context.Context) (float64, error) {
		if failing {
			return 0, errors.New("bus error")
		}
		return 998, nil
	})
	st := NewStation(WithAirQuality(ccs), WithPressure(bmp))

	first := st.Cycle(context.Background())
	failing = true
	second := st.Cycle(context.Background())
	assert.Equal(t, first.CO2, second.CO2)
	assert.Equal(t, first.TVOC, second.TVOC)
	assert.Equal(t, 998.0, second.Pressure)
}

func TestStation_Cycle_Empty(t *testing.T) {
	r := NewStation().Cycle(context.Background())
	assert.False(t, r.HasAirQuality)
	_, ok := r.Temperature()
	assert.False(t, ok)
}

func TestStation_Run(t *testing.T) {
	si := environment.NewMockHumiditySensor(constant(21), constant(45))
	st := NewStation(WithHumidity(si))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var readings []Reading
	err := st.Run(ctx, time.Millisecond, func(r Reading) {
		readings = append(readings, r)
		if len(readings) == 3 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, readings, 3)
	assert.Equal(t, 45.0, readings[2].Humidity)
}

func TestStation_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewStation().Run(ctx, time.Second, func(Reading) { called = true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStation_Cycle_NoFeedbackBeforeFirstHumiditySample(t *testing.T) {
	ccs := air.NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) { return 400, 0, nil })
	bmp := environment.NewMockPressureSensor(constant(22), constant(1006))
	humidityErr := iaq.ErrNotReady
	si := environment.NewMockHumiditySensor(constant(20), func(ctx context.Context) (float64, error) {
		return 48, humidityErr
	})
	st := NewStation(WithAirQuality(ccs), WithPressure(bmp), WithHumidity(si))

	r := st.Cycle(context.Background())
	assert.False(t, r.HasHumidity)
	temp, ok := r.Temperature()
	assert.True(t, ok)
	assert.Equal(t, 22.0, temp)
	rh, envTemp := ccs.EnvironmentalData()
	assert.Zero(t, rh)
	assert.Zero(t, envTemp)

	humidityErr = errors.New("checksum mismatch")
	st.Cycle(context.Background())
	rh, envTemp = ccs.EnvironmentalData()
	assert.Zero(t, rh)
	assert.Zero(t, envTemp)

	humidityErr = nil
	r = st.Cycle(context.Background())
	assert.True(t, r.HasHumidity)
	rh, envTemp = ccs.EnvironmentalData()
	assert.Equal(t, 48.0, rh)
	assert.Equal(t, 21.0, envTemp)
}

func TestStation_Cycle_KeepsLastGoodHumidityAfterFailure(t *testing.T) {
	ccs := air.NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) { return 400, 0, nil })
	humidityErr := error(nil)
	si := environment.NewMockHumiditySensor(constant(24), func(ctx context.Context) (float64, error) {
		return 52, humidityErr
	})
	st := NewStation(WithAirQuality(ccs), WithHumidity(si))

	st.Cycle(context.Background())
	humidityErr = iaq.ErrNotReady
	r := st.Cycle(context.Background())
	assert.True(t, r.HasHumidity)
	assert.Equal(t, 52.0, r.Humidity)
	rh, temp := ccs.EnvironmentalData()
	assert.Equal(t, 52.0, rh)
	assert.Equal(t, 24.0, temp)
}

func TestStation_Cycle_NoAirQualityBeforeFirstSample(t *testing.T) {
	ccs := air.NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) { return 0, 0, iaq.ErrNotReady })
	r := NewStation(WithAirQuality(ccs)).Cycle(context.Background())
	assert.False(t, r.HasAirQuality)
	assert.Zero(t, r.CO2)
}
