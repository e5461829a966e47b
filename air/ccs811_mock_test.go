package air

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/iaq"
)

func TestMockCCS811_Dynamic(t *testing.T) {
	co2 := uint16(400)
	s := NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) { return co2, 12, nil })
	ctx := context.Background()

	require.NoError(t, s.ReadSensors(ctx))
	assert.Equal(t, uint16(400), s.CO2())
	assert.Equal(t, uint16(12), s.TVOC())

	co2 = 0x8000 | 650
	require.NoError(t, s.ReadSensors(ctx))
	assert.Equal(t, uint16(650), s.CO2())
	assert.False(t, s.LastMeasurement().IsZero())
}

func TestMockCCS811_ErrorKeepsValues(t *testing.T) {
	fail := false
	s := NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) {
		if fail {
			return 0, 0, iaq.ErrNotReady
		}
		return 420, 30, nil
	})
	ctx := context.Background()
	require.NoError(t, s.ReadSensors(ctx))
	fail = true
	assert.ErrorIs(t, s.ReadSensors(ctx), iaq.ErrNotReady)
	assert.Equal(t, uint16(420), s.CO2())
	assert.Equal(t, uint16(30), s.TVOC())
}

func TestMockCCS811_EnvironmentalData(t *testing.T) {
	s := NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) { return 0, 0, errors.New("unused") })
	require.NoError(t, s.SetEnvironmentalData(context.Background(), 48.5, 21.25))
	rh, temp := s.EnvironmentalData()
	assert.Equal(t, 48.5, rh)
	assert.Equal(t, 21.25, temp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SetEnvironmentalData(ctx, 10, 10), context.Canceled)
}
