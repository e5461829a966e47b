package environment

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/iaq"
)

// calibration of the datasheet compensation example
var datasheetCalibration = BMP280Calibration{
	T1: 27504, T2: 26435, T3: -1000,
	P1: 36477, P2: -10685, P3: 3024, P4: 2855, P5: 140, P6: -7, P7: 15500, P8: -14600, P9: 6000,
}

func encodeCalibration(c BMP280Calibration) []byte {
	words := []uint16{
		c.T1, uint16(c.T2), uint16(c.T3),
		c.P1, uint16(c.P2), uint16(c.P3), uint16(c.P4), uint16(c.P5),
		uint16(c.P6), uint16(c.P7), uint16(c.P8), uint16(c.P9),
	}
	buf := make([]byte, 0, bmp280CalibrationSize)
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint16(buf, w)
	}
	return buf
}

func TestBMP280_DecodeCalibration(t *testing.T) {
	cal, err := decodeBMP280Calibration(encodeCalibration(datasheetCalibration))
	require.NoError(t, err)
	assert.Equal(t, datasheetCalibration, cal)
}

func TestBMP280_DecodeCalibration_SignExtension(t *testing.T) {
	block := make([]byte, bmp280CalibrationSize)
	// dig_T1 0xFFFF stays unsigned, dig_T2 0xFFFF is -1
	block[0], block[1] = 0xFF, 0xFF
	block[2], block[3] = 0xFF, 0xFF
	// dig_P9 0x8000 is the most negative value
	block[22], block[23] = 0x00, 0x80
	cal, err := decodeBMP280Calibration(block)
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), cal.T1)
	assert.Equal(t, int16(-1), cal.T2)
	assert.Equal(t, int16(-32768), cal.P9)
}

func TestBMP280_DecodeCalibration_Short(t *testing.T) {
	_, err := decodeBMP280Calibration(make([]byte, 23))
	assert.ErrorIs(t, err, iaq.ErrShortRead)
}

func TestBMP280_CompensateDatasheetExample(t *testing.T) {
	c := compensator{cal: datasheetCalibration}
	temp := c.temperature(519888)
	assert.Equal(t, int32(128422), c.tFine)
	assert.Equal(t, int32(2508), temp)
	assert.InDelta(t, 25.08, CentiCelsius(temp), 1e-9)

	p, err := c.pressure(415148)
	require.NoError(t, err)
	assert.Equal(t, uint32(25767233), p)
	assert.InDelta(t, 100653.25, float64(p)/256, 0.01)
}

func TestBMP280_PressureRequiresTemperature(t *testing.T) {
	c := compensator{cal: datasheetCalibration}
	_, err := c.pressure(415148)
	assert.ErrorIs(t, err, errTemperatureFirst)

	c.temperature(519888)
	c.reset()
	_, err = c.pressure(415148)
	assert.ErrorIs(t, err, errTemperatureFirst)
}

func TestBMP280_PressureZeroDenominator(t *testing.T) {
	// dig_P1 == 0 zeroes the divisor
	cal := datasheetCalibration
	cal.P1 = 0
	c := compensator{cal: cal}
	c.temperature(519888)
	p, err := c.pressure(415148)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), p)
}

func TestBMP280_Raw(t *testing.T) {
	tests := []struct {
		given    []byte
		expected int32
	}{
		{[]byte{0x7E, 0xED, 0x00}, 519888},
		{[]byte{0x65, 0x5A, 0xC0}, 415148},
		{[]byte{0x80, 0x00, 0x00}, 0x80000},
		{[]byte{0xFF, 0xFF, 0xFF}, 0xFFFFF},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, rawBMP280(test.given))
	}
}

func TestBMP280_Units(t *testing.T) {
	assert.InDelta(t, 963.862, PascalQ248ToHectopascal(24674867), 0.001)
	assert.InDelta(t, 1006.5325, PascalQ248ToHectopascal(25767233), 0.0001)
	assert.InDelta(t, -12.5, CentiCelsius(-1250), 1e-9)
}
