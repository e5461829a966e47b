package environment

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mklimuk/iaq"
)

const bmp280CalibrationSize = 24

var errTemperatureFirst = errors.New("bmp280: pressure compensation requires temperature of the same sample")

// BMP280Calibration holds the factory trimming coefficients (dig_T1..dig_P9).
type BMP280Calibration struct {
	T1 uint16
	T2 int16
	T3 int16

	P1 uint16
	P2 int16
	P3 int16
	P4 int16
	P5 int16
	P6 int16
	P7 int16
	P8 int16
	P9 int16
}

// decodeBMP280Calibration decodes the 0x88..0x9F block: twelve little-endian words.
func decodeBMP280Calibration(buf []byte) (BMP280Calibration, error) {
	if len(buf) != bmp280CalibrationSize {
		return BMP280Calibration{}, fmt.Errorf("%w: calibration block has %d of %d bytes", iaq.ErrShortRead, len(buf), bmp280CalibrationSize)
	}
	word := func(i int) uint16 { return binary.LittleEndian.Uint16(buf[2*i:]) }
	return BMP280Calibration{
		T1: word(0),
		T2: int16(word(1)),
		T3: int16(word(2)),
		P1: word(3),
		P2: int16(word(4)),
		P3: int16(word(5)),
		P4: int16(word(6)),
		P5: int16(word(7)),
		P6: int16(word(8)),
		P7: int16(word(9)),
		P8: int16(word(10)),
		P9: int16(word(11)),
	}, nil
}

// compensator applies the integer formulas of the BMP280 datasheet (section 8.2).
// tFine is only valid for the sample whose temperature was compensated last.
type compensator struct {
	cal        BMP280Calibration
	tFine      int32
	tFineValid bool
}

// reset invalidates the carried tFine at the start of a measurement cycle.
func (c *compensator) reset() {
	c.tFine = 0
	c.tFineValid = false
}

// temperature returns the temperature in 0.01 °C; 5123 equals 51.23 °C.
func (c *compensator) temperature(adcT int32) int32 {
	// 64-bit intermediates keep out-of-range ADC codes from wrapping
	adc := int64(adcT)
	t1 := int64(c.cal.T1)
	var1 := (((adc >> 3) - (t1 << 1)) * int64(c.cal.T2)) >> 11
	x := (adc >> 4) - t1
	var2 := (((x * x) >> 12) * int64(c.cal.T3)) >> 14
	c.tFine = int32(var1 + var2)
	c.tFineValid = true
	return (c.tFine*5 + 128) >> 8
}

// pressure returns the pressure in Pa as Q24.8 (24 integer and 8 fractional bits);
// 24674867 equals 24674867/256 = 96386.2 Pa.
func (c *compensator) pressure(adcP int32) (uint32, error) {
	if !c.tFineValid {
		return 0, errTemperatureFirst
	}
	var1 := int64(c.tFine) - 128000
	var2 := var1 * var1 * int64(c.cal.P6)
	var2 += (var1 * int64(c.cal.P5)) << 17
	var2 += int64(c.cal.P4) << 35
	var1 = ((var1 * var1 * int64(c.cal.P3)) >> 8) + ((var1 * int64(c.cal.P2)) << 12)
	var1 = (((int64(1) << 47) + var1) * int64(c.cal.P1)) >> 33
	if var1 == 0 {
		return 0, nil
	}
	p := 1048576 - int64(adcP)
	p = (((p << 31) - var2) * 3125) / var1
	var1 = (int64(c.cal.P9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.cal.P8) * p) >> 19
	p = ((p + var1 + var2) >> 8) + (int64(c.cal.P7) << 4)
	return uint32(p), nil
}

// rawBMP280 assembles a 20-bit ADC code from msb, lsb and the upper nibble of xlsb.
func rawBMP280(b []byte) int32 {
	return int32(b[0])<<12 | int32(b[1])<<4 | int32(b[2])>>4
}

// CentiCelsius converts a compensated temperature to degrees.
func CentiCelsius(t int32) float64 {
	return float64(t) / 100
}

// PascalQ248ToHectopascal converts a Q24.8 pressure to hPa.
func PascalQ248ToHectopascal(p uint32) float64 {
	return float64(p) / 256 / 100
}
