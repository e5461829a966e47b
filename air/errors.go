package air

import (
	"errors"
	"fmt"
	"strings"
)

var ErrStaleData = errors.New("ccs811: result payload is not marked ready")

// DeviceError is the content of the ERROR_ID mailbox.
type DeviceError byte

const (
	ErrWriteRegInvalid DeviceError = 1 << iota
	ErrReadRegInvalid
	ErrMeasModeInvalid
	ErrMaxResistance
	ErrHeaterFault
	ErrHeaterSupply
)

var deviceErrorNames = []struct {
	flag DeviceError
	name string
}{
	{ErrWriteRegInvalid, "WRITE_REG_INVALID"},
	{ErrReadRegInvalid, "READ_REG_INVALID"},
	{ErrMeasModeInvalid, "MEASMODE_INVALID"},
	{ErrMaxResistance, "MAX_RESISTANCE"},
	{ErrHeaterFault, "HEATER_FAULT"},
	{ErrHeaterSupply, "HEATER_SUPPLY"},
}

func (e DeviceError) Error() string {
	var flags []string
	for _, n := range deviceErrorNames {
		if e&n.flag != 0 {
			flags = append(flags, n.name)
		}
	}
	if len(flags) == 0 {
		return fmt.Sprintf("ccs811: device error %#02x", byte(e))
	}
	return "ccs811: device error " + strings.Join(flags, "|")
}

// Is matches any error sharing at least one flag, so errors.Is(err, ErrHeaterFault)
// holds for a combined code.
func (e DeviceError) Is(target error) bool {
	var t DeviceError
	if !errors.As(target, &t) {
		return false
	}
	return e&t != 0
}
