// Package bustest provides a testify based I2C bus double for driver tests.
package bustest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mklimuk/iaq"
)

var _ iaq.I2CBus = &MockI2CBus{}

// MockI2CBus records transfers. ReadFromAddr expectations return the payload to
// copy into the caller's buffer followed by an error:
//
//	bus.On("ReadFromAddr", mock.Anything, byte(0x5B), mock.Anything).Return([]byte{0x98}, nil)
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	// the driver may reuse its buffer after the call returns
	args := m.Called(ctx, address, append([]byte(nil), buffer...))
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) (int, error) {
	args := m.Called(ctx, address, buffer)
	n := 0
	if data, ok := args.Get(0).([]byte); ok {
		n = copy(buffer, data)
	}
	return n, args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ExpectWrite registers a single write of payload to address.
func (m *MockI2CBus) ExpectWrite(address byte, payload ...byte) *mock.Call {
	return m.On("WriteToAddr", mock.Anything, address, payload).Return(nil).Once()
}

// ExpectRead registers a single read from address answered with payload.
func (m *MockI2CBus) ExpectRead(address byte, payload ...byte) *mock.Call {
	return m.On("ReadFromAddr", mock.Anything, address, mock.Anything).Return(payload, nil).Once()
}

// ExpectRegister registers a select write of reg followed by a read answered with payload.
func (m *MockI2CBus) ExpectRegister(address, reg byte, payload ...byte) {
	m.ExpectWrite(address, reg)
	m.ExpectRead(address, payload...)
}
