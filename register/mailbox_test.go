package register

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/internal/bustest"
)

const mailboxAddr = 0x5B

var (
	status   = Channel{ID: 0x00, Size: 1, Readable: true}
	result   = Channel{ID: 0x02, Size: 8, Readable: true}
	envData  = Channel{ID: 0x05, Size: 4, Writeable: true}
	baseline = Channel{ID: 0x11, Size: 2, Readable: true, Writeable: true}
)

func TestDevice_ReadMailbox(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	bus.ExpectRegister(mailboxAddr, 0x02, 0x01, 0x90, 0x00, 0x64, 0x98, 0x00, 0x12, 0x34)
	data, err := NewDevice(bus, mailboxAddr).ReadMailbox(context.Background(), result)
	require.NoError(t, err)
	assert.Len(t, data, 8)
	bus.AssertExpectations(t)
}

func TestDevice_ReadMailbox_ShortRead(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	bus.ExpectRegister(mailboxAddr, 0x02, 0x01, 0x90, 0x00)
	_, err := NewDevice(bus, mailboxAddr).ReadMailbox(context.Background(), result)
	assert.ErrorIs(t, err, iaq.ErrShortRead)
}

func TestDevice_MailboxPermissions(t *testing.T) {
	tests := []struct {
		name  string
		ch    Channel
		read  bool
		write bool
	}{
		{"read only", status, true, false},
		{"write only", envData, false, true},
		{"read write", baseline, true, true},
		{"no access", Channel{ID: 0x42, Size: 1}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.read {
				bus := new(bustest.MockI2CBus)
				_, err := NewDevice(bus, mailboxAddr).ReadMailbox(context.Background(), tt.ch)
				assert.ErrorIs(t, err, iaq.ErrPermissionDenied)
				bus.AssertNotCalled(t, "WriteToAddr", mock.Anything, mock.Anything, mock.Anything)
				bus.AssertNotCalled(t, "ReadFromAddr", mock.Anything, mock.Anything, mock.Anything)
			}
			if !tt.write {
				bus := new(bustest.MockI2CBus)
				err := NewDevice(bus, mailboxAddr).WriteMailbox(context.Background(), tt.ch, []byte{0x01})
				assert.ErrorIs(t, err, iaq.ErrPermissionDenied)
				bus.AssertNotCalled(t, "WriteToAddr", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestDevice_WriteMailbox_CapsPayload(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	bus.ExpectWrite(mailboxAddr, 0x11, 0xAB, 0xCD)
	err := NewDevice(bus, mailboxAddr).WriteMailbox(context.Background(), baseline, []byte{0xAB, 0xCD, 0xEF, 0x01})
	require.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestDevice_WriteMailbox_ShortPayload(t *testing.T) {
	bus := new(bustest.MockI2CBus)
	bus.ExpectWrite(mailboxAddr, 0x05, 0x64)
	err := NewDevice(bus, mailboxAddr).WriteMailbox(context.Background(), envData, []byte{0x64})
	require.NoError(t, err)
	bus.AssertExpectations(t)
}
