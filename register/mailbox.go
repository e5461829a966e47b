package register

import (
	"context"
	"fmt"

	"github.com/mklimuk/iaq"
)

// Channel describes one mailbox: its id, the exact transfer size and which
// directions the chip allows.
type Channel struct {
	ID        byte
	Size      int
	Readable  bool
	Writeable bool
}

// ReadMailbox reads exactly ch.Size bytes from the mailbox. Permission is checked
// before the bus is touched.
func (d *Device) ReadMailbox(ctx context.Context, ch Channel) ([]byte, error) {
	if !ch.Readable {
		return nil, fmt.Errorf("%w: mailbox %#02x is not readable", iaq.ErrPermissionDenied, ch.ID)
	}
	if err := d.WriteCommand(ctx, ch.ID); err != nil {
		return nil, fmt.Errorf("could not select mailbox %#02x: %w", ch.ID, err)
	}
	data, err := d.Read(ctx, ch.Size)
	if err != nil {
		return nil, fmt.Errorf("could not read mailbox %#02x: %w", ch.ID, err)
	}
	if len(data) != ch.Size {
		return nil, fmt.Errorf("%w: mailbox %#02x returned %d of %d bytes", iaq.ErrShortRead, ch.ID, len(data), ch.Size)
	}
	return data, nil
}

// WriteMailbox writes payload to the mailbox in a single transfer. Payloads longer
// than the mailbox are truncated to its size.
func (d *Device) WriteMailbox(ctx context.Context, ch Channel, payload []byte) error {
	if !ch.Writeable {
		return fmt.Errorf("%w: mailbox %#02x is not writeable", iaq.ErrPermissionDenied, ch.ID)
	}
	size := min(len(payload), ch.Size)
	buf := make([]byte, 0, size+1)
	buf = append(buf, ch.ID)
	buf = append(buf, payload[:size]...)
	if err := d.WriteCommand(ctx, buf...); err != nil {
		return fmt.Errorf("could not write mailbox %#02x: %w", ch.ID, err)
	}
	return nil
}
