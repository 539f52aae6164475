// Package radio receives LoRa packets from the radio subsystem.
package radio

import (
	"context"
	"errors"

	"github.com/speedwagon-io/loragw/internal/model"
)

var (
	ErrClosed        = errors.New("radio source closed")
	ErrMalformedLine = errors.New("malformed radio line")
)

// Source delivers one packet per Receive call. Receive blocks until a
// packet arrives, the source fails, or ctx is done.
type Source interface {
	Name() string
	Open(ctx context.Context) error
	Receive(ctx context.Context) (model.RawPacket, error)
	Close() error
}
