package radio

import (
	"context"
	"log/slog"

	"github.com/speedwagon-io/loragw/internal/lib/logger/sl"
	"github.com/speedwagon-io/loragw/internal/model"
)

// Handler processes one packet. It runs on the receiver goroutine, so
// the next packet is not read until it returns.
type Handler func(ctx context.Context, pkt model.RawPacket)

type Receiver struct {
	log     *slog.Logger
	source  Source
	backoff *ReopenBackoff
}

func NewReceiver(log *slog.Logger, source Source, backoff *ReopenBackoff) *Receiver {
	return &Receiver{
		log:     log.With(slog.String("component", "receiver"), slog.String("source", source.Name())),
		source:  source,
		backoff: backoff,
	}
}

// Open performs the initial open. Its failure is meant to be fatal.
func (r *Receiver) Open(ctx context.Context) error {
	return r.source.Open(ctx)
}

// Listen delivers packets to h until ctx is cancelled, reopening the
// source with backoff whenever it fails.
func (r *Receiver) Listen(ctx context.Context, h Handler) {
	r.log.Info("listening for sensor data")

	for {
		err := r.receive(ctx, h)
		if ctx.Err() != nil {
			r.log.Info("context cancelled, stopping receiver")
			return
		}

		r.log.Warn("radio source failed, reopening", sl.Err(err))
		if closeErr := r.source.Close(); closeErr != nil {
			r.log.Debug("failed to close radio source", sl.Err(closeErr))
		}

		if !r.reopen(ctx) {
			r.log.Info("context cancelled, stopping receiver")
			return
		}
	}
}

func (r *Receiver) Close() error {
	return r.source.Close()
}

func (r *Receiver) receive(ctx context.Context, h Handler) error {
	for {
		pkt, err := r.source.Receive(ctx)
		if err != nil {
			return err
		}
		h(ctx, pkt)
	}
}

func (r *Receiver) reopen(ctx context.Context) bool {
	r.backoff.Reset()

	for {
		delay, ok := r.backoff.Wait(ctx)
		if !ok {
			return false
		}

		err := r.source.Open(ctx)
		if err == nil {
			r.log.Info("radio source reopened", slog.Int("attempt", r.backoff.Attempt()))
			return true
		}

		r.log.Warn("failed to reopen radio source",
			slog.Int("attempt", r.backoff.Attempt()),
			slog.Duration("delay", delay),
			sl.Err(err),
		)
	}
}
