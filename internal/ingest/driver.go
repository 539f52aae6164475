package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/speedwagon-io/loragw/internal/codec"
	"github.com/speedwagon-io/loragw/internal/enrich"
	"github.com/speedwagon-io/loragw/internal/forwarder"
	"github.com/speedwagon-io/loragw/internal/journal"
	"github.com/speedwagon-io/loragw/internal/lib/logger/sl"
	"github.com/speedwagon-io/loragw/internal/model"
)

type Result string

const (
	ResultEmpty           Result = "empty"
	ResultMalformed       Result = "malformed"
	ResultEncodeFailed    Result = "encode_failed"
	ResultDelivered       Result = "delivered"
	ResultSkipped         Result = "skipped"
	ResultTransportFailed Result = "transport_failed"
)

func resultOf(o forwarder.Outcome) Result {
	switch o.Kind {
	case forwarder.OutcomeDelivered:
		return ResultDelivered
	case forwarder.OutcomeSkipped:
		return ResultSkipped
	default:
		return ResultTransportFailed
	}
}

type Driver struct {
	log       *slog.Logger
	gatewayID string
	forwarder forwarder.Forwarder
	journal   journal.Journal

	boot time.Time
	now  func() time.Time

	mu sync.Mutex
}

type Option func(*Driver)

// WithJournal records every packet outcome in j.
func WithJournal(j journal.Journal) Option {
	return func(d *Driver) {
		d.journal = j
	}
}

// WithClock replaces the wall clock. boot is the reference for received_at.
func WithClock(boot time.Time, now func() time.Time) Option {
	return func(d *Driver) {
		d.boot = boot
		d.now = now
	}
}

func NewDriver(log *slog.Logger, gatewayID string, fwd forwarder.Forwarder, opts ...Option) *Driver {
	d := &Driver{
		log:       log.With(slog.String("component", "ingest")),
		gatewayID: gatewayID,
		forwarder: fwd,
		boot:      time.Now(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Handle runs one packet through parse, enrich, serialize and forward.
// Calls are serialized; a second packet waits for the first to finish.
func (d *Driver) Handle(ctx context.Context, pkt model.RawPacket) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pkt.Empty() {
		d.log.Debug("empty packet ignored", slog.String("source", pkt.Source))
		return ResultEmpty
	}

	now := d.now()
	id := uuid.NewString()
	log := d.log.With(slog.String("packet_id", id))

	entry := journal.Entry{
		ID:          id,
		ReceivedAt:  now,
		UptimeMs:    now.Sub(d.boot).Milliseconds(),
		RSSI:        pkt.RSSI,
		SNR:         pkt.SNR,
		PayloadSize: len(pkt.Payload),
	}

	log.Info("received packet",
		slog.Int("size", len(pkt.Payload)),
		slog.Int("rssi", pkt.RSSI),
		slog.Float64("snr", pkt.SNR),
	)

	rec, err := codec.Parse(pkt.Payload)
	if err != nil {
		log.Warn("failed to parse sensor payload", sl.Err(err), slog.String("payload", string(pkt.Payload)))
		entry.Outcome = journal.OutcomeMalformed
		entry.Error = err.Error()
		d.record(ctx, log, entry)
		return ResultMalformed
	}

	enriched := enrich.Augment(rec, model.GatewayMeta{
		GatewayID:  d.gatewayID,
		RSSI:       pkt.RSSI,
		SNR:        pkt.SNR,
		ReceivedAt: entry.UptimeMs,
	})

	payload, err := codec.Serialize(enriched)
	if err != nil {
		log.Error("failed to serialize record", sl.Err(err))
		entry.Outcome = journal.OutcomeEncodeFailed
		entry.Error = err.Error()
		d.record(ctx, log, entry)
		return ResultEncodeFailed
	}

	outcome := d.forwarder.Send(ctx, payload)
	switch outcome.Kind {
	case forwarder.OutcomeDelivered:
		log.Info("forwarded sensor data", outcome.LogAttrs()...)
	case forwarder.OutcomeSkipped:
		log.Warn("link down, packet dropped", outcome.LogAttrs()...)
	default:
		log.Error("failed to forward sensor data", outcome.LogAttrs()...)
	}

	entry.Outcome = string(outcome.Kind)
	entry.StatusCode = outcome.StatusCode
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
	}
	d.record(ctx, log, entry)

	return resultOf(outcome)
}

// Journal failures never affect ingestion.
func (d *Driver) record(ctx context.Context, log *slog.Logger, e journal.Entry) {
	if d.journal == nil {
		return
	}

	if err := d.journal.Record(ctx, e); err != nil {
		log.Warn("failed to journal packet", sl.Err(err))
	}
}
