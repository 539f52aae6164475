package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/loragw/internal/ingest"
	"github.com/speedwagon-io/loragw/internal/journal"
	"github.com/speedwagon-io/loragw/internal/lib/logger/sl"
	"github.com/speedwagon-io/loragw/internal/model"
	"github.com/speedwagon-io/loragw/internal/radio"
)

const defaultCleanupInterval = 10 * time.Minute

type Connectivity interface {
	Run(ctx context.Context)
}

type Receiver interface {
	Listen(ctx context.Context, h radio.Handler)
	Close() error
}

type Ingester interface {
	Handle(ctx context.Context, pkt model.RawPacket) ingest.Result
}

// Gateway ties the radio receiver, the ingestion driver and the
// connectivity manager together for the lifetime of the process.
type Gateway struct {
	log          *slog.Logger
	gatewayID    string
	connectivity Connectivity
	receiver     Receiver
	ingester     Ingester
	journal      journal.Journal
	journalAge   time.Duration

	cleanupInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Option func(*Gateway)

// WithJournal enables periodic pruning of entries older than maxAge.
func WithJournal(j journal.Journal, maxAge time.Duration) Option {
	return func(g *Gateway) {
		g.journal = j
		g.journalAge = maxAge
	}
}

func WithCleanupInterval(d time.Duration) Option {
	return func(g *Gateway) {
		g.cleanupInterval = d
	}
}

func New(
	log *slog.Logger,
	gatewayID string,
	connectivity Connectivity,
	receiver Receiver,
	ingester Ingester,
	opts ...Option,
) *Gateway {
	g := &Gateway{
		log:             log.With(slog.String("component", "gateway")),
		gatewayID:       gatewayID,
		connectivity:    connectivity,
		receiver:        receiver,
		ingester:        ingester,
		cleanupInterval: defaultCleanupInterval,
		stopCh:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Start runs until ctx is cancelled or Stop is called. Packets are
// handled on the calling goroutine.
func (g *Gateway) Start(ctx context.Context) {
	g.log.Info("starting gateway", slog.String("gateway_id", g.gatewayID))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-g.stopCh:
			g.log.Info("stop signal received, stopping gateway")
			cancel()
		case <-ctx.Done():
		}
	}()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.connectivity.Run(ctx)
	}()

	g.wg.Add(1)
	go g.cleanupJournal(ctx)

	g.receiver.Listen(ctx, func(ctx context.Context, pkt model.RawPacket) {
		g.ingester.Handle(ctx, pkt)
	})

	g.log.Info("receiver stopped")
}

func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		close(g.stopCh)
	})
	g.wg.Wait()

	if err := g.receiver.Close(); err != nil {
		g.log.Error("failed to close radio source", sl.Err(err))
	}
}

func (g *Gateway) cleanupJournal(ctx context.Context) {
	defer g.wg.Done()

	if g.journal == nil || g.journalAge <= 0 {
		return
	}

	ticker := time.NewTicker(g.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.journal.Cleanup(ctx, g.journalAge); err != nil {
				g.log.Error("failed to cleanup old journal entries", sl.Err(err))
			}
		}
	}
}
