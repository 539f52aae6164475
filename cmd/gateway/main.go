package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speedwagon-io/loragw/internal/config"
	"github.com/speedwagon-io/loragw/internal/connectivity"
	"github.com/speedwagon-io/loragw/internal/forwarder"
	"github.com/speedwagon-io/loragw/internal/gateway"
	"github.com/speedwagon-io/loragw/internal/health"
	"github.com/speedwagon-io/loragw/internal/ingest"
	"github.com/speedwagon-io/loragw/internal/journal"
	"github.com/speedwagon-io/loragw/internal/lib/logger/sl"
	"github.com/speedwagon-io/loragw/internal/radio"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log data instead of sending")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	gatewayID, err := resolveGatewayID(cfg.Gateway)
	if err != nil {
		log.Error("failed to resolve gateway id", sl.Err(err))
		os.Exit(1)
	}

	log.Info("starting LoRa gateway",
		slog.String("env", cfg.Env),
		slog.String("gateway_id", gatewayID),
		slog.String("radio_source", cfg.Radio.Source),
		slog.Bool("dry_run", *dryRun),
	)

	l, err := newLink(cfg)
	if err != nil {
		log.Error("failed to configure link", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := connectivity.NewManager(log, l, cfg.Link)
	if !conn.Start(ctx, time.Now()) {
		log.Warn("link not established at startup, will keep retrying",
			slog.String("link", l.Name()),
			slog.Duration("retry_interval", connectivity.RetryInterval),
		)
	}

	// Use LogForwarder for dry-run mode, HTTPForwarder otherwise
	var fwd forwarder.Forwarder
	if *dryRun {
		fwd = forwarder.NewLogForwarder(log, conn)
		log.Info("dry-run mode: data will be logged instead of sent")
	} else {
		fwd = forwarder.NewHTTPForwarder(log, &cfg.Forwarder, conn)
	}

	var jrnl *journal.SQLiteJournal
	if cfg.Journal.Enabled {
		jrnl, err = journal.NewSQLiteJournal(log, cfg.Journal.Path)
		if err != nil {
			log.Error("failed to open journal", sl.Err(err))
			os.Exit(1)
		}
		log.Info("journal enabled", slog.String("path", cfg.Journal.Path))
	}

	source, err := newSource(log, cfg.Radio)
	if err != nil {
		log.Error("failed to configure radio", sl.Err(err))
		os.Exit(1)
	}

	receiver := radio.NewReceiver(log, source,
		radio.NewReopenBackoff(cfg.Radio.ReconnectInitialDelay, cfg.Radio.ReconnectMaxDelay))

	if err := receiver.Open(ctx); err != nil {
		log.Error("failed to open radio", slog.String("source", source.Name()), sl.Err(err))
		os.Exit(1)
	}

	var (
		driverOpts  []ingest.Option
		gatewayOpts []gateway.Option
	)
	if jrnl != nil {
		driverOpts = append(driverOpts, ingest.WithJournal(jrnl))
		gatewayOpts = append(gatewayOpts, gateway.WithJournal(jrnl, cfg.Journal.MaxAge))
	}
	driver := ingest.NewDriver(log, gatewayID, fwd, driverOpts...)

	healthServer := health.NewServer(log, cfg.Health.Address)
	healthServer.SetReadiness(conn.CanSend)
	healthServer.SetStatus(func() any { return conn.Snapshot() })
	healthServer.AddChecker(health.NewLinkHealthChecker(conn.CanSend))
	healthServer.AddChecker(health.NewForwarderHealthChecker(fwd.Health))
	if jrnl != nil {
		healthServer.AddChecker(health.NewJournalHealthChecker(jrnl.Counts, cfg.Journal.HealthWindow))
	}

	if err := healthServer.Start(); err != nil {
		log.Error("failed to start health server", sl.Err(err))
		os.Exit(1)
	}

	gw := gateway.New(log, gatewayID, conn, receiver, driver, gatewayOpts...)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	gw.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	gw.Stop()

	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop health server", sl.Err(err))
	}

	if jrnl != nil {
		if err := jrnl.Close(); err != nil {
			log.Error("failed to close journal", sl.Err(err))
		}
	}

	log.Info("gateway stopped")
}
