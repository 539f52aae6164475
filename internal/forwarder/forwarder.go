package forwarder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/speedwagon-io/loragw/internal/config"
	"github.com/speedwagon-io/loragw/internal/lib/logger/sl"
)

const maxResponseBody = 4 << 10

// Gate decides whether the network may be used right now.
type Gate interface {
	CanSend() bool
}

type Forwarder interface {
	Send(ctx context.Context, payload []byte) Outcome
	Health(ctx context.Context) error
}

type OutcomeKind string

const (
	OutcomeDelivered       OutcomeKind = "delivered"
	OutcomeSkipped         OutcomeKind = "skipped"
	OutcomeTransportFailed OutcomeKind = "transport_failed"
)

// Outcome of a single forward. Delivered covers every HTTP response,
// including 4xx and 5xx.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Body       string
	Err        error
}

func (o Outcome) LogAttrs() []any {
	attrs := []any{slog.String("outcome", string(o.Kind))}
	switch o.Kind {
	case OutcomeDelivered:
		attrs = append(attrs, slog.Int("status_code", o.StatusCode), slog.String("response", o.Body))
	case OutcomeTransportFailed:
		attrs = append(attrs, sl.Err(o.Err))
	}
	return attrs
}

type HTTPForwarder struct {
	log    *slog.Logger
	url    string
	token  string
	client *http.Client
	gate   Gate
}

func NewHTTPForwarder(log *slog.Logger, cfg *config.ForwarderConfig, gate Gate) *HTTPForwarder {
	return &HTTPForwarder{
		log:   log.With(slog.String("component", "forwarder")),
		url:   cfg.URL,
		token: cfg.Token,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		gate: gate,
	}
}

// Send posts payload once. Nothing is retried or queued.
func (f *HTTPForwarder) Send(ctx context.Context, payload []byte) Outcome {
	if !f.gate.CanSend() {
		f.log.Warn("link not connected, cannot forward data")
		return Outcome{Kind: OutcomeSkipped}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return Outcome{Kind: OutcomeTransportFailed, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Outcome{Kind: OutcomeTransportFailed, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		f.log.Debug("failed to read response body", sl.Err(err))
	}

	return Outcome{
		Kind:       OutcomeDelivered,
		StatusCode: resp.StatusCode,
		Body:       string(bytes.TrimSpace(body)),
	}
}

// Health reports whether the collector answers. It does no I/O while the
// link is down.
func (f *HTTPForwarder) Health(ctx context.Context) error {
	if !f.gate.CanSend() {
		return fmt.Errorf("link not connected")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("collector unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// LogForwarder logs payloads instead of sending them (dry run).
type LogForwarder struct {
	log  *slog.Logger
	gate Gate
}

func NewLogForwarder(log *slog.Logger, gate Gate) *LogForwarder {
	return &LogForwarder{log: log.With(slog.String("component", "forwarder")), gate: gate}
}

func (f *LogForwarder) Send(ctx context.Context, payload []byte) Outcome {
	if !f.gate.CanSend() {
		f.log.Warn("link not connected, cannot forward data")
		return Outcome{Kind: OutcomeSkipped}
	}

	f.log.Info("SEND", slog.Int("size", len(payload)), slog.String("payload", string(payload)))

	return Outcome{Kind: OutcomeDelivered}
}

func (f *LogForwarder) Health(ctx context.Context) error {
	return nil
}
