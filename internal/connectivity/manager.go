// Package connectivity tracks whether the forwarding link is usable and
// drives reconnection on a fixed interval.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/loragw/internal/config"
	"github.com/speedwagon-io/loragw/internal/lib/logger/sl"
	"github.com/speedwagon-io/loragw/internal/link"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
)

// RetryInterval is the minimum time between two establish attempts.
const RetryInterval = 30 * time.Second

var ErrEstablishFailed = errors.New("link establish failed")

type Snapshot struct {
	State       State     `json:"state"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
	LastChange  time.Time `json:"last_change,omitempty"`
	Attempts    int64     `json:"attempts"`
}

// Manager owns the connectivity state. Tick and Start are the only
// writers and must be called from one goroutine; CanSend and Snapshot are
// safe from any goroutine.
type Manager struct {
	log  *slog.Logger
	link link.Link

	attempts     int
	attemptDelay time.Duration
	pollInterval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	mu          sync.RWMutex
	state       State
	attempted   bool
	lastAttempt time.Time
	lastChange  time.Time
	attemptsRun int64
}

func NewManager(log *slog.Logger, l link.Link, cfg config.LinkConfig) *Manager {
	return &Manager{
		log:          log.With(slog.String("component", "connectivity"), slog.String("link", l.Name())),
		link:         l,
		attempts:     cfg.Attempts,
		attemptDelay: cfg.AttemptDelay,
		pollInterval: cfg.PollInterval,
		now:          time.Now,
		sleep:        sleepWithContext,
		state:        StateDisconnected,
	}
}

// Establish joins the link and polls its status a bounded number of
// times. A failed join is only logged; the status polls decide.
func (m *Manager) Establish(ctx context.Context) error {
	m.log.Info("connecting link", slog.Int("max_attempts", m.attempts))

	if err := m.link.Join(ctx); err != nil {
		m.log.Warn("link join failed", sl.Err(err))
	}

	for attempt := 1; attempt <= m.attempts; attempt++ {
		if m.link.Status(ctx) == link.StatusUp {
			m.log.Info("link connected", slog.Int("attempt", attempt))
			return nil
		}

		if attempt < m.attempts {
			if !m.sleep(ctx, m.attemptDelay) {
				return fmt.Errorf("%w: %v", ErrEstablishFailed, ctx.Err())
			}
		}
	}

	m.log.Warn("link connection failed", slog.Int("attempts", m.attempts))
	return fmt.Errorf("%w: link still down after %d attempts", ErrEstablishFailed, m.attempts)
}

// Start performs the blocking startup attempt.
func (m *Manager) Start(ctx context.Context, now time.Time) bool {
	return m.attempt(ctx, now)
}

// Tick polls the link once. A down link is re-established at most once
// per retry interval no matter how often Tick runs.
func (m *Manager) Tick(ctx context.Context, now time.Time) {
	if m.link.Status(ctx) == link.StatusUp {
		if m.setState(StateConnected, now) {
			m.log.Info("link is up")
		}
		return
	}

	if m.setState(StateDisconnected, now) {
		m.log.Warn("link lost")
	}

	m.mu.RLock()
	due := !m.attempted || now.Sub(m.lastAttempt) >= RetryInterval
	m.mu.RUnlock()

	if !due {
		return
	}

	m.log.Info("link down, attempting to reconnect")
	m.attempt(ctx, now)
}

func (m *Manager) attempt(ctx context.Context, now time.Time) bool {
	m.mu.Lock()
	m.attempted = true
	m.lastAttempt = now
	m.attemptsRun++
	m.mu.Unlock()

	err := m.Establish(ctx)
	if err != nil {
		m.log.Error("failed to establish link", sl.Err(err))
		m.setState(StateDisconnected, now)
		return false
	}

	m.setState(StateConnected, now)
	return true
}

// setState reports whether the state changed.
func (m *Manager) setState(s State, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == s {
		return false
	}
	m.state = s
	m.lastChange = now
	return true
}

func (m *Manager) CanSend() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:       m.state,
		LastAttempt: m.lastAttempt,
		LastChange:  m.lastChange,
		Attempts:    m.attemptsRun,
	}
}

// Run ticks every poll interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	m.log.Info("starting connectivity loop",
		slog.Duration("poll_interval", m.pollInterval),
		slog.Duration("retry_interval", RetryInterval),
	)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("context cancelled, stopping connectivity loop")
			return
		case <-ticker.C:
			m.Tick(ctx, m.now())
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
