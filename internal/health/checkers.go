package health

import (
	"context"
	"fmt"
	"time"

	"github.com/speedwagon-io/loragw/internal/journal"
)

type LinkHealthChecker struct {
	canSend func() bool
}

func NewLinkHealthChecker(canSend func() bool) *LinkHealthChecker {
	return &LinkHealthChecker{canSend: canSend}
}

func (c *LinkHealthChecker) Name() string {
	return "link"
}

// A down link is degraded rather than unhealthy: the gateway keeps
// receiving and retries on its own.
func (c *LinkHealthChecker) Check(ctx context.Context) (Status, string) {
	if !c.canSend() {
		return StatusDegraded, "link disconnected"
	}
	return StatusHealthy, ""
}

type ForwarderHealthChecker struct {
	healthFunc func(ctx context.Context) error
}

func NewForwarderHealthChecker(healthFunc func(ctx context.Context) error) *ForwarderHealthChecker {
	return &ForwarderHealthChecker{healthFunc: healthFunc}
}

func (c *ForwarderHealthChecker) Name() string {
	return "forwarder"
}

func (c *ForwarderHealthChecker) Check(ctx context.Context) (Status, string) {
	if err := c.healthFunc(ctx); err != nil {
		return StatusDegraded, err.Error()
	}
	return StatusHealthy, ""
}

type JournalHealthChecker struct {
	countsFunc func(ctx context.Context, since time.Time) (map[string]int64, error)
	window     time.Duration
	now        func() time.Time
}

func NewJournalHealthChecker(countsFunc func(ctx context.Context, since time.Time) (map[string]int64, error), window time.Duration) *JournalHealthChecker {
	return &JournalHealthChecker{countsFunc: countsFunc, window: window, now: time.Now}
}

func (c *JournalHealthChecker) Name() string {
	return "journal"
}

// Check is degraded when every forward in the window failed in transport.
func (c *JournalHealthChecker) Check(ctx context.Context) (Status, string) {
	counts, err := c.countsFunc(ctx, c.now().Add(-c.window))
	if err != nil {
		return StatusUnhealthy, err.Error()
	}

	failed := counts[journal.OutcomeTransportFailed]
	if failed > 0 && counts[journal.OutcomeDelivered] == 0 {
		return StatusDegraded, fmt.Sprintf("%d transport failures and no deliveries in %s", failed, c.window)
	}

	return StatusHealthy, ""
}
