// Package link observes and (re)joins the network used for forwarding.
package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Link is the network stack boundary. Join starts an association attempt;
// Status reports what the stack currently observes.
type Link interface {
	Name() string
	Join(ctx context.Context) error
	Status(ctx context.Context) Status
}

// ProbeLink treats the network as up while a TCP connection to the
// collector can be opened.
type ProbeLink struct {
	address string
	timeout time.Duration
	dialer  func(ctx context.Context, network, address string) (net.Conn, error)
}

func NewProbeLink(address string, timeout time.Duration) *ProbeLink {
	d := &net.Dialer{}
	return &ProbeLink{
		address: address,
		timeout: timeout,
		dialer:  d.DialContext,
	}
}

func (l *ProbeLink) Name() string {
	return "probe"
}

func (l *ProbeLink) Address() string {
	return l.address
}

// Join only validates the address. Reachability is left to Status.
func (l *ProbeLink) Join(_ context.Context) error {
	if l.address == "" {
		return errors.New("probe address is empty")
	}
	return nil
}

func (l *ProbeLink) Status(ctx context.Context) Status {
	if l.address == "" {
		return StatusDown
	}
	if err := l.dial(ctx); err != nil {
		return StatusDown
	}
	return StatusUp
}

func (l *ProbeLink) dial(ctx context.Context) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	conn, err := l.dialer(ctx, "tcp", l.address)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", l.address, err)
	}
	return conn.Close()
}

// ProbeAddressFromURL derives host:port from an http(s) endpoint.
func ProbeAddressFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		default:
			return "", fmt.Errorf("url %q has no port and unknown scheme %q", raw, u.Scheme)
		}
	}

	return net.JoinHostPort(u.Hostname(), port), nil
}
