package radio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/speedwagon-io/loragw/internal/lib/logger/sl"
	"github.com/speedwagon-io/loragw/internal/model"
)

const (
	defaultSerialReadTimeout = 300 * time.Millisecond
	maxLineLength            = 512
)

type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SerialSource reads receive notifications from a UART LoRa modem.
type SerialSource struct {
	log      *slog.Logger
	portName string
	baudRate int
	open     func(name string, baud int) (serialPort, error)

	mu    sync.Mutex
	port  serialPort
	lines *lineReader
}

func NewSerialSource(log *slog.Logger, portName string, baudRate int) *SerialSource {
	return &SerialSource{
		log:      log.With(slog.String("component", "radio"), slog.String("source", "serial"), slog.String("port", portName)),
		portName: portName,
		baudRate: baudRate,
		open: func(name string, baud int) (serialPort, error) {
			return serial.Open(name, &serial.Mode{BaudRate: baud})
		},
	}
}

func (s *SerialSource) Name() string {
	return "serial"
}

func (s *SerialSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.portName == "" {
		return errors.New("serial port is empty")
	}
	if s.baudRate <= 0 {
		return fmt.Errorf("invalid serial baud rate: %d", s.baudRate)
	}

	port, err := s.open(s.portName, s.baudRate)
	if err != nil {
		return fmt.Errorf("open serial port %q: %w", s.portName, err)
	}
	if err := port.SetReadTimeout(defaultSerialReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set serial read timeout: %w", err)
	}

	s.port = port
	s.lines = newLineReader(port, maxLineLength)
	s.log.Info("serial radio opened", slog.Int("baud", s.baudRate))

	return nil
}

func (s *SerialSource) Receive(ctx context.Context) (model.RawPacket, error) {
	lines, err := s.currentLines()
	if err != nil {
		return model.RawPacket{}, err
	}

	for {
		line, err := lines.next(ctx)
		if errors.Is(err, ErrMalformedLine) {
			s.log.Warn("dropping radio line", sl.Err(err))
			continue
		}
		if err != nil {
			return model.RawPacket{}, err
		}

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, rcvPrefix):
			pkt, err := ParseRCV(line)
			if err != nil {
				s.log.Warn("dropping radio line", slog.String("line", line), sl.Err(err))
				continue
			}
			pkt.Source = s.Name()
			return pkt, nil
		case strings.HasPrefix(line, "+ERR="):
			s.log.Warn("modem reported error", slog.String("code", strings.TrimPrefix(line, "+ERR=")))
		default:
			s.log.Debug("modem line", slog.String("line", line))
		}
	}
}

func (s *SerialSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.lines = nil
	return err
}

func (s *SerialSource) currentLines() (*lineReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines == nil {
		return nil, ErrClosed
	}
	return s.lines, nil
}

// lineReader splits a timeout-driven reader into lines. A read that
// returns no bytes and no error is a timeout and only rechecks ctx.
// A line longer than max is reported once and skipped up to its newline.
type lineReader struct {
	r          io.Reader
	buf        []byte
	pending    []byte
	max        int
	discarding bool
}

func newLineReader(r io.Reader, max int) *lineReader {
	return &lineReader{r: r, buf: make([]byte, 256), max: max}
}

func (lr *lineReader) next(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexByte(lr.pending, '\n'); i >= 0 {
			raw := lr.pending[:i]
			lr.pending = lr.pending[i+1:]

			if lr.discarding {
				lr.discarding = false
				continue
			}
			if len(raw) > lr.max {
				return "", fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedLine, lr.max)
			}
			return strings.TrimRight(string(raw), "\r"), nil
		}

		if lr.discarding {
			lr.pending = lr.pending[:0]
		} else if len(lr.pending) > lr.max {
			lr.pending = lr.pending[:0]
			lr.discarding = true
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedLine, lr.max)
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := lr.r.Read(lr.buf)
		if n > 0 {
			lr.pending = append(lr.pending, lr.buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(lr.pending) > 0 && !lr.discarding {
				line := strings.TrimRight(string(lr.pending), "\r")
				lr.pending = lr.pending[:0]
				return line, nil
			}
			return "", err
		}
	}
}
