package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/speedwagon-io/loragw/internal/lib/logger/sl"
)

// Fixed width keeps lexical order equal to time order in SQL comparisons.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Outcome values stored per packet.
const (
	OutcomeDelivered       = "delivered"
	OutcomeSkipped         = "skipped"
	OutcomeTransportFailed = "transport_failed"
	OutcomeMalformed       = "malformed"
	OutcomeEncodeFailed    = "encode_failed"
)

// Entry is what happened to one radio packet. Payloads are not stored:
// the journal is an operational record, never a resend queue.
type Entry struct {
	ID          string
	ReceivedAt  time.Time
	UptimeMs    int64
	RSSI        int
	SNR         float64
	PayloadSize int
	Outcome     string
	StatusCode  int
	Error       string
}

type Journal interface {
	Record(ctx context.Context, e Entry) error
	Counts(ctx context.Context, since time.Time) (map[string]int64, error)
	Cleanup(ctx context.Context, maxAge time.Duration) error
	Close() error
}

type SQLiteJournal struct {
	log *slog.Logger
	db  *sql.DB
}

func NewSQLiteJournal(log *slog.Logger, dbPath string) (*SQLiteJournal, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	j := &SQLiteJournal{
		log: log.With(slog.String("component", "journal")),
		db:  db,
	}

	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS packets (
			id TEXT PRIMARY KEY,
			received_at TEXT NOT NULL,
			uptime_ms INTEGER NOT NULL,
			rssi INTEGER NOT NULL,
			snr REAL NOT NULL,
			payload_size INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			status_code INTEGER DEFAULT 0,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_packets_received_at ON packets(received_at);
		CREATE INDEX IF NOT EXISTS idx_packets_outcome ON packets(outcome);
	`
	_, err := j.db.Exec(query)
	return err
}

func (j *SQLiteJournal) Record(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO packets (id, received_at, uptime_ms, rssi, snr, payload_size, outcome, status_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(ctx, query,
		e.ID,
		e.ReceivedAt.UTC().Format(timeLayout),
		e.UptimeMs,
		e.RSSI,
		e.SNR,
		e.PayloadSize,
		e.Outcome,
		e.StatusCode,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record packet %s: %w", e.ID, err)
	}

	j.log.Debug("packet recorded", slog.String("id", e.ID), slog.String("outcome", e.Outcome))
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, received_at, uptime_ms, rssi, snr, payload_size, outcome, status_code, COALESCE(error, '')
		FROM packets
		ORDER BY received_at DESC
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent packets: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			receivedStr string
		)

		if err := rows.Scan(&e.ID, &receivedStr, &e.UptimeMs, &e.RSSI, &e.SNR, &e.PayloadSize, &e.Outcome, &e.StatusCode, &e.Error); err != nil {
			j.log.Error("failed to scan row", sl.Err(err))
			continue
		}

		receivedAt, err := time.Parse(timeLayout, receivedStr)
		if err != nil {
			j.log.Error("failed to parse timestamp", sl.Err(err))
			continue
		}
		e.ReceivedAt = receivedAt

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Counts groups packets received at or after since by outcome.
func (j *SQLiteJournal) Counts(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT outcome, COUNT(*) FROM packets WHERE received_at >= ? GROUP BY outcome",
		since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count packets: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			outcome string
			n       int64
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[outcome] = n
	}

	return counts, rows.Err()
}

func (j *SQLiteJournal) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)

	result, err := j.db.ExecContext(ctx, "DELETE FROM packets WHERE received_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old packets: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		j.log.Info("cleaned up old journal entries", slog.Int64("deleted", deleted))
	}

	return nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
