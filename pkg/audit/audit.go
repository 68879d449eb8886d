// Package audit records every donation lifecycle event into an append-only,
// date-partitioned trail: one JSON-lines file per UTC calendar day. Entries
// are never mutated or deleted by the running system; the trail is the
// source of record for manual reconciliation when the ledger and the
// gateway disagree.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType identifies a lifecycle event in the trail.
type EventType string

const (
	EventDonationCreated  EventType = "donation_created"
	EventIntentCreated    EventType = "intent_created"
	EventPaymentConfirmed EventType = "payment_confirmed"
	EventPaymentError     EventType = "payment_error"
	EventWebhookReceived  EventType = "webhook_received"
)

// Entry is one audit record.
type Entry struct {
	Time        time.Time `json:"time"`
	Event       EventType `json:"event"`
	DonationID  string    `json:"donation_id,omitempty"`
	IntentID    string    `json:"intent_id,omitempty"`
	AmountMinor int64     `json:"amount_minor,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// Logger appends entries to the current day's file. Appends are serialized
// under a mutex so concurrent writers never interleave lines.
type Logger struct {
	dir string

	mu      sync.Mutex
	file    *os.File
	fileDay string
	now     func() time.Time
}

// New creates a Logger writing under dir, creating it if needed.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit dir: %w", err)
	}
	return &Logger{dir: dir, now: time.Now}, nil
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

func (l *Logger) pathFor(day string) string {
	return filepath.Join(l.dir, "transactions-"+day+".log")
}

// Record appends one entry to the trail. The entry's timestamp is stamped
// here; callers only supply the event fields.
func (l *Logger) Record(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	e.Time = now

	day := dayKey(now)
	if l.file == nil || l.fileDay != day {
		if l.file != nil {
			l.file.Close() //nolint: errcheck
		}
		f, err := os.OpenFile(l.pathFor(day), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening audit file: %w", err)
		}
		l.file = f
		l.fileDay = day
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}
	line = append(line, '\n')
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// Close releases the current day's file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadDay returns every parseable entry for the given UTC day. Malformed
// lines are skipped; a torn final line from a crash must not poison the
// whole day.
func (l *Logger) ReadDay(day time.Time) ([]Entry, error) {
	f, err := os.Open(l.pathFor(dayKey(day)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close() //nolint: errcheck

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("reading audit file: %w", err)
	}
	return entries, nil
}

// DailySummary aggregates one day of the trail.
type DailySummary struct {
	Day            string              `json:"day"`
	TotalConfirmed int64               `json:"total_confirmed_minor"`
	Counts         map[EventType]int64 `json:"counts"`
}

// Summary rolls up the given UTC day: per-event counts plus the sum of
// confirmed payment amounts in minor units.
func (l *Logger) Summary(day time.Time) (*DailySummary, error) {
	entries, err := l.ReadDay(day)
	if err != nil {
		return nil, err
	}
	s := &DailySummary{
		Day:    dayKey(day),
		Counts: make(map[EventType]int64),
	}
	for _, e := range entries {
		s.Counts[e.Event]++
		if e.Event == EventPaymentConfirmed {
			s.TotalConfirmed += e.AmountMinor
		}
	}
	return s, nil
}
