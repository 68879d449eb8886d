package audit

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() }) //nolint: errcheck
	return l
}

func TestRecordAndReadDay(t *testing.T) {
	l := newTestLogger(t)

	require.NoError(t, l.Record(Entry{
		Event:       EventDonationCreated,
		DonationID:  "d1",
		AmountMinor: 5000,
		Currency:    "EUR",
	}))
	require.NoError(t, l.Record(Entry{
		Event:    EventWebhookReceived,
		IntentID: "pi_1",
	}))

	entries, err := l.ReadDay(time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, EventDonationCreated, entries[0].Event)
	assert.Equal(t, int64(5000), entries[0].AmountMinor)
	assert.False(t, entries[0].Time.IsZero(), "timestamp is stamped on write")
	assert.Equal(t, EventWebhookReceived, entries[1].Event)
}

func TestReadDayMissingFile(t *testing.T) {
	l := newTestLogger(t)
	entries, err := l.ReadDay(time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadDaySkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)
	defer l.Close() //nolint: errcheck

	require.NoError(t, l.Record(Entry{Event: EventPaymentConfirmed, AmountMinor: 100}))
	require.NoError(t, l.Record(Entry{Event: EventPaymentConfirmed, AmountMinor: 200}))

	// Simulate a torn write from a crash mid-append.
	day := time.Now().UTC().Format("2006-01-02")
	path := filepath.Join(dir, "transactions-"+day+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{\"time\":\"2026-")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := l.ReadDay(time.Now())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "torn line is skipped, not fatal")
}

func TestSummary(t *testing.T) {
	l := newTestLogger(t)

	require.NoError(t, l.Record(Entry{Event: EventDonationCreated, AmountMinor: 5000}))
	require.NoError(t, l.Record(Entry{Event: EventPaymentConfirmed, AmountMinor: 5000}))
	require.NoError(t, l.Record(Entry{Event: EventPaymentConfirmed, AmountMinor: 2500}))
	require.NoError(t, l.Record(Entry{Event: EventPaymentError, Detail: "card declined"}))

	s, err := l.Summary(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(7500), s.TotalConfirmed)
	assert.Equal(t, int64(2), s.Counts[EventPaymentConfirmed])
	assert.Equal(t, int64(1), s.Counts[EventDonationCreated])
	assert.Equal(t, int64(1), s.Counts[EventPaymentError])
}

func TestConcurrentWritersDoNotInterleave(t *testing.T) {
	l := newTestLogger(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Record(Entry{
				Event:       EventWebhookReceived,
				AmountMinor: 1,
			}))
		}()
	}
	wg.Wait()

	entries, err := l.ReadDay(time.Now())
	require.NoError(t, err)
	assert.Len(t, entries, writers, "every concurrent append must land on its own line")
}
