package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/ledger-shortener/internal/ledger"
	"github.com/serroba/ledger-shortener/internal/process"
	"github.com/serroba/ledger-shortener/internal/shortener"
)

var (
	errUnsigned       = errors.New("message is not signed")
	errUnknownMessage = errors.New("unknown message")
)

type memoryRecord struct {
	tags        []ledger.Tag
	confirmedAt time.Time
}

// MemoryLedger is an in-process stand-in for both the ledger index and the
// compute process. Records become visible to queries only after lag, which
// mimics an eventually consistent gateway.
type MemoryLedger struct {
	appName string
	lag     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	records []memoryRecord
	inbox   map[string]*process.SignedMessage
}

// NewMemoryLedger creates an empty ledger for appName.
func NewMemoryLedger(appName string, lag time.Duration) *MemoryLedger {
	return &MemoryLedger{
		appName: appName,
		lag:     lag,
		now:     time.Now,
		inbox:   make(map[string]*process.SignedMessage),
	}
}

// WithClock replaces the time source used for visibility.
func (m *MemoryLedger) WithClock(now func() time.Time) *MemoryLedger {
	m.now = now

	return m
}

// Query returns visible records, newest first.
func (m *MemoryLedger) Query(_ context.Context, q ledger.Query) ([]ledger.Record, error) {
	first := q.First
	if first <= 0 {
		first = ledger.DefaultPageSize
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	matches := make([]ledger.Record, 0, first)

	for i := len(m.records) - 1; i >= 0 && len(matches) < first; i-- {
		rec := m.records[i]
		if now.Before(rec.confirmedAt.Add(m.lag)) {
			continue
		}

		record := ledger.Record{Tags: rec.tags}
		if record.Matches(q.Tags) {
			matches = append(matches, record)
		}
	}

	return matches, nil
}

// Send accepts a signed message for later evaluation.
func (m *MemoryLedger) Send(_ context.Context, msg *process.SignedMessage) (string, error) {
	if msg.Signature == "" {
		return "", errUnsigned
	}

	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	m.inbox[id] = msg
	m.mu.Unlock()

	return id, nil
}

// Result evaluates a previously sent message. Each message yields one result.
func (m *MemoryLedger) Result(_ context.Context, processID, messageID string) (*process.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.inbox[messageID]
	if !ok || msg.Target != processID {
		return nil, fmt.Errorf("%w: %s", errUnknownMessage, messageID)
	}

	delete(m.inbox, messageID)

	switch action := process.TagValue(msg.Tags, process.TagAction); action {
	case shortener.ActionCreateShortURL:
		return m.createShortURL(processID, msg.Tags), nil
	default:
		return &process.Result{Error: "unknown action: " + action}, nil
	}
}

func (m *MemoryLedger) createShortURL(processID string, tags []ledger.Tag) *process.Result {
	longURL := process.TagValue(tags, shortener.TagLongURL)
	code := process.TagValue(tags, shortener.TagShortCode)

	if longURL == "" || !shortener.IsValidCode(code) {
		return &process.Result{Error: "Long-URL and a valid Short-Code are required"}
	}

	// The process sees its own state immediately, unlike index readers.
	for _, rec := range m.records {
		r := ledger.Record{Tags: rec.tags}
		if r.Matches([]ledger.TagFilter{
			ledger.Match(shortener.TagShortCode, code),
			ledger.Match(ledger.TagFromProcess, processID),
		}) {
			return &process.Result{Error: "Short code already exists"}
		}
	}

	m.records = append(m.records, memoryRecord{
		tags: []ledger.Tag{
			{Name: ledger.TagAppName, Value: m.appName},
			{Name: ledger.TagFromProcess, Value: processID},
			{Name: shortener.TagLongURL, Value: longURL},
			{Name: shortener.TagShortCode, Value: code},
		},
		confirmedAt: m.now(),
	})

	data, _ := json.Marshal(map[string]string{"shortCode": code, "longUrl": longURL})

	return &process.Result{Outputs: []process.Output{{Data: string(data)}}}
}

// Len returns the number of confirmed records, visible or not.
func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.records)
}

// Ping always succeeds.
func (m *MemoryLedger) Ping(_ context.Context) error {
	return nil
}

var (
	_ ledger.Querier    = (*MemoryLedger)(nil)
	_ process.Transport = (*MemoryLedger)(nil)
)
