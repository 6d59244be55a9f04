package history

import (
	"time"

	"github.com/fmuoria/resumepro-agent/internal/models"
)

// Ledger is the append-only list of analyses of one session.
//
// A Ledger has no lock of its own: it expects a single writer. Store
// serializes requests per session so handlers can use it directly.
type Ledger struct {
	entries []models.HistoryEntry
	next    int
	now     func() time.Time
}

// NewLedger creates an empty ledger stamped by the wall clock
func NewLedger() *Ledger {
	return NewLedgerWithClock(time.Now)
}

// NewLedgerWithClock creates an empty ledger stamped by now
func NewLedgerWithClock(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{next: 1, now: now}
}

// Append records a copy of entry and returns the stored copy. The ordinal is
// always assigned by the ledger; an empty label becomes models.DefaultLabel
// and a zero timestamp is taken from the ledger clock.
func (l *Ledger) Append(entry models.HistoryEntry) models.HistoryEntry {
	entry.Ordinal = l.next
	l.next++

	if entry.Label == "" {
		entry.Label = models.DefaultLabel
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	entry.Result = entry.Result.Clone()

	l.entries = append(l.entries, entry)
	return copyEntry(entry)
}

// List returns copies of all entries, most recent first
func (l *Ledger) List() []models.HistoryEntry {
	out := make([]models.HistoryEntry, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		out = append(out, copyEntry(l.entries[i]))
	}
	return out
}

// Get returns a copy of the entry with the given ordinal
func (l *Ledger) Get(ordinal int) (models.HistoryEntry, bool) {
	for _, e := range l.entries {
		if e.Ordinal == ordinal {
			return copyEntry(e), true
		}
	}
	return models.HistoryEntry{}, false
}

// Len returns the number of stored entries
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Clear removes every entry. Ordinals keep counting from where they were.
func (l *Ledger) Clear() {
	l.entries = nil
}

func copyEntry(e models.HistoryEntry) models.HistoryEntry {
	e.Result = e.Result.Clone()
	return e
}
