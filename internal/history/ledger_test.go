package history

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/resumepro-agent/internal/models"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func entry(label string, score int) models.HistoryEntry {
	return models.HistoryEntry{
		Label: label,
		Score: score,
		Result: models.AnalysisResult{
			Score:     score,
			Sections:  map[models.SectionName]string{"Summary": "ok"},
			TopSkills: []string{"Go"},
		},
	}
}

func TestLedgerAppendAssignsOrdinals(t *testing.T) {
	l := NewLedgerWithClock(fixedClock())

	first := l.Append(entry("Acme", 80))
	second := l.Append(entry("Globex", 40))

	assert.Equal(t, 1, first.Ordinal)
	assert.Equal(t, 2, second.Ordinal)
	assert.Equal(t, 2, l.Len())
}

func TestLedgerAppendIgnoresCallerOrdinal(t *testing.T) {
	l := NewLedger()
	e := entry("Acme", 80)
	e.Ordinal = 99

	got := l.Append(e)
	assert.Equal(t, 1, got.Ordinal)
}

func TestLedgerAppendDefaults(t *testing.T) {
	clock := fixedClock()
	l := NewLedgerWithClock(clock)

	got := l.Append(entry("", 50))
	assert.Equal(t, models.DefaultLabel, got.Label)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 1, 0, 0, time.UTC), got.Timestamp)

	stamped := entry("Acme", 50)
	stamped.Timestamp = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, stamped.Timestamp, l.Append(stamped).Timestamp, "explicit timestamp is kept")
}

func TestLedgerListMostRecentFirst(t *testing.T) {
	l := NewLedger()
	l.Append(entry("A", 10))
	l.Append(entry("B", 20))
	l.Append(entry("C", 30))

	list := l.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{list[0].Label, list[1].Label, list[2].Label})
	assert.Equal(t, []int{3, 2, 1}, []int{list[0].Ordinal, list[1].Ordinal, list[2].Ordinal})
}

func TestLedgerListEmpty(t *testing.T) {
	assert.Empty(t, NewLedger().List())
}

func TestLedgerEntriesAreImmutable(t *testing.T) {
	l := NewLedger()
	original := entry("Acme", 80)
	stored := l.Append(original)

	// Mutating the caller's value, the returned copy and a listed copy must not leak in
	original.Result.Sections["Summary"] = "changed"
	original.Result.TopSkills[0] = "changed"
	stored.Result.Sections["Summary"] = "changed"
	stored.Label = "changed"
	listed := l.List()
	listed[0].Result.TopSkills[0] = "changed"

	got, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Acme", got.Label)
	assert.Equal(t, "ok", got.Result.Sections["Summary"])
	assert.Equal(t, []string{"Go"}, got.Result.TopSkills)
}

func TestLedgerClear(t *testing.T) {
	l := NewLedger()
	l.Append(entry("A", 10))
	l.Append(entry("B", 20))

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.List())

	next := l.Append(entry("C", 30))
	assert.Equal(t, 3, next.Ordinal, "ordinals are never reused after Clear")
}

func TestLedgerGet(t *testing.T) {
	l := NewLedger()
	l.Append(entry("A", 10))

	_, ok := l.Get(2)
	assert.False(t, ok)

	got, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, "A", got.Label)
}

func TestStoreSessionsAreIndependent(t *testing.T) {
	s := NewStore()
	session := func(id string) *Ledger {
		l, unlock := s.Lock(id)
		unlock()
		return l
	}
	a := session("a")
	b := session("b")

	a.Append(entry("A", 10))

	assert.Equal(t, 1, session("a").Len())
	assert.Equal(t, 0, b.Len())
	assert.Same(t, a, session("a"))
	assert.Equal(t, 2, s.Len())

	s.Delete("a")
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, session("a").Len())
}

func TestStoreLockExistingNeverCreates(t *testing.T) {
	s := NewStore()

	_, _, ok := s.LockExisting("unknown")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	l, unlock := s.Lock("known")
	l.Append(entry("A", 10))
	unlock()

	got, unlock, ok := s.LockExisting("known")
	require.True(t, ok)
	assert.Same(t, l, got)
	unlock()

	s.Delete("known")
	_, _, ok = s.LockExisting("known")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStoreDeleteWaitsForRunningRequest(t *testing.T) {
	s := NewStore()
	l, unlock := s.Lock("a")

	var deleted atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Delete("a")
		deleted.Store(true)
	}()

	assert.Never(t, deleted.Load, 50*time.Millisecond, 5*time.Millisecond,
		"Delete must wait for the request holding the session")
	l.Append(entry("in flight", 50))
	unlock()
	<-done

	assert.Equal(t, 0, s.Len())

	fresh, unlock := s.Lock("a")
	defer unlock()
	assert.NotSame(t, l, fresh)
	assert.Equal(t, 1, fresh.Append(entry("after", 60)).Ordinal)
}

func TestStoreLockSerializesSession(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, unlock := s.Lock("shared")
			defer unlock()
			l.Append(entry("x", 1))
		}()
	}
	wg.Wait()

	l, unlock := s.Lock("shared")
	defer unlock()
	assert.Equal(t, 50, l.Len())
	list := l.List()
	assert.Equal(t, 50, list[0].Ordinal)
	assert.Equal(t, 1, list[49].Ordinal)
}

func TestSessionIDs(t *testing.T) {
	id := NewSessionID()
	assert.True(t, ValidSessionID(id))
	assert.NotEqual(t, id, NewSessionID())
	assert.False(t, ValidSessionID("not-a-session"))
}

func TestLedgerContext(t *testing.T) {
	_, ok := LedgerFromContext(context.Background())
	assert.False(t, ok)

	l := NewLedger()
	got, ok := LedgerFromContext(WithLedger(context.Background(), l))
	require.True(t, ok)
	assert.Same(t, l, got)
}
