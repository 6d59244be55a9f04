package history

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store keeps one ledger per session id
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu     sync.Mutex
	ledger *Ledger
	ended  bool // set by Delete under mu
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// NewSessionID returns a fresh random session id
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like an id from NewSessionID
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Lock acquires the session of id for one request and returns the ledger
// together with the function that releases it. Requests sharing a session run
// one after another; different sessions never wait on each other.
func (s *Store) Lock(id string) (*Ledger, func()) {
	for {
		sess := s.get(id)
		sess.mu.Lock()
		if !sess.ended {
			return sess.ledger, sess.mu.Unlock
		}
		sess.mu.Unlock()
	}
}

// LockExisting is Lock for a session that already exists. It never creates
// one, so read-only requests with unknown ids leave the store unchanged.
func (s *Store) LockExisting(id string) (*Ledger, func(), bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil, false
	}

	sess.mu.Lock()
	if sess.ended {
		sess.mu.Unlock()
		return nil, nil, false
	}
	return sess.ledger, sess.mu.Unlock, true
}

// Len returns the number of known sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Delete forgets a session and its ledger. It waits for the request holding
// the session; requests queued behind it start a fresh ledger.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.ended = true

	s.mu.Lock()
	if s.sessions[id] == sess {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
}

func (s *Store) get(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{ledger: NewLedger()}
		s.sessions[id] = sess
	}
	return sess
}

type ledgerKey struct{}

// WithLedger returns a context carrying l
func WithLedger(ctx context.Context, l *Ledger) context.Context {
	return context.WithValue(ctx, ledgerKey{}, l)
}

// LedgerFromContext returns the ledger stored by WithLedger
func LedgerFromContext(ctx context.Context) (*Ledger, bool) {
	l, ok := ctx.Value(ledgerKey{}).(*Ledger)
	return l, ok && l != nil
}
