package flow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/ledger-shortener/internal/shortener"
	"github.com/serroba/ledger-shortener/internal/wallet"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 30 * time.Minute

// AppSession is one client's page: its router and its wallet session.
// It lives in memory only and is never persisted.
type AppSession struct {
	ID        string
	Router    *Router
	Wallet    *wallet.Connector
	CreatedAt time.Time

	lastSeen time.Time
}

// Factory builds sessions sharing one index and allocator.
type Factory struct {
	Index     shortener.Index
	Allocator Allocator
	Providers []wallet.Provider
	BaseURL   string
	Logger    *zap.Logger
}

// NewSession creates an unregistered session. Short link visits use one
// per request.
func (f *Factory) NewSession() *AppSession {
	id := uuid.NewString()
	logger := f.Logger.With(zap.String("session", id))
	connector := wallet.NewConnector(f.Providers, logger)
	now := time.Now()

	return &AppSession{
		ID:        id,
		Router:    NewRouter(f.Index, f.Allocator, connector, f.BaseURL, logger),
		Wallet:    connector,
		CreatedAt: now,
		lastSeen:  now,
	}
}

// Sessions tracks open sessions and drops those idle longer than the TTL.
type Sessions struct {
	factory *Factory
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*AppSession
}

// NewSessions creates a registry. A ttl of zero uses DefaultSessionTTL.
func NewSessions(factory *Factory, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &Sessions{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*AppSession),
	}
}

// WithClock replaces the time source used for expiry.
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	s.now = now

	return s
}

// Open registers a new session.
func (s *Sessions) Open() *AppSession {
	session := s.factory.NewSession()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	session.lastSeen = s.now()
	s.sessions[session.ID] = session

	return session
}

// Get returns a live session and marks it as used.
func (s *Sessions) Get(id string) (*AppSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	now := s.now()
	if now.Sub(session.lastSeen) > s.ttl {
		delete(s.sessions, id)

		return nil, false
	}

	session.lastSeen = now

	return session, true
}

// Close discards a session and its wallet session.
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		session.Wallet.Disconnect()
	}

	return ok
}

// Len returns the number of registered sessions, expired or not.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Shutdown drops every session and disconnects its wallet.
func (s *Sessions) Shutdown() error {
	s.mu.Lock()
	open := make([]*AppSession, 0, len(s.sessions))

	for _, session := range s.sessions {
		open = append(open, session)
	}

	clear(s.sessions)
	s.mu.Unlock()

	for _, session := range open {
		session.Wallet.Disconnect()
	}

	return nil
}

func (s *Sessions) sweepLocked() {
	now := s.now()

	for id, session := range s.sessions {
		if now.Sub(session.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

type sessionKey struct{}

// ContextWithSession attaches session to ctx.
func ContextWithSession(ctx context.Context, session *AppSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session attached by ContextWithSession.
func SessionFromContext(ctx context.Context) (*AppSession, bool) {
	session, ok := ctx.Value(sessionKey{}).(*AppSession)

	return session, ok
}
