// Package session keeps the signed-in staff credential of the client.
//
// The session is persisted in the local store with a local expiry. Local
// expiry only saves network round trips; the server stays authoritative and
// Validate fails closed: any doubt, including an unreachable server, signs
// the user out locally.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/logging"
)

var ErrNoSession = errors.New("no active session")

// Remote is the authentication service.
type Remote interface {
	Login(ctx context.Context, name, code string) (*models.Session, error)
	ValidateSession(ctx context.Context, token string) (*models.Session, bool, error)
	InvalidateSession(ctx context.Context, token string) error
}

// KV persists the session record.
type KV interface {
	GetMeta(ctx context.Context, key string) ([]byte, error)
	SetMeta(ctx context.Context, key string, value []byte) error
	DeleteMeta(ctx context.Context, key string) error
}

type Manager struct {
	kv     KV
	remote Remote
	ttl    time.Duration
	now    func() time.Time
	log    logging.Logger

	mu     sync.Mutex
	cur    *models.Session
	loaded bool
}

type Option func(*Manager)

func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(kv KV, remote Remote, log logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		kv:     kv,
		remote: remote,
		ttl:    common.DefaultSessionTTL,
		now:    time.Now,
		log:    log.With("module", "session"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// loadLocked reads the persisted record once. A record that cannot be decoded
// is dropped.
func (m *Manager) loadLocked(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	raw, err := m.kv.GetMeta(ctx, metadata.KeySession)
	if err != nil {
		return err
	}
	m.loaded = true
	if raw == nil {
		return nil
	}
	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil || s.Token == "" {
		m.log.Warn(ctx, "dropping unreadable session record", "error", err)
		return m.clearLocked(ctx)
	}
	m.cur = &s
	return nil
}

func (m *Manager) clearLocked(ctx context.Context) error {
	m.cur = nil
	m.loaded = true
	return m.kv.DeleteMeta(ctx, metadata.KeySession)
}

func (m *Manager) persistLocked(ctx context.Context, s *models.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.kv.SetMeta(ctx, metadata.KeySession, raw); err != nil {
		return err
	}
	m.cur = s
	m.loaded = true
	return nil
}

func clone(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Load returns the persisted session without contacting the server. Missing
// or locally expired sessions yield ErrNoSession.
func (m *Manager) Load(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return nil, err
	}
	if m.cur == nil {
		return nil, ErrNoSession
	}
	if m.cur.Expired(m.now()) {
		if err := m.clearLocked(ctx); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}
	return clone(m.cur), nil
}

// CreateSession stores data as the current session, expiring after the TTL.
func (m *Manager) CreateSession(ctx context.Context, data models.Session) (*models.Session, error) {
	if data.Token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrNoSession)
	}
	data.ExpiresAt = m.now().Add(m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.persistLocked(ctx, &data); err != nil {
		return nil, err
	}
	m.log.Info(ctx, "session created", "user", data.Name, "expires_at", data.ExpiresAt)
	return clone(&data), nil
}

// Login checks the input, signs in remotely and stores the new session.
func (m *Manager) Login(ctx context.Context, name, code string) (*models.Session, error) {
	name, code, err := models.NormalizeLogin(name, code)
	if err != nil {
		return nil, err
	}
	s, err := m.remote.Login(ctx, name, code)
	if err != nil {
		return nil, err
	}
	return m.CreateSession(ctx, *s)
}

// Validate confirms the session with the server. Rejection and transport
// errors both clear the local session.
func (m *Manager) Validate(ctx context.Context) (*models.Session, error) {
	cur, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}

	amended, valid, err := m.remote.ValidateSession(ctx, cur.Token)

	m.mu.Lock()
	defer m.mu.Unlock()

	// a concurrent logout or login wins
	if m.cur == nil || m.cur.Token != cur.Token {
		return nil, ErrNoSession
	}

	if err != nil || !valid {
		m.log.Warn(ctx, "session rejected, signing out", "error", err)
		if cerr := m.clearLocked(ctx); cerr != nil {
			return nil, cerr
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
		}
		return nil, ErrNoSession
	}

	next := clone(m.cur)
	if amended != nil {
		if amended.ID != "" {
			next.ID = amended.ID
		}
		if amended.Name != "" {
			next.Name = amended.Name
		}
		if amended.StaffID != "" {
			next.StaffID = amended.StaffID
		}
		if amended.Role != "" {
			next.Role = amended.Role
		}
	}
	if *next != *m.cur {
		if err := m.persistLocked(ctx, next); err != nil {
			return nil, err
		}
	}
	return clone(next), nil
}

// Logout tells the server to drop the token, ignoring failures, and always
// clears the local session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	loadErr := m.loadLocked(ctx)
	var token string
	if m.cur != nil {
		token = m.cur.Token
	}
	m.mu.Unlock()

	if token != "" {
		if err := m.remote.InvalidateSession(ctx, token); err != nil {
			m.log.Warn(ctx, "remote logout failed", "error", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.clearLocked(ctx); err != nil {
		return err
	}
	if loadErr != nil {
		m.log.Warn(ctx, "session record was unreadable", "error", loadErr)
	}
	return nil
}

// Expire drops the local session without contacting the server. It is used
// when the server has already rejected the token.
func (m *Manager) Expire(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil && m.loaded {
		return nil
	}
	m.log.Info(ctx, "session rejected by server, signing out")
	return m.clearLocked(ctx)
}

// Token returns the current token for background calls. It never contacts
// the server.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return "", err
	}
	if m.cur == nil || m.cur.Expired(m.now()) {
		return "", ErrNoSession
	}
	return m.cur.Token, nil
}

// Current is the in-memory session, nil when signed out or not loaded yet.
func (m *Manager) Current() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil || m.cur.Expired(m.now()) {
		return nil
	}
	return clone(m.cur)
}
