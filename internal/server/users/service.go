// Package users keeps staff accounts and their sessions in memory.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/server/auth"
	"github.com/dmitrijs2005/containertracker/internal/server/models"
)

const (
	DefaultLoginLimit  = 5
	DefaultLoginWindow = time.Minute
)

var ErrRateLimited = errors.New("too many login attempts")

// bcryptCost is lowered by tests.
var bcryptCost = bcrypt.DefaultCost

// Staff is an account as configured.
type Staff struct {
	Name    string `mapstructure:"name"`
	Code    string `mapstructure:"code"`
	StaffID string `mapstructure:"staff_id"`
	Role    string `mapstructure:"role"`
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

type sessionState struct {
	userID    string
	expiresAt time.Time
}

type Service struct {
	secret []byte
	ttl    time.Duration
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	byName   map[string]*models.User
	byID     map[string]*models.User
	sessions map[string]sessionState
	attempts map[string][]time.Time
}

type Option func(*Service)

// WithLoginLimit allows n login attempts per name within window.
func WithLoginLimit(n int, window time.Duration) Option {
	return func(s *Service) {
		if n > 0 && window > 0 {
			s.limit, s.window = n, window
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func key(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func NewService(staff []Staff, secretKey string, ttl time.Duration, opts ...Option) (*Service, error) {
	if secretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	s := &Service{
		secret:   []byte(secretKey),
		ttl:      ttl,
		limit:    DefaultLoginLimit,
		window:   DefaultLoginWindow,
		now:      time.Now,
		byName:   make(map[string]*models.User, len(staff)),
		byID:     make(map[string]*models.User, len(staff)),
		sessions: make(map[string]sessionState),
		attempts: make(map[string][]time.Time),
	}
	for _, o := range opts {
		o(s)
	}

	for _, st := range staff {
		k := key(st.Name)
		if k == "" || st.Code == "" {
			return nil, fmt.Errorf("staff entry %q: name and code are required", st.Name)
		}
		if _, dup := s.byName[k]; dup {
			return nil, fmt.Errorf("staff entry %q: duplicate name", st.Name)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(st.Code), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash code of %q: %w", st.Name, err)
		}
		u := &models.User{
			ID:       uuid.NewString(),
			Name:     strings.TrimSpace(st.Name),
			StaffID:  st.StaffID,
			Role:     st.Role,
			CodeHash: hash,
		}
		s.byName[k] = u
		s.byID[u.ID] = u
	}
	return s, nil
}

// allowLocked records an attempt for k and reports whether it is within
// the limit.
func (s *Service) allowLocked(k string, now time.Time) bool {
	cutoff := now.Add(-s.window)
	recent := s.attempts[k][:0]
	for _, t := range s.attempts[k] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= s.limit {
		s.attempts[k] = recent
		return false
	}
	s.attempts[k] = append(recent, now)
	return true
}

// pruneLocked drops expired sessions and names with no attempt left in the
// rate limit window.
func (s *Service) pruneLocked(now time.Time) {
	for id, st := range s.sessions {
		if !now.Before(st.expiresAt) {
			delete(s.sessions, id)
		}
	}
	cutoff := now.Add(-s.window)
	for k, ts := range s.attempts {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(s.attempts, k)
		}
	}
}

// Login checks the staff code and opens a session.
func (s *Service) Login(ctx context.Context, name, code string) (*Session, error) {
	k := key(name)
	now := s.now()

	s.mu.Lock()
	s.pruneLocked(now)
	if !s.allowLocked(k, now) {
		s.mu.Unlock()
		return nil, ErrRateLimited
	}
	u := s.byName[k]
	s.mu.Unlock()

	if u == nil {
		return nil, common.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(u.CodeHash, []byte(code)); err != nil {
		return nil, common.ErrUnauthorized
	}

	sessionID := uuid.NewString()
	expiresAt := now.Add(s.ttl)
	token, err := auth.GenerateToken(u.ID, sessionID, s.secret, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	s.mu.Lock()
	s.sessions[sessionID] = sessionState{userID: u.ID, expiresAt: expiresAt}
	s.mu.Unlock()

	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// Validate returns the user of a live session.
func (s *Service) Validate(ctx context.Context, token string) (*models.User, error) {
	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[claims.ID]
	if !ok {
		return nil, common.ErrTokenRevoked
	}
	if !s.now().Before(st.expiresAt) {
		delete(s.sessions, claims.ID)
		return nil, common.ErrTokenExpired
	}
	u, ok := s.byID[st.userID]
	if !ok {
		return nil, common.ErrTokenRevoked
	}
	return u, nil
}

// Invalidate ends the session behind token. Unknown sessions are ignored.
func (s *Service) Invalidate(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, claims.ID)
	s.mu.Unlock()
	return nil
}
