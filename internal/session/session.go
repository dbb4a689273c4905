// Package session implements the single shared password gate in front of
// the dashboard. Tokens are opaque, expire after a configured TTL, and
// live only in process memory; a restart logs everyone out.
package session

import (
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBadPassword = errors.New("wrong password")
	ErrNoSession   = errors.New("session missing or expired")
)

type Manager struct {
	password string
	ttl      time.Duration

	mu     sync.Mutex
	tokens map[string]time.Time

	now func() time.Time
}

func NewManager(password string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		password: password,
		ttl:      ttl,
		tokens:   map[string]time.Time{},
		now:      time.Now,
	}
}

// Login checks the password and mints a token. An empty configured
// password disables login entirely.
func (m *Manager) Login(password string) (string, error) {
	if m.password == "" {
		return "", ErrBadPassword
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) != 1 {
		return "", ErrBadPassword
	}
	token := uuid.NewString()
	m.mu.Lock()
	m.tokens[token] = m.now().Add(m.ttl)
	m.mu.Unlock()
	return token, nil
}

// Validate reports whether the token names a live session, sliding its
// expiry forward on success.
func (m *Manager) Validate(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.tokens[token]
	if !ok {
		return ErrNoSession
	}
	if m.now().After(exp) {
		delete(m.tokens, token)
		return ErrNoSession
	}
	m.tokens[token] = m.now().Add(m.ttl)
	return nil
}

func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.tokens, token)
	m.mu.Unlock()
}
