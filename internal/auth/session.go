// Package auth tracks which user is signed in on this machine.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nhle/tasksync/internal/credential"
	"github.com/nhle/tasksync/internal/remote"
)

// sessionKey is the credential entry holding the signed-in user id.
const sessionKey = "session.user"

// ErrInvalidUser is returned by SignIn for an unusable user id.
var ErrInvalidUser = errors.New("invalid user id")

// Identity reports the signed-in user, if any.
type Identity interface {
	CurrentUser() (string, bool)
}

// Secrets is the credential storage a Session persists to.
type Secrets interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Session is the Identity backed by persisted credentials.
type Session struct {
	secrets Secrets

	mu     sync.RWMutex
	userID string
}

// NewSession returns a signed-out session. Call Restore to pick up a
// previously persisted sign-in.
func NewSession(secrets Secrets) *Session {
	return &Session{secrets: secrets}
}

// Restore loads the persisted user, if any.
func (s *Session) Restore() (string, bool, error) {
	userID, err := s.secrets.Get(sessionKey)
	if errors.Is(err, credential.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("restoring session: %w", err)
	}

	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
	return userID, userID != "", nil
}

// SignIn persists userID as the signed-in user.
func (s *Session) SignIn(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUser)
	}
	if err := remote.ValidateKey(userID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}

	if err := s.secrets.Set(sessionKey, userID); err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
	return nil
}

// SignOut forgets the signed-in user.
func (s *Session) SignOut() error {
	if err := s.secrets.Delete(sessionKey); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}

	s.mu.Lock()
	s.userID = ""
	s.mu.Unlock()
	return nil
}

// CurrentUser implements Identity.
func (s *Session) CurrentUser() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}
