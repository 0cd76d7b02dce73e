// Package session owns the client's identity: the current user, the bearer
// token and its persisted copy. All three change together under one lock,
// so no reader ever sees a user without a token or the reverse.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/issuetracker/internal/models"
)

// State is the authentication state of a Session.
type State int

const (
	Unauthenticated State = iota
	Verifying
	Authenticated
)

func (s State) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// ErrVerifyInFlight is returned by Restore while another Restore runs.
var ErrVerifyInFlight = errors.New("session: verification already in progress")

// LogoutTimeout bounds the best-effort logout notification.
const LogoutTimeout = 5 * time.Second

// TokenStore persists the token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Gateway is the subset of the API client a Session needs.
type Gateway interface {
	Register(ctx context.Context, username, email, password string) (models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (models.AuthResponse, error)
	Verify(ctx context.Context, token string) (models.User, error)
	Logout(ctx context.Context, token string) error
}

// Session is the single owner of (state, user, token).
type Session struct {
	gw    Gateway
	store TokenStore
	log   *zap.Logger

	mu    sync.Mutex
	state State
	user  *models.User
	token string
}

// New returns an unauthenticated session. Call Restore to adopt a
// persisted token.
func New(gw Gateway, store TokenStore, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{gw: gw, store: store, log: log}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the authenticated user.
func (s *Session) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Token returns the token to attach to requests, "" when unauthenticated.
// Requests are not re-verified; the server rejects a stale token itself.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Register creates an account and signs in with it.
func (s *Session) Register(ctx context.Context, username, email, password string) (models.User, error) {
	res, err := s.gw.Register(ctx, username, email, password)
	if err != nil {
		return models.User{}, err
	}
	return res.User, s.adopt(res)
}

// Login signs in with email and password.
func (s *Session) Login(ctx context.Context, email, password string) (models.User, error) {
	res, err := s.gw.Login(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	return res.User, s.adopt(res)
}

func (s *Session) adopt(res models.AuthResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(res.Token); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	user := res.User
	s.state, s.user, s.token = Authenticated, &user, res.Token
	return nil
}

// Restore verifies the persisted token, if any, and adopts it. A token the
// server rejects is dropped along with the stored copy; that is not an
// error, the session just ends up Unauthenticated. Only one Restore may run
// at a time.
func (s *Session) Restore(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state == Verifying {
		s.mu.Unlock()
		return Verifying, ErrVerifyInFlight
	}
	if s.state == Authenticated {
		s.mu.Unlock()
		return Authenticated, nil
	}
	tok, err := s.store.Load()
	if err != nil {
		s.log.Debug("cannot read persisted token", zap.Error(err))
		s.clearLocked()
		s.mu.Unlock()
		return Unauthenticated, nil
	}
	if tok == "" {
		s.mu.Unlock()
		return Unauthenticated, nil
	}
	s.state = Verifying
	s.mu.Unlock()

	user, verr := s.gw.Verify(ctx, tok)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Verifying {
		// Login or Logout ran meanwhile and owns the session now.
		return s.state, nil
	}
	if verr != nil {
		s.log.Debug("persisted token rejected", zap.Error(verr))
		s.clearLocked()
		return Unauthenticated, nil
	}
	s.state, s.user, s.token = Authenticated, &user, tok
	return Authenticated, nil
}

// Logout tells the server to revoke the token, then clears the session.
// The notification is best effort: its failure is logged and the local
// state is cleared regardless.
func (s *Session) Logout(ctx context.Context) error {
	tok := s.Token()
	if tok != "" {
		nctx, cancel := context.WithTimeout(ctx, LogoutTimeout)
		if err := s.gw.Logout(nctx, tok); err != nil {
			s.log.Warn("logout notification failed", zap.Error(err))
		}
		cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// clearLocked resets to Unauthenticated and removes the persisted token.
// s.mu must be held.
func (s *Session) clearLocked() error {
	s.state, s.user, s.token = Unauthenticated, nil, ""
	if err := s.store.Clear(); err != nil {
		s.log.Warn("cannot remove persisted token", zap.Error(err))
		return err
	}
	return nil
}
