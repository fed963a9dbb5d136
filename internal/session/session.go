// Package session owns the process-wide authentication state. It is the
// only writer of the bearer token; the transport client and the realtime
// channel read it through Token.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/teamhub/internal/api"
	"github.com/nhle/teamhub/internal/credential"
	"github.com/nhle/teamhub/internal/model"
)

// Status is the authentication state of the session.
type Status int

const (
	StatusAnonymous Status = iota
	StatusAuthenticating
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// authResponse is the body returned by the sign-in endpoint. It carries
// only minimal identity fields; the full profile comes from a follow-up
// LoadCurrentUser call.
type authResponse struct {
	Token string     `json:"token"`
	Type  string     `json:"type"`
	User  model.User `json:"user"`
}

// Store holds the single process-wide session.
type Store struct {
	client *api.Client
	creds  credential.Store
	log    *slog.Logger

	mu              sync.Mutex
	status          Status
	token           string
	user            *model.User
	failedLogins    int
	lastFailedLogin time.Time
}

// New creates a session store. The store starts Anonymous; call Restore
// to pick up a persisted token.
func New(client *api.Client, creds credential.Store, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{
		client: client,
		creds:  creds,
		log:    log,
	}
}

// Status returns the current authentication status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Token returns the current bearer token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the authenticated user's profile, or nil.
func (s *Store) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// HasRole reports whether the authenticated user holds the given role.
// Anonymous sessions hold no roles.
func (s *Store) HasRole(name model.RoleName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAuthenticated || s.user == nil {
		return false
	}
	return s.user.HasRole(name)
}

// FailedLogins returns the count and time of failed login attempts since
// the last successful login. Recorded for future throttling; nothing is
// enforced yet.
func (s *Store) FailedLogins() (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failedLogins, s.lastFailedLogin
}

// Restore loads a persisted token. With no token (or one whose expiry
// claim has already passed) the session stays Anonymous; otherwise it
// moves to Authenticating and the caller should follow up with
// LoadCurrentUser to resolve the profile.
func (s *Store) Restore() Status {
	token, err := s.creds.Token()
	if err != nil || token == "" {
		s.mu.Lock()
		s.status = StatusAnonymous
		s.mu.Unlock()
		return StatusAnonymous
	}

	if tokenExpired(token) {
		s.log.Info("persisted token expired, discarding")
		if err := s.creds.DeleteToken(); err != nil {
			s.log.Warn("deleting expired token", "err", err)
		}
		s.mu.Lock()
		s.status = StatusAnonymous
		s.mu.Unlock()
		return StatusAnonymous
	}

	s.mu.Lock()
	s.token = token
	s.status = StatusAuthenticating
	s.mu.Unlock()
	return StatusAuthenticating
}

// LoadCurrentUser resolves the "who am I" call. On success the session
// becomes (or stays) Authenticated with the full profile and role set;
// on failure the token is cleared and the session drops to Anonymous.
func (s *Store) LoadCurrentUser(ctx context.Context) (*model.User, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return nil, fmt.Errorf("no token: %w", api.ErrSessionExpired)
	}

	var user model.User
	if err := s.client.Get(ctx, "/api/auth/me", &user); err != nil {
		s.log.Warn("current-user fetch failed, clearing session", "err", err)
		s.clear()
		return nil, err
	}

	s.mu.Lock()
	s.user = &user
	s.status = StatusAuthenticated
	s.mu.Unlock()
	return &user, nil
}

// Login authenticates with username/password credentials. On success the
// token is persisted and the session becomes Authenticated with the
// minimal identity from the response; callers refresh the profile via
// LoadCurrentUser. On failure the attempt counter is bumped and the
// session stays Anonymous.
func (s *Store) Login(ctx context.Context, username, password string) error {
	payload := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password}

	var resp authResponse
	if err := s.client.Post(ctx, "/api/auth/signin", payload, &resp); err != nil {
		s.mu.Lock()
		s.failedLogins++
		s.lastFailedLogin = time.Now()
		s.status = StatusAnonymous
		s.mu.Unlock()
		return err
	}

	if err := s.creds.SetToken(resp.Token); err != nil {
		// The session still works for this process; persistence is best
		// effort.
		s.log.Warn("persisting token", "err", err)
	}

	s.mu.Lock()
	s.token = resp.Token
	s.user = &resp.User
	s.status = StatusAuthenticated
	s.failedLogins = 0
	s.lastFailedLogin = time.Time{}
	s.mu.Unlock()

	s.log.Info("logged in", "username", username)
	return nil
}

// Signup registers a new account. The caller logs in afterwards.
func (s *Store) Signup(ctx context.Context, req SignupRequest) error {
	return s.client.Post(ctx, "/api/auth/signup", req, nil)
}

// SignupRequest is the registration payload.
type SignupRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Logout clears the token, profile, and counters. The realtime channel
// is not torn down here; it notices the missing token on its next cycle.
func (s *Store) Logout() {
	s.clear()
	s.log.Info("logged out")
}

// Expire is the transport client's session-expired hook: same cleanup
// as Logout, triggered by a credential rejection instead of the user.
func (s *Store) Expire() {
	s.clear()
	s.log.Info("session expired by server")
}

func (s *Store) clear() {
	if err := s.creds.DeleteToken(); err != nil {
		s.log.Warn("deleting persisted token", "err", err)
	}
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.status = StatusAnonymous
	s.failedLogins = 0
	s.lastFailedLogin = time.Time{}
	s.mu.Unlock()
}

// tokenExpired inspects the token's exp claim without verifying the
// signature (the client has no key; the server remains the authority).
// Tokens that cannot be parsed are treated as live and left for the
// server to reject.
func tokenExpired(token string) bool {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
