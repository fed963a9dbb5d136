package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/teamhub/internal/api"
	"github.com/nhle/teamhub/internal/credential"
	"github.com/nhle/teamhub/internal/model"
)

// memoryCreds is an in-memory credential.Store for tests.
type memoryCreds struct {
	token   string
	deleted bool
}

func (m *memoryCreds) Token() (string, error) {
	if m.token == "" {
		return "", credential.ErrNotFound
	}
	return m.token, nil
}

func (m *memoryCreds) SetToken(token string) error {
	m.token = token
	m.deleted = false
	return nil
}

func (m *memoryCreds) DeleteToken() error {
	m.token = ""
	m.deleted = true
	return nil
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestRestoreWithoutToken(t *testing.T) {
	s := New(api.NewClient("http://127.0.0.1:0", 0, nil), &memoryCreds{}, nil)

	assert.Equal(t, StatusAnonymous, s.Restore())
	assert.Equal(t, StatusAnonymous, s.Status())
	assert.Empty(t, s.Token())
}

func TestRestoreExpiredTokenDiscarded(t *testing.T) {
	creds := &memoryCreds{token: signedToken(t, time.Now().Add(-time.Hour))}
	s := New(api.NewClient("http://127.0.0.1:0", 0, nil), creds, nil)

	assert.Equal(t, StatusAnonymous, s.Restore())
	assert.True(t, creds.deleted, "expired token must be removed from the keyring")
	assert.Empty(t, s.Token())
}

func TestRestoreLiveToken(t *testing.T) {
	tok := signedToken(t, time.Now().Add(time.Hour))
	creds := &memoryCreds{token: tok}
	s := New(api.NewClient("http://127.0.0.1:0", 0, nil), creds, nil)

	assert.Equal(t, StatusAuthenticating, s.Restore())
	assert.Equal(t, tok, s.Token())
	assert.Nil(t, s.User(), "profile is unresolved until LoadCurrentUser")
}

func TestLoadCurrentUserResolvesProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		json.NewEncoder(w).Encode(model.User{
			ID:       "u1",
			Username: "ann",
			Roles:    []model.Role{{ID: "r1", Name: model.RoleManager}},
		})
	}))
	defer srv.Close()

	creds := &memoryCreds{token: signedToken(t, time.Now().Add(time.Hour))}
	s := New(api.NewClient(srv.URL, 0, nil), creds, nil)
	require.Equal(t, StatusAuthenticating, s.Restore())

	user, err := s.LoadCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)
	assert.Equal(t, StatusAuthenticated, s.Status())
	assert.True(t, s.HasRole(model.RoleManager))
	assert.False(t, s.HasRole(model.RoleAdmin))
}

func TestLoadCurrentUserFailureClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := &memoryCreds{token: signedToken(t, time.Now().Add(time.Hour))}
	s := New(api.NewClient(srv.URL, 0, nil), creds, nil)
	require.Equal(t, StatusAuthenticating, s.Restore())

	_, err := s.LoadCurrentUser(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusAnonymous, s.Status())
	assert.Empty(t, s.Token())
	assert.True(t, creds.deleted)
}

func TestSignupPostsRegistrationPayload(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/signup", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := New(api.NewClient(srv.URL, 0, nil), &memoryCreds{}, nil)
	err := s.Signup(context.Background(), SignupRequest{
		Username:  "ann",
		Email:     "ann@example.com",
		Password:  "secret",
		FirstName: "Ann",
		LastName:  "Lee",
	})
	require.NoError(t, err)

	assert.Equal(t, "ann", payload["username"])
	assert.Equal(t, "ann@example.com", payload["email"])
	assert.Equal(t, "secret", payload["password"])
	assert.Equal(t, "Ann", payload["firstName"])
	assert.Equal(t, "Lee", payload["lastName"])
	assert.Equal(t, StatusAnonymous, s.Status(), "registration does not sign the user in")
}

func TestLoginSuccessPersistsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/signin", r.URL.Path)
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		assert.Equal(t, "ann", payload["username"])
		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-login",
			"type":  "Bearer",
			"user":  model.User{ID: "u1", Username: "ann"},
		})
	}))
	defer srv.Close()

	creds := &memoryCreds{}
	s := New(api.NewClient(srv.URL, 0, nil), creds, nil)

	require.NoError(t, s.Login(context.Background(), "ann", "s3cret"))
	assert.Equal(t, StatusAuthenticated, s.Status())
	assert.Equal(t, "tok-login", s.Token())
	assert.Equal(t, "tok-login", creds.token)

	user := s.User()
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)

	count, _ := s.FailedLogins()
	assert.Zero(t, count)
}

func TestLoginFailureBumpsCounter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := New(api.NewClient(srv.URL, 0, nil), &memoryCreds{}, nil)

	err := s.Login(context.Background(), "ann", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrSessionExpired))
	assert.Equal(t, StatusAnonymous, s.Status())

	count, last := s.FailedLogins()
	assert.Equal(t, 1, count)
	assert.False(t, last.IsZero())

	err = s.Login(context.Background(), "ann", "wrong again")
	require.Error(t, err)
	count, _ = s.FailedLogins()
	assert.Equal(t, 2, count)
}

func TestLogoutClearsEverything(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-login",
			"user":  model.User{ID: "u1", Username: "ann"},
		})
	}))
	defer srv.Close()

	creds := &memoryCreds{}
	s := New(api.NewClient(srv.URL, 0, nil), creds, nil)
	require.NoError(t, s.Login(context.Background(), "ann", "s3cret"))

	s.Logout()
	assert.Equal(t, StatusAnonymous, s.Status())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
	assert.True(t, creds.deleted)
}

func TestExpireMatchesLogout(t *testing.T) {
	creds := &memoryCreds{token: signedToken(t, time.Now().Add(time.Hour))}
	s := New(api.NewClient("http://127.0.0.1:0", 0, nil), creds, nil)
	require.Equal(t, StatusAuthenticating, s.Restore())

	s.Expire()
	assert.Equal(t, StatusAnonymous, s.Status())
	assert.Empty(t, s.Token())
	assert.True(t, creds.deleted)
}

func TestHasRoleAnonymous(t *testing.T) {
	s := New(api.NewClient("http://127.0.0.1:0", 0, nil), &memoryCreds{}, nil)
	assert.False(t, s.HasRole(model.RoleAdmin))
}
