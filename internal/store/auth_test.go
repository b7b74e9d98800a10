package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/httpapi"
	"tokoku/client/internal/poserr"
	"tokoku/client/internal/session"
)

// probeServer answers /auth/me with status and message, and every other path
// with a 401 carrying a generic message.
func probeServer(status int, message string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == httpapi.ProbePath {
			w.WriteHeader(status)
			if status == http.StatusOK {
				_ = json.NewEncoder(w).Encode(domain.User{ID: "usr-1", Username: "kasir", Role: domain.Code("KASIR")})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "internal server error"})
	}))
}

func wiredStore(t *testing.T, baseURL string) (*Store, *session.MemoryStore) {
	t.Helper()
	sessions := session.NewMemoryStore()
	require.NoError(t, sessions.Save(context.Background(), session.Session{
		Token:              "opaque-token",
		User:               &domain.User{ID: "usr-1", Username: "kasir"},
		RememberedUsername: "kasir",
	}))
	var s *Store
	client := httpapi.New(baseURL, sessions, httpapi.WithUnauthorizedHandler(func(ctx context.Context, err error) {
		s.HandleUnauthorized(ctx, err)
	}))
	s = New(client, sessions, Options{})
	_, err := s.Restore(context.Background())
	require.NoError(t, err)
	return s, sessions
}

func authenticated(t *testing.T, sessions *session.MemoryStore) bool {
	t.Helper()
	saved, err := sessions.Load(context.Background())
	require.NoError(t, err)
	return saved.Authenticated()
}

func TestProbeGenericUnauthorizedKeepsSession(t *testing.T) {
	srv := probeServer(http.StatusUnauthorized, "internal server error")
	defer srv.Close()
	s, sessions := wiredStore(t, srv.URL)

	ok, err := s.CheckSession(context.Background())
	require.Error(t, err)
	assert.True(t, ok)
	assert.True(t, authenticated(t, sessions))
	assert.True(t, s.Authenticated())
}

func TestProbeTokenUnauthorizedClearsSession(t *testing.T) {
	srv := probeServer(http.StatusUnauthorized, "invalid or expired token")
	defer srv.Close()
	s, sessions := wiredStore(t, srv.URL)

	ok, err := s.CheckSession(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, authenticated(t, sessions))
	assert.False(t, s.Authenticated())
	saved, _ := sessions.Load(context.Background())
	assert.Equal(t, "kasir", saved.RememberedUsername)
}

func TestProbeServerErrorKeepsSession(t *testing.T) {
	srv := probeServer(http.StatusInternalServerError, "database unavailable")
	defer srv.Close()
	s, sessions := wiredStore(t, srv.URL)

	ok, err := s.CheckSession(context.Background())
	require.Error(t, err)
	assert.True(t, ok)
	assert.True(t, authenticated(t, sessions))
}

func TestOtherEndpointUnauthorizedAlwaysClears(t *testing.T) {
	srv := probeServer(http.StatusOK, "")
	defer srv.Close()
	s, sessions := wiredStore(t, srv.URL)

	ok, err := s.CheckSession(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// The generic message would be ignored on the probe; here it still clears.
	page := s.FetchProducts(context.Background(), domain.ListQuery{})
	assert.Empty(t, page.Data)
	assert.False(t, authenticated(t, sessions))
	assert.False(t, s.Authenticated())

	msg, visible := s.Toast().Current()
	require.True(t, visible)
	assert.Equal(t, "Sesi berakhir, silakan login kembali", msg.Text)
}

func TestLocallyExpiredTokenClearsWithoutRequest(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	sessions := session.NewMemoryStore()
	require.NoError(t, sessions.Save(context.Background(), session.Session{Token: expired}))
	s := New(httpapi.New(srv.URL, sessions), sessions, Options{})

	ok, err := s.CheckSession(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, requests)
	assert.False(t, authenticated(t, sessions))
}

func TestIsTokenRejection(t *testing.T) {
	cases := map[string]bool{
		"invalid or expired token":     true,
		"Token tidak valid":            true,
		"sesi kedaluwarsa":             true,
		"missing authorization header": true,
		"internal server error":        false,
		"Username atau password salah": false,
	}
	for msg, want := range cases {
		assert.Equal(t, want, IsTokenRejection(poserr.FromStatus(http.StatusUnauthorized, msg)), msg)
	}
	assert.False(t, IsTokenRejection(poserr.FromStatus(http.StatusInternalServerError, "token store down")))
}
