package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tokoku/client/internal/domain"
)

const testKey = "0123456789abcdef0123456789abcdef"

func sample() Session {
	return Session{
		Token:              "token-1",
		User:               &domain.User{ID: "usr-1", Username: "kasir", Role: domain.Code("KASIR")},
		RememberedUsername: "kasir",
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if empty.Authenticated() {
		t.Fatalf("fresh store should hold no token")
	}

	if err := store.Save(ctx, sample()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Token != "token-1" || got.User == nil || got.User.Username != "kasir" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.SavedAt.IsZero() {
		t.Fatalf("expected SavedAt to be stamped")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cleared, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load cleared: %v", err)
	}
	if cleared.Token != "" || cleared.User != nil {
		t.Fatalf("clear must drop token and user: %+v", cleared)
	}
	if cleared.RememberedUsername != "kasir" {
		t.Fatalf("clear must keep remembered username, got %q", cleared.RememberedUsername)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store, err := NewFileStore(path, testKey)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exerciseStore(t, store)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 session file, got %o", perm)
	}
}

func TestFileStoreIsEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, testKey)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.Save(context.Background(), sample()); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, _ := os.ReadFile(path)
	if bytes.Contains(raw, []byte("token-1")) {
		t.Fatalf("token must not be stored in plain text")
	}

	other, _ := NewFileStore(path, "ffffffffffffffffffffffffffffffff")
	if _, err := other.Load(context.Background()); err == nil {
		t.Fatalf("expected a wrong key to fail")
	}
}

func TestFileStoreRejectsShortKey(t *testing.T) {
	if _, err := NewFileStore("session.json", "short"); err == nil {
		t.Fatalf("expected short key to be rejected")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TOKOKU_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TOKOKU_TEST_REDIS_ADDR to run redis session test")
	}
	store := NewRedisStore(addr, "", 0, "it-"+time.Now().Format("150405.000"), time.Minute)
	t.Cleanup(func() {
		_ = store.client.Del(context.Background(), store.key).Err()
		_ = store.Close()
	})
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	exerciseStore(t, store)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "usr-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, ok := TokenExpiry(signed)
	if !ok || !got.Equal(exp) {
		t.Fatalf("expected exp %v, got %v ok=%v", exp, got, ok)
	}
	if Expired(signed, time.Now()) {
		t.Fatalf("token should not be expired yet")
	}
	if !Expired(signed, exp.Add(time.Second)) {
		t.Fatalf("token should be expired after exp")
	}
	if _, ok := TokenExpiry("opaque-token"); ok {
		t.Fatalf("opaque tokens carry no expiry")
	}
	if Expired("opaque-token", time.Now()) {
		t.Fatalf("opaque tokens are never locally expired")
	}
}
