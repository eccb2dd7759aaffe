package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewToken(t *testing.T) {
	a, err := newToken()
	if err != nil {
		t.Fatalf("newToken() error = %v", err)
	}
	b, _ := newToken()
	if a == b {
		t.Error("tokens should be unique")
	}
	// 32 bytes, unpadded base64url.
	if len(a) != 43 {
		t.Errorf("len(token) = %d, want 43", len(a))
	}
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	token, err := store.Create(ctx, "acc-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	id, err := store.Resolve(ctx, token)
	if err != nil || id != "acc-1" {
		t.Fatalf("Resolve() = %q, %v; want acc-1", id, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Resolve() after expiry error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemorySessionStore_CreateSweepsExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, "acc-old"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	now = now.Add(2 * time.Minute)
	token, err := store.Create(ctx, "acc-new")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if n := len(store.sessions); n != 1 {
		t.Errorf("stored sessions = %d, want 1 after sweeping expired ones", n)
	}
	if id, err := store.Resolve(ctx, token); err != nil || id != "acc-new" {
		t.Errorf("Resolve() = %q, %v; want acc-new", id, err)
	}
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisSessionStore(client, time.Hour)

	token, err := store.Create(ctx, "acc-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := mr.TTL(sessionKey(token)); got != time.Hour {
		t.Errorf("TTL = %v, want 1h", got)
	}

	id, err := store.Resolve(ctx, token)
	if err != nil || id != "acc-1" {
		t.Fatalf("Resolve() = %q, %v; want acc-1", id, err)
	}

	if err := store.Delete(ctx, token); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Resolve() after delete error = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisSessionStore(client, time.Minute)
	token, _ := store.Create(ctx, "acc-1")

	mr.FastForward(2 * time.Minute)
	if _, err := store.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Resolve() after expiry error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Resolve(ctx, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Resolve(\"\") error = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisSessionStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	store := NewRedisSessionStore(client, time.Minute)
	_, err := store.Resolve(context.Background(), "token")
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Resolve() error = %v, want a connection error", err)
	}
}

func TestMemoryAccountRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()

	a := Account{ID: "1", Name: "Ana", Email: "ana@example.com", Role: RoleLearner}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, Account{ID: "2", Email: "ana@example.com"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicateEmail", err)
	}
	if _, err := repo.GetByID(ctx, "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	got, err := repo.GetByID(ctx, "1")
	if err != nil || got.Email != a.Email {
		t.Errorf("GetByID() = %+v, %v", got, err)
	}
}

func TestNewPostgresAccountRepository_NilPool(t *testing.T) {
	if _, err := NewPostgresAccountRepository(nil); err == nil {
		t.Error("NewPostgresAccountRepository(nil) should fail")
	}
}
