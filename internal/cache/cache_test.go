package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/taxdesk/internal/domain/user"
)

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "k", []byte("v"))

	if v, ok, _ := c.Get(ctx, "k"); !ok || string(v) != "v" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	now = now.Add(2 * time.Minute)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestMemory_ExpiredReadKeepsFreshSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "k", []byte("old"))
	readAt := now.Add(2 * time.Minute)

	// a writer refreshes the key between the reader's lookup and its eviction
	now = readAt
	_ = c.Set(ctx, "k", []byte("new"))
	c.evictExpired("k", readAt)

	if v, ok, _ := c.Get(ctx, "k"); !ok || string(v) != "new" {
		t.Fatalf("fresh entry was evicted: %q %v", v, ok)
	}

	now = readAt.Add(2 * time.Minute)
	c.evictExpired("k", now)
	c.mu.RLock()
	_, stillThere := c.m["k"]
	c.mu.RUnlock()
	if stillThere {
		t.Fatalf("expired entry should be evicted")
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	_ = c.Set(ctx, "k", []byte("v"))
	_ = c.Delete(ctx, "k")

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestProfileCache_RoundTripDropsHash(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Minute)
	pc := NewProfileCache(store, nil)

	pc.Set(ctx, user.User{ID: "u1", Email: "a@x.com", FirstName: "Asha", PasswordHash: "secret-hash", Profile: user.Profile{City: "Pune"}})

	raw, ok, _ := store.Get(ctx, "user:profile:u1")
	if !ok {
		t.Fatalf("expected entry under profile key")
	}
	if bytes.Contains(raw, []byte("secret-hash")) {
		t.Fatalf("password hash leaked into cache: %s", raw)
	}

	got, ok := pc.Get(ctx, "u1")
	if !ok || got.Email != "a@x.com" || got.Profile.City != "Pune" {
		t.Fatalf("unexpected cached profile: %+v %v", got, ok)
	}

	pc.Invalidate(ctx, "u1")
	if _, ok := pc.Get(ctx, "u1"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (failingStore) Set(context.Context, string, []byte) error { return errors.New("down") }
func (failingStore) Delete(context.Context, string) error      { return errors.New("down") }

func TestProfileCache_BackendFailureIsMiss(t *testing.T) {
	pc := NewProfileCache(failingStore{}, nil)
	pc.Set(context.Background(), user.User{ID: "u1"})

	if _, ok := pc.Get(context.Background(), "u1"); ok {
		t.Fatalf("expected miss when backend fails")
	}
}
