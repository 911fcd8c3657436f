package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/geocoder89/taxdesk/internal/domain/user"
)

// ProfileCache is a cache-aside layer for user records. Backend failures
// degrade to misses; the database stays the source of truth.
type ProfileCache struct {
	store Store
	log   *slog.Logger
}

func NewProfileCache(store Store, log *slog.Logger) *ProfileCache {
	if log == nil {
		log = slog.Default()
	}
	return &ProfileCache{store: store, log: log}
}

func profileKey(userID string) string {
	return "user:profile:" + userID
}

func (c *ProfileCache) Get(ctx context.Context, userID string) (user.User, bool) {
	raw, ok, err := c.store.Get(ctx, profileKey(userID))
	if err != nil {
		c.log.WarnContext(ctx, "profile cache get failed", "user_id", userID, "err", err)
		return user.User{}, false
	}
	if !ok {
		return user.User{}, false
	}

	var cp cachedProfile
	if err := json.Unmarshal(raw, &cp); err != nil {
		c.log.WarnContext(ctx, "profile cache entry corrupt", "user_id", userID, "err", err)
		_ = c.store.Delete(ctx, profileKey(userID))
		return user.User{}, false
	}

	return cp.toUser(), true
}

func (c *ProfileCache) Set(ctx context.Context, u user.User) {
	raw, err := json.Marshal(fromUser(u))
	if err != nil {
		return
	}

	if err := c.store.Set(ctx, profileKey(u.ID), raw); err != nil {
		c.log.WarnContext(ctx, "profile cache set failed", "user_id", u.ID, "err", err)
	}
}

func (c *ProfileCache) Invalidate(ctx context.Context, userID string) {
	if err := c.store.Delete(ctx, profileKey(userID)); err != nil {
		c.log.WarnContext(ctx, "profile cache invalidate failed", "user_id", userID, "err", err)
	}
}

// cachedProfile is the stored form; the password hash never enters the cache.
type cachedProfile struct {
	ID        string       `json:"id"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Email     string       `json:"email"`
	Profile   user.Profile `json:"profile"`
}

func fromUser(u user.User) cachedProfile {
	return cachedProfile{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, Profile: u.Profile}
}

func (cp cachedProfile) toUser() user.User {
	return user.User{ID: cp.ID, FirstName: cp.FirstName, LastName: cp.LastName, Email: cp.Email, Profile: cp.Profile}
}
