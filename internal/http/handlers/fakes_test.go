package handlers_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/taxdesk/internal/domain/user"
	"github.com/geocoder89/taxdesk/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// memUsers is an in-memory stand-in for the postgres users repository.
type memUsers struct {
	mu     sync.Mutex
	byID   map[string]user.User
	nextID int

	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	updateFn     func(ctx context.Context, u user.User) (user.User, error)
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]user.User)}
}

func (m *memUsers) Create(_ context.Context, firstName, lastName, email, passwordHash string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.byID {
		if u.Email == email {
			return user.User{}, postgres.ErrEmailAlreadyUsed
		}
	}

	m.nextID++
	now := time.Now().UTC()
	u := user.User{
		ID:           "user-" + strconv.Itoa(m.nextID),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return user.User{}, postgres.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, u user.User) (user.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, u)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[u.ID]; !ok {
		return user.User{}, postgres.ErrUserNotFound
	}
	for id, other := range m.byID {
		if id != u.ID && other.Email == u.Email {
			return user.User{}, postgres.ErrEmailAlreadyUsed
		}
	}
	u.UpdatedAt = time.Now().UTC()
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) get(id string) user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

// spyProfiles records cache traffic without storing anything.
type spyProfiles struct {
	mu          sync.Mutex
	sets        int
	invalidated []string
}

func (s *spyProfiles) Get(context.Context, string) (user.User, bool) { return user.User{}, false }

func (s *spyProfiles) Set(context.Context, user.User) {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
}

func (s *spyProfiles) Invalidate(_ context.Context, userID string) {
	s.mu.Lock()
	s.invalidated = append(s.invalidated, userID)
	s.mu.Unlock()
}
