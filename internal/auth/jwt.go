package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret     = errors.New("token signing secret is not configured")
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrCredentialExpired also matches ErrInvalidCredential.
	ErrCredentialExpired = fmt.Errorf("%w: expired", ErrInvalidCredential)
)

// Identity is what a session credential asserts about its holder.
type Identity struct {
	UserID    string
	Email     string
	FirstName string
}

type Claims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, FirstName: c.FirstName}
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of m that reads the current time from now.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a credential for id that expires one TTL from now.
func (m *Manager) Issue(id Identity) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := m.now().UTC()

	claims := Claims{
		UserID:    id.UserID,
		Email:     id.Email,
		FirstName: id.FirstName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Subject:   id.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCredentialExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidCredential
	}

	return claims, nil
}
