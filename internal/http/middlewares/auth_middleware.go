package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/taxdesk/internal/actorctx"
	"github.com/geocoder89/taxdesk/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// credentialFrom prefers the session cookie and falls back to a bearer header.
func credentialFrom(c *gin.Context) string {
	if raw, err := c.Cookie(SessionCookieName); err == nil && raw != "" {
		return raw
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	return ""
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := credentialFrom(c)
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "No token provided")
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

// UserIDFromContext lets handlers read the verified caller without the key.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
