package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type SessionGateConfig struct {
	AuthPage        string   // e.g. "/authentication"
	LandingPage     string   // e.g. "/dashboard"
	ProtectedPrefix []string // e.g. {"/dashboard"}
	SecureCookie    bool
}

// SessionGate routes page requests by session presence: signed-in users are
// sent away from the auth page and anonymous users away from protected pages.
// Presence is decided by full verification; a cookie that fails it is cleared
// and treated as absent.
type SessionGate struct {
	jwt TokenVerifier
	cfg SessionGateConfig
}

func NewSessionGate(jwt TokenVerifier, cfg SessionGateConfig) *SessionGate {
	if cfg.AuthPage == "" {
		cfg.AuthPage = "/authentication"
	}
	if cfg.LandingPage == "" {
		cfg.LandingPage = "/dashboard"
	}
	if len(cfg.ProtectedPrefix) == 0 {
		cfg.ProtectedPrefix = []string{cfg.LandingPage}
	}
	return &SessionGate{jwt: jwt, cfg: cfg}
}

func (g *SessionGate) isAuthPage(path string) bool {
	return path == g.cfg.AuthPage || path == g.cfg.AuthPage+"/"
}

func (g *SessionGate) isProtected(path string) bool {
	for _, prefix := range g.cfg.ProtectedPrefix {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (g *SessionGate) hasSession(c *gin.Context) bool {
	raw, err := c.Cookie(SessionCookieName)
	if err != nil || raw == "" {
		return false
	}

	if _, err := g.jwt.Verify(raw); err != nil {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, "", -1, "/", "", g.cfg.SecureCookie, true)
		return false
	}

	return true
}

func (g *SessionGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		authPage := g.isAuthPage(path)
		protected := g.isProtected(path)

		if !authPage && !protected {
			c.Next()
			return
		}

		session := g.hasSession(c)

		switch {
		case session && authPage:
			c.Redirect(http.StatusTemporaryRedirect, g.cfg.LandingPage)
			c.Abort()
		case !session && protected:
			c.Redirect(http.StatusTemporaryRedirect, g.cfg.AuthPage)
			c.Abort()
		default:
			c.Next()
		}
	}
}
