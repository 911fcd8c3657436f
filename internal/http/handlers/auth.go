package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/taxdesk/internal/auth"
	"github.com/geocoder89/taxdesk/internal/config"
	"github.com/geocoder89/taxdesk/internal/domain/user"
	"github.com/geocoder89/taxdesk/internal/http/middlewares"
	"github.com/geocoder89/taxdesk/internal/repo/postgres"
	"github.com/geocoder89/taxdesk/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, firstName, lastName, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateProfile(ctx context.Context, u user.User) (user.User, error)
}

type ProfileCache interface {
	Get(ctx context.Context, userID string) (user.User, bool)
	Set(ctx context.Context, u user.User)
	Invalidate(ctx context.Context, userID string)
}

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
	TTL() time.Duration
}

type AuthHandler struct {
	users    UserStore
	profiles ProfileCache
	tokens   TokenIssuer
	cfg      config.Config
	log      *slog.Logger
}

func NewAuthHandler(users UserStore, profiles ProfileCache, tokens TokenIssuer, cfg config.Config, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		cfg:      cfg,
		log:      log,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	email := user.NormalizeEmail(req.Email)

	// fast path; the unique index settles concurrent registrations
	_, err := h.users.GetByEmail(cctx, email)
	if err == nil {
		RespondError(ctx, http.StatusBadRequest, CodeDuplicateUser, "User already exists", nil)
		return
	}
	if !errors.Is(err, postgres.ErrUserNotFound) {
		h.log.ErrorContext(cctx, "register lookup failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.users.Create(cctx, req.FirstName, req.LastName, email, hash)
	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondError(ctx, http.StatusBadRequest, CodeDuplicateUser, "User already exists", nil)
			return
		}

		h.log.ErrorContext(cctx, "register insert failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	h.log.InfoContext(cctx, "user registered", "user_id", u.ID)

	RespondMessage(ctx, http.StatusCreated, "User registered successfully")
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondError(ctx, http.StatusBadRequest, CodeNotFound, "User not found", nil)
			return
		}

		h.log.ErrorContext(cctx, "login lookup failed", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		RespondError(ctx, http.StatusBadRequest, CodeInvalidCreds, "Invalid credentials", nil)
		return
	}

	token, err := h.tokens.Issue(auth.Identity{
		UserID:    foundUser.ID,
		Email:     foundUser.Email,
		FirstName: foundUser.FirstName,
	})
	if err != nil {
		h.log.ErrorContext(cctx, "token issue failed", "err", err)
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.profiles.Set(cctx, foundUser)
	h.setSessionCookie(ctx, token)
	ctx.Header("Authorization", "Bearer "+token)

	ctx.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Successful",
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearSessionCookie(ctx)
	RespondMessage(ctx, http.StatusOK, "Logged out successfully")
}

// GetUser returns the caller's profile in the configured projection.
func (h *AuthHandler) GetUser(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, CodeUnauthorized, "No token provided")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, hit := h.profiles.Get(cctx, userID)
	if !hit {
		var err error
		u, err = h.users.GetByID(cctx, userID)
		if err != nil {
			if errors.Is(err, postgres.ErrUserNotFound) {
				RespondNotFound(ctx, "User not found")
				return
			}

			h.log.ErrorContext(cctx, "get user failed", "user_id", userID, "err", err)
			RespondInternal(ctx, "Could not load user")
			return
		}
		h.profiles.Set(cctx, u)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"user": u.Project(h.cfg.ProfileView)})
}

func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, CodeUnauthorized, "No token provided")
		return
	}

	var req user.UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	current, err := h.users.GetByID(cctx, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.ErrorContext(cctx, "update profile lookup failed", "user_id", userID, "err", err)
		RespondInternal(ctx, "Could not update profile")
		return
	}

	if email := user.NormalizeEmail(req.Email); email != current.Email {
		other, err := h.users.GetByEmail(cctx, email)
		if err == nil && other.ID != current.ID {
			RespondError(ctx, http.StatusBadRequest, CodeEmailInUse, "Email already in use", nil)
			return
		}
		if err != nil && !errors.Is(err, postgres.ErrUserNotFound) {
			h.log.ErrorContext(cctx, "update profile email check failed", "user_id", userID, "err", err)
			RespondInternal(ctx, "Could not update profile")
			return
		}
	}

	req.Apply(&current)

	if _, err := h.users.UpdateProfile(cctx, current); err != nil {
		switch {
		case errors.Is(err, postgres.ErrEmailAlreadyUsed):
			RespondError(ctx, http.StatusBadRequest, CodeEmailInUse, "Email already in use", nil)
		case errors.Is(err, postgres.ErrUserNotFound):
			RespondNotFound(ctx, "User not found")
		default:
			h.log.ErrorContext(cctx, "update profile failed", "user_id", userID, "err", err)
			RespondInternal(ctx, "Could not update profile")
		}
		return
	}

	h.profiles.Invalidate(cctx, userID)

	RespondMessage(ctx, http.StatusOK, "Profile updated successfully")
}

// Helper functions

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		token,
		int(h.tokens.TTL().Seconds()),
		"/",
		"",
		h.cfg.IsProd(),
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		"",
		-1,
		"/",
		"",
		h.cfg.IsProd(),
		true,
	)
}
