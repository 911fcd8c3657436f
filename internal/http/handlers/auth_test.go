package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/taxdesk/internal/auth"
	"github.com/geocoder89/taxdesk/internal/config"
	"github.com/geocoder89/taxdesk/internal/domain/user"
	"github.com/geocoder89/taxdesk/internal/http/handlers"
	"github.com/geocoder89/taxdesk/internal/http/middlewares"
	"github.com/geocoder89/taxdesk/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret-with-enough-entropy"

func setupAuthRouter(users *memUsers, profiles handlers.ProfileCache, view string) (*gin.Engine, *auth.Manager) {
	jwtManager := auth.NewManager(testSecret, time.Hour)
	h := handlers.NewAuthHandler(users, profiles, jwtManager, config.Config{Env: "test", ProfileView: view}, nil)
	am := middlewares.NewAuthMiddleware(jwtManager)

	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/logout", h.Logout)
	r.GET("/api/auth/getUser", am.RequireAuth(), h.GetUser)
	r.PUT("/api/auth/updateProfile", am.RequireAuth(), h.UpdateProfile)
	return r, jwtManager
}

func doJSON(r http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middlewares.SessionCookieName && c.MaxAge >= 0 && c.Value != "" {
			return c
		}
	}
	return nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middlewares.ErrorBody {
	t.Helper()

	var body middlewares.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad error body: %v body=%s", err, w.Body.String())
	}
	return body
}

const registerBody = `{"firstName":"Asha","lastName":"Rao","email":"a@x.com","password":"pw123456"}`

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	r, _ := setupAuthRouter(newMemUsers(), &spyProfiles{}, user.ViewMinimal)

	w := doJSON(r, http.MethodPost, "/api/auth/register", registerBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("first register: status %d body=%s", w.Code, w.Body.String())
	}
	if sessionCookie(w) != nil {
		t.Fatalf("register must not log the user in")
	}

	// case and whitespace differences still collide
	w = doJSON(r, http.MethodPost, "/api/auth/register",
		`{"firstName":"Asha","lastName":"Rao","email":" A@X.com ","password":"pw123456"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("second register: status %d, want 400", w.Code)
	}

	body := decodeError(t, w)
	if body.Code != handlers.CodeDuplicateUser || body.Error != "User already exists" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestRegister_ValidationError(t *testing.T) {
	r, _ := setupAuthRouter(newMemUsers(), &spyProfiles{}, user.ViewMinimal)

	w := doJSON(r, http.MethodPost, "/api/auth/register", `{"email":"a@x.com","password":"pw"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
	if body := decodeError(t, w); body.Code != handlers.CodeValidation {
		t.Fatalf("unexpected code %q", body.Code)
	}
}

func TestLoginThenGetUser(t *testing.T) {
	users := newMemUsers()
	profiles := &spyProfiles{}
	r, jwtManager := setupAuthRouter(users, profiles, user.ViewMinimal)

	if w := doJSON(r, http.MethodPost, "/api/auth/register", registerBody); w.Code != http.StatusCreated {
		t.Fatalf("register: status %d", w.Code)
	}

	w := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"pw123456"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body=%s", w.Code, w.Body.String())
	}

	var loginResp struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("bad login body: %v", err)
	}
	if loginResp.Message != "Successful" || loginResp.Token == "" {
		t.Fatalf("unexpected login body: %+v", loginResp)
	}
	if got := w.Header().Get("Authorization"); got != "Bearer "+loginResp.Token {
		t.Fatalf("Authorization header = %q", got)
	}

	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatalf("expected session cookie")
	}
	if !cookie.HttpOnly || cookie.MaxAge != 3600 || cookie.Path != "/" {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}

	claims, err := jwtManager.Verify(cookie.Value)
	if err != nil || claims.Email != "a@x.com" {
		t.Fatalf("cookie does not carry a valid credential: %v %+v", err, claims)
	}

	w = doJSON(r, http.MethodGet, "/api/auth/getUser", "", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("getUser: status %d body=%s", w.Code, w.Body.String())
	}

	var got struct {
		User map[string]any `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad getUser body: %v", err)
	}
	if got.User["email"] != "a@x.com" || got.User["firstName"] != "Asha" {
		t.Fatalf("unexpected user: %+v", got.User)
	}
	if _, leaked := got.User["lastName"]; leaked {
		t.Fatalf("minimal view should not include lastName: %+v", got.User)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("password material leaked: %s", w.Body.String())
	}
	if profiles.sets == 0 {
		t.Fatalf("expected profile to be cached")
	}
}

func TestGetUser_ExtendedView(t *testing.T) {
	users := newMemUsers()
	u, _ := users.Create(context.Background(), "Asha", "Rao", "a@x.com", "hash")

	r, jwtManager := setupAuthRouter(users, &spyProfiles{}, user.ViewExtended)
	token, _ := jwtManager.Issue(auth.Identity{UserID: u.ID, Email: u.Email, FirstName: u.FirstName})

	w := doJSON(r, http.MethodGet, "/api/auth/getUser", "", &http.Cookie{Name: middlewares.SessionCookieName, Value: token})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"lastName":"Rao"`) || !strings.Contains(w.Body.String(), `"panNumber"`) {
		t.Fatalf("extended view missing fields: %s", w.Body.String())
	}
}

func TestLogin_Failures(t *testing.T) {
	users := newMemUsers()
	r, _ := setupAuthRouter(users, &spyProfiles{}, user.ViewMinimal)

	if w := doJSON(r, http.MethodPost, "/api/auth/register", registerBody); w.Code != http.StatusCreated {
		t.Fatalf("register: status %d", w.Code)
	}

	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{"wrong password", `{"email":"a@x.com","password":"wrong-pass"}`, handlers.CodeInvalidCreds, "Invalid credentials"},
		{"unknown email", `{"email":"b@x.com","password":"pw123456"}`, handlers.CodeNotFound, "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/auth/login", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", w.Code)
			}
			if sessionCookie(w) != nil {
				t.Fatalf("failed login must not set a session cookie")
			}
			body := decodeError(t, w)
			if body.Code != tt.wantCode || body.Error != tt.wantMsg {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestGetUser_WithoutCookieIsUnauthorized(t *testing.T) {
	r, _ := setupAuthRouter(newMemUsers(), &spyProfiles{}, user.ViewMinimal)

	w := doJSON(r, http.MethodGet, "/api/auth/getUser", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestGetUser_StaleIdentityIsNotFound(t *testing.T) {
	r, jwtManager := setupAuthRouter(newMemUsers(), &spyProfiles{}, user.ViewMinimal)
	token, _ := jwtManager.Issue(auth.Identity{UserID: "gone", Email: "gone@x.com"})

	w := doJSON(r, http.MethodGet, "/api/auth/getUser", "", &http.Cookie{Name: middlewares.SessionCookieName, Value: token})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	r, _ := setupAuthRouter(newMemUsers(), &spyProfiles{}, user.ViewMinimal)

	w := doJSON(r, http.MethodPost, "/api/auth/logout", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == middlewares.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected session cookie to be expired")
	}
}

func TestUpdateProfile(t *testing.T) {
	users := newMemUsers()
	a, _ := users.Create(context.Background(), "Asha", "Rao", "a@x.com", "hash")
	_, _ = users.Create(context.Background(), "Bo", "Lee", "b@x.com", "hash")

	profiles := &spyProfiles{}
	r, jwtManager := setupAuthRouter(users, profiles, user.ViewMinimal)
	token, _ := jwtManager.Issue(auth.Identity{UserID: a.ID, Email: a.Email, FirstName: a.FirstName})
	cookie := &http.Cookie{Name: middlewares.SessionCookieName, Value: token}

	t.Run("email collision leaves record untouched", func(t *testing.T) {
		w := doJSON(r, http.MethodPut, "/api/auth/updateProfile",
			`{"firstName":"Asha","lastName":"Rao","email":"b@x.com","city":"Pune"}`, cookie)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", w.Code)
		}
		if body := decodeError(t, w); body.Code != handlers.CodeEmailInUse || body.Error != "Email already in use" {
			t.Fatalf("unexpected body %+v", body)
		}
		if got := users.get(a.ID); got.Email != "a@x.com" || got.Profile.City != "" {
			t.Fatalf("record changed: %+v", got)
		}
	})

	t.Run("missing required fields", func(t *testing.T) {
		w := doJSON(r, http.MethodPut, "/api/auth/updateProfile", `{"city":"Pune"}`, cookie)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", w.Code)
		}
	})

	t.Run("success invalidates cache", func(t *testing.T) {
		w := doJSON(r, http.MethodPut, "/api/auth/updateProfile",
			`{"firstName":"Asha","lastName":"Rao","email":"a@x.com","panNumber":" ABCDE1234F ","city":"Pune"}`, cookie)
		if w.Code != http.StatusOK {
			t.Fatalf("status %d body=%s", w.Code, w.Body.String())
		}

		got := users.get(a.ID)
		if got.Profile.PANNumber != "ABCDE1234F" || got.Profile.City != "Pune" {
			t.Fatalf("profile not persisted: %+v", got.Profile)
		}
		if len(profiles.invalidated) != 1 || profiles.invalidated[0] != a.ID {
			t.Fatalf("expected cache invalidation, got %v", profiles.invalidated)
		}
	})

	t.Run("race on unique index maps to email in use", func(t *testing.T) {
		users.updateFn = func(context.Context, user.User) (user.User, error) {
			return user.User{}, fmt.Errorf("update user: %w", postgres.ErrEmailAlreadyUsed)
		}
		defer func() { users.updateFn = nil }()

		w := doJSON(r, http.MethodPut, "/api/auth/updateProfile",
			`{"firstName":"Asha","lastName":"Rao","email":"c@x.com"}`, cookie)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", w.Code)
		}
	})
}
