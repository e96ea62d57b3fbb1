package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-vault/internal/config"
	"github.com/yourusername/book-vault/internal/model"
	"github.com/yourusername/book-vault/internal/testutil"
)

func newTestManager(t *testing.T, name string) *Manager {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenTestDB(t, name)
	cfg := &config.Config{
		JWTSecret: "test-secret",
		GinMode:   gin.TestMode,
	}
	return NewManager(cfg, db, nil)
}

func TestGenerateAndParseToken(t *testing.T) {
	m := newTestManager(t, "auth_token")

	token, err := m.GenerateToken("user-123")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	subject, err := m.parseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if subject != "user-123" {
		t.Fatalf("unexpected subject: %s", subject)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t, "auth_wrongsecret")

	token, err := m.GenerateToken("user-123")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	other := NewManager(&config.Config{JWTSecret: "another-secret"}, nil, nil)
	if _, err := other.parseToken(token); err == nil {
		t.Fatal("expected error for token signed with different secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	m := newTestManager(t, "auth_expired")

	original := tokenLifetime
	tokenLifetime = -time.Minute
	token, err := m.GenerateToken("user-123")
	tokenLifetime = original
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := m.parseToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestRequireLoginWithoutToken(t *testing.T) {
	m := newTestManager(t, "auth_notoken")

	router := gin.New()
	router.GET("/protected", m.RequireLogin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireLoginResolvesUser(t *testing.T) {
	m := newTestManager(t, "auth_resolve")
	user := testutil.SeedUser(t, m.db, "reader", "reader@example.com", "pw", false)

	token, err := m.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	router := gin.New()
	router.GET("/protected", m.RequireLogin(), func(c *gin.Context) {
		current, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "no user in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": current.ID, "name": current.Name})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d, body=%s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["id"] != user.ID || body["name"] != "reader" {
		t.Fatalf("unexpected resolved user: %v", body)
	}
}

func TestRequireLoginRejectsDeletedUser(t *testing.T) {
	m := newTestManager(t, "auth_deleted")
	user := testutil.SeedUser(t, m.db, "reader", "reader@example.com", "pw", false)

	token, err := m.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if err := m.db.Delete(user).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}

	router := gin.New()
	router.GET("/protected", m.RequireLogin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdmin(t *testing.T) {
	m := newTestManager(t, "auth_admin")
	admin := testutil.SeedUser(t, m.db, "admin", "admin@example.com", "pw", true)
	reader := testutil.SeedUser(t, m.db, "reader", "reader@example.com", "pw", false)

	router := gin.New()
	router.GET("/admin", m.RequireLogin(), m.RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	cases := []struct {
		name   string
		userID string
		want   int
	}{
		{"admin allowed", admin.ID, http.StatusOK},
		{"reader rejected", reader.ID, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := m.GenerateToken(tc.userID)
			if err != nil {
				t.Fatalf("generate token: %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("unexpected status: got %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	m := newTestManager(t, "auth_login")
	testutil.SeedUser(t, m.db, "reader", "reader@example.com", "correct-password", false)

	router := gin.New()
	router.POST("/login", m.Login)

	doLogin := func(t *testing.T, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("success sets cookie", func(t *testing.T) {
		rec := doLogin(t, `{"email":"reader@example.com","password":"correct-password"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: got %d, body=%s", rec.Code, rec.Body.String())
		}
		cookie := findCookie(t, rec, TokenCookieName)
		if cookie == nil || cookie.Value == "" {
			t.Fatal("expected jwt cookie to be set")
		}
		if !cookie.HttpOnly {
			t.Fatal("expected jwt cookie to be http-only")
		}
		if strings.Contains(rec.Body.String(), "password") {
			t.Fatalf("response leaks password field: %s", rec.Body.String())
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := doLogin(t, `{"email":"nobody@example.com","password":"whatever"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("unexpected status: got %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doLogin(t, `{"email":"reader@example.com","password":"wrong"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status: got %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doLogin(t, `{"email":"reader@example.com"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("unexpected status: got %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestLogoutClearsCookie(t *testing.T) {
	m := newTestManager(t, "auth_logout")

	router := gin.New()
	router.POST("/logout", m.Logout)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	cookie := findCookie(t, rec, TokenCookieName)
	if cookie == nil {
		t.Fatal("expected jwt cookie in response")
	}
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected cookie to be cleared: value=%q maxAge=%d", cookie.Value, cookie.MaxAge)
	}
}

func TestCanAccessOwner(t *testing.T) {
	admin := &model.User{ID: "admin-id", IsAdmin: true}
	owner := &model.User{ID: "owner-id"}
	other := &model.User{ID: "other-id"}

	cases := []struct {
		name    string
		actor   *model.User
		ownerID string
		want    bool
	}{
		{"owner allowed", owner, owner.ID, true},
		{"admin allowed", admin, owner.ID, true},
		{"other rejected", other, owner.ID, false},
		{"nil actor rejected", nil, owner.ID, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccessOwner(tc.actor, tc.ownerID); got != tc.want {
				t.Fatalf("CanAccessOwner = %v, want %v", got, tc.want)
			}
		})
	}
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	res := rec.Result()
	defer res.Body.Close()
	for _, cookie := range res.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
