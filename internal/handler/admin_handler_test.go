package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/ahkjxy/vblog/internal/db"
	"github.com/ahkjxy/vblog/internal/service"
)

func setupSessionEngine(t *testing.T, api *API) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.POST("/login", api.Login)
	r.POST("/logout", api.Logout)
	r.GET("/me", api.AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": currentActor(c)})
	})
	return r
}

func postJSON(r *gin.Engine, path string, payload any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getWithCookies(r *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginSetsSessionAndResolvesActor(t *testing.T) {
	api, gdb := setupTestAPI(t)
	if err := db.EnsureUser(gdb, "mum", "secret", true); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	r := setupSessionEngine(t, api)

	w := postJSON(r, "/login", map[string]string{"username": "mum", "password": "secret"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	w = getWithCookies(r, "/me", cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var body struct {
		Actor service.Actor `json:"actor"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Actor.ID == 0 || !body.Actor.Reviewer {
		t.Fatalf("expected reviewer actor, got %+v", body.Actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	api, gdb := setupTestAPI(t)
	if err := db.EnsureUser(gdb, "kid", "secret", false); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	r := setupSessionEngine(t, api)

	if w := postJSON(r, "/login", map[string]string{"username": "kid", "password": "nope"}, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
	if w := postJSON(r, "/login", map[string]string{"username": "ghost", "password": "secret"}, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for unknown user, got %d", w.Code)
	}
	if w := postJSON(r, "/login", map[string]string{"username": "kid"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing password, got %d", w.Code)
	}
}

func TestAuthRequiredWithoutSession(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := setupSessionEngine(t, api)

	if w := getWithCookies(r, "/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAuthRequiredAfterAccountRemoved(t *testing.T) {
	api, gdb := setupTestAPI(t)
	if err := db.EnsureUser(gdb, "kid", "secret", false); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	r := setupSessionEngine(t, api)

	w := postJSON(r, "/login", map[string]string{"username": "kid", "password": "secret"}, nil)
	cookies := w.Result().Cookies()

	if err := gdb.Where("username = ?", "kid").Delete(&db.User{}).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if w := getWithCookies(r, "/me", cookies); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for removed account, got %d", w.Code)
	}
}
