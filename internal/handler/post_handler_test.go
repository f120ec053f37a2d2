package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahkjxy/vblog/internal/db"
	"github.com/ahkjxy/vblog/internal/service"
)

func setupTestAPI(t *testing.T) (*API, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.Options{Path: dsn, LogLevel: logger.Silent})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewAPI(gdb, Options{}), gdb
}

func seedActor(t *testing.T, gdb *gorm.DB, username string, reviewer bool) service.Actor {
	t.Helper()
	user := db.User{Username: username, Password: "x", Reviewer: reviewer}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return service.Actor{ID: user.ID, Reviewer: reviewer}
}

func newJSONContext(method, target string, payload any, actor service.Actor) (*gin.Context, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if actor.ID != 0 {
		c.Set(actorContextKey, actor)
	}
	return c, w
}

type postEnvelope struct {
	Post struct {
		ID           uint            `json:"id"`
		Slug         string          `json:"slug"`
		Excerpt      string          `json:"excerpt"`
		Status       string          `json:"status"`
		ReviewStatus string          `json:"reviewStatus"`
		Content      json.RawMessage `json:"content"`
		HTML         string          `json:"html"`
		ViewCount    int64           `json:"viewCount"`
	} `json:"post"`
	Error string `json:"error"`
}

func decodePost(t *testing.T, w *httptest.ResponseRecorder) postEnvelope {
	t.Helper()
	var out postEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestCreatePostReturnsDerivedFields(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedActor(t, gdb, "author", false)

	c, w := newJSONContext(http.MethodPost, "/admin/api/posts", map[string]any{
		"title":   "Hello World",
		"content": "Hi **there**",
	}, author)
	api.CreatePost(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodePost(t, w)
	if resp.Post.Slug != "hello-world" || resp.Post.Excerpt != "Hi there" || resp.Post.ReviewStatus != db.ReviewPending {
		t.Fatalf("unexpected post: %+v", resp.Post)
	}
	if string(resp.Post.Content) != `"Hi **there**"` {
		t.Fatalf("expected markdown content echoed as string, got %s", resp.Post.Content)
	}
}

func TestCreatePostAcceptsDocumentTree(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedActor(t, gdb, "author", false)

	c, w := newJSONContext(http.MethodPost, "/admin/api/posts", map[string]any{
		"title": "Tree",
		"content": map[string]any{
			"type": "doc",
			"content": []any{
				map[string]any{"type": "paragraph", "content": []any{map[string]any{"type": "text", "text": "leaf"}}},
			},
		},
	}, author)
	api.CreatePost(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodePost(t, w); resp.Post.Excerpt != "leaf" {
		t.Fatalf("unexpected excerpt %q", resp.Post.Excerpt)
	}
}

func TestCreatePostValidationErrors(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedActor(t, gdb, "author", false)

	c, w := newJSONContext(http.MethodPost, "/admin/api/posts", map[string]any{
		"title":   "",
		"content": "body",
	}, author)
	api.CreatePost(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if _, ok := body["fields"]; !ok {
		t.Fatalf("expected field errors, got %v", body)
	}

	c, w = newJSONContext(http.MethodPost, "/admin/api/posts", map[string]any{
		"title":   "x",
		"content": 42,
	}, author)
	api.CreatePost(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported content, got %d", w.Code)
	}
}

func TestUpdatePostForbiddenForOtherAuthor(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedActor(t, gdb, "author", false)
	other := seedActor(t, gdb, "other", false)

	c, w := newJSONContext(http.MethodPost, "/admin/api/posts", map[string]any{"title": "Mine", "content": "x"}, author)
	api.CreatePost(c)
	created := decodePost(t, w)

	id := strconv.Itoa(int(created.Post.ID))
	c, w = newJSONContext(http.MethodPut, "/admin/api/posts/"+id, map[string]any{"title": "Theirs"}, other)
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}
	api.UpdatePost(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	c, w = newJSONContext(http.MethodDelete, "/admin/api/posts/"+id, nil, other)
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}
	api.DeletePost(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on delete, got %d", w.Code)
	}

	c, w = newJSONContext(http.MethodPut, "/admin/api/posts/abc", map[string]any{}, author)
	c.Params = gin.Params{gin.Param{Key: "id", Value: "abc"}}
	api.UpdatePost(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestReviewPostStatusCodes(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedActor(t, gdb, "author", false)
	reviewer := seedActor(t, gdb, "reviewer", true)

	c, w := newJSONContext(http.MethodPost, "/admin/api/posts", map[string]any{"title": "Check me", "content": "x", "status": "published"}, author)
	api.CreatePost(c)
	id := strconv.Itoa(int(decodePost(t, w).Post.ID))
	params := gin.Params{gin.Param{Key: "id", Value: id}}

	c, w = newJSONContext(http.MethodPost, "/admin/api/posts/"+id+"/review", map[string]any{"decision": "approve"}, author)
	c.Params = params
	api.ReviewPost(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-reviewer, got %d", w.Code)
	}

	c, w = newJSONContext(http.MethodPost, "/admin/api/posts/"+id+"/review", map[string]any{"decision": "approve"}, reviewer)
	c.Params = params
	api.ReviewPost(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodePost(t, w); resp.Post.ReviewStatus != db.ReviewApproved {
		t.Fatalf("expected approved, got %s", resp.Post.ReviewStatus)
	}

	c, w = newJSONContext(http.MethodPost, "/admin/api/posts/"+id+"/review", map[string]any{"decision": "reject"}, reviewer)
	c.Params = params
	api.ReviewPost(c)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second review, got %d", w.Code)
	}

	c, w = newJSONContext(http.MethodPost, "/admin/api/posts/9999/review", map[string]any{"decision": "approve"}, reviewer)
	c.Params = gin.Params{gin.Param{Key: "id", Value: "9999"}}
	api.ReviewPost(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCorrectViewCountRequiresReviewer(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedActor(t, gdb, "author", false)
	reviewer := seedActor(t, gdb, "reviewer", true)

	c, w := newJSONContext(http.MethodPost, "/admin/api/posts", map[string]any{"title": "Views", "content": "x"}, author)
	api.CreatePost(c)
	id := strconv.Itoa(int(decodePost(t, w).Post.ID))
	params := gin.Params{gin.Param{Key: "id", Value: id}}

	c, w = newJSONContext(http.MethodPut, "/admin/api/posts/"+id+"/views", map[string]any{"count": 3}, author)
	c.Params = params
	api.CorrectViewCount(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	c, w = newJSONContext(http.MethodPut, "/admin/api/posts/"+id+"/views", map[string]any{"count": -1}, reviewer)
	c.Params = params
	api.CorrectViewCount(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	c, w = newJSONContext(http.MethodPut, "/admin/api/posts/"+id+"/views", map[string]any{"count": 0}, reviewer)
	c.Params = params
	api.CorrectViewCount(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for zero count, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetReviewQueue(t *testing.T) {
	api, gdb := setupTestAPI(t)
	author := seedActor(t, gdb, "author", false)
	reviewer := seedActor(t, gdb, "reviewer", true)

	c, _ := newJSONContext(http.MethodPost, "/admin/api/posts", map[string]any{"title": "Queued", "content": "x"}, author)
	api.CreatePost(c)

	c, w := newJSONContext(http.MethodGet, "/admin/api/reviews", nil, reviewer)
	api.GetReviewQueue(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 {
		t.Fatalf("expected 1 queued post, got %d", body.Total)
	}

	c, w = newJSONContext(http.MethodGet, "/admin/api/reviews", nil, author)
	api.GetReviewQueue(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for author, got %d", w.Code)
	}
}
