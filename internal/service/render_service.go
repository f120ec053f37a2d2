package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahkjxy/vblog/internal/cache"
	"github.com/ahkjxy/vblog/internal/content"
	"github.com/ahkjxy/vblog/internal/db"
	"github.com/ahkjxy/vblog/internal/metrics"
)

// RenderService 将文章正文渲染为安全 HTML，并按文章版本缓存结果。
type RenderService struct {
	renderer *content.Renderer
	cache    *cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewRenderService creates a RenderService. A nil or disabled cache renders on every call.
func NewRenderService(renderer *content.Renderer, c *cache.Cache, ttl time.Duration, logger *slog.Logger) *RenderService {
	if renderer == nil {
		renderer = content.NewRenderer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderService{renderer: renderer, cache: c, ttl: ttl, logger: logger}
}

// RenderPost returns the HTML body of post. The cache key includes the
// update time so any edit produces a fresh entry.
func (s *RenderService) RenderPost(ctx context.Context, post *db.Post) (string, error) {
	body, err := content.Decode(post.ContentFormat, post.Content)
	if err != nil {
		return "", err
	}

	var html string
	key := renderKey(post)
	result, err := s.cache.CacheAside(ctx, key, &html, s.ttl, func() error {
		html, err = s.renderer.Render(body)
		return err
	})
	metrics.ObserveRenderCache(string(result))
	if err != nil {
		return "", err
	}
	if result == cache.Error {
		s.logger.WarnContext(ctx, "render cache unavailable", slog.Uint64("post_id", uint64(post.ID)))
	}
	return html, nil
}

// Evict drops the cached HTML of post's current version. Failures are logged only.
func (s *RenderService) Evict(ctx context.Context, post *db.Post) {
	if err := s.cache.Delete(ctx, renderKey(post)); err != nil {
		s.logger.WarnContext(ctx, "render cache evict failed", slog.Uint64("post_id", uint64(post.ID)), slog.Any("error", err))
	}
}

func renderKey(post *db.Post) string {
	return fmt.Sprintf("post:html:%d:%d", post.ID, post.UpdatedAt.UnixNano())
}

// Preview renders unsaved content without touching the cache.
func (s *RenderService) Preview(body content.Content) (string, error) {
	return s.renderer.Render(body)
}
