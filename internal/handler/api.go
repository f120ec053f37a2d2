package handler

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/ahkjxy/vblog/internal/cache"
	"github.com/ahkjxy/vblog/internal/content"
	"github.com/ahkjxy/vblog/internal/service"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	posts      *service.PostService
	categories *service.CategoryService
	tags       *service.TagService
	users      *service.UserService
	renders    *service.RenderService
	logger     *slog.Logger
}

// Options configures optional collaborators of the API.
type Options struct {
	Cache          *cache.Cache
	RenderCacheTTL time.Duration
	// HighlightStyle 为代码高亮的 chroma 样式名，空值使用默认样式。
	HighlightStyle string
	Logger         *slog.Logger
	PostOptions    []service.PostServiceOption
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	postOptions := append([]service.PostServiceOption{service.WithLogger(logger)}, opts.PostOptions...)

	return &API{
		posts:      service.NewPostService(gdb, postOptions...),
		categories: service.NewCategoryService(gdb),
		tags:       service.NewTagService(gdb),
		users:      service.NewUserService(gdb),
		renders:    service.NewRenderService(content.NewRenderer(content.WithHighlightStyle(opts.HighlightStyle)), opts.Cache, opts.RenderCacheTTL, logger),
		logger:     logger,
	}
}
