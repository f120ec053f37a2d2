package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahkjxy/vblog/internal/handler"
	"github.com/ahkjxy/vblog/internal/logging"
)

const sessionName = "vblog_session"

// Options 是路由层的配置。
type Options struct {
	SessionSecret string
	Logger        *slog.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(opts.Logger))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 前台接口
	public := r.Group("/api")
	{
		public.GET("/posts", api.PublicPosts)
		public.GET("/posts/:slug", api.PublicPostDetail)
		public.GET("/categories", api.PublicCategories)
		public.GET("/tags", api.PublicTags)
		public.POST("/preview", api.Preview)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)

		// 需要认证的后台接口
		auth := admin.Group("/api")
		auth.Use(api.AuthRequired())
		{
			auth.GET("/posts", api.GetPosts)
			auth.GET("/posts/:id", api.GetPost)
			auth.POST("/posts", api.CreatePost)
			auth.PUT("/posts/:id", api.UpdatePost)
			auth.DELETE("/posts/:id", api.DeletePost)
			auth.POST("/posts/:id/review", api.ReviewPost)
			auth.PUT("/posts/:id/views", api.CorrectViewCount)
			auth.GET("/reviews", api.GetReviewQueue)

			auth.GET("/categories", api.GetCategories)
			auth.POST("/categories", api.CreateCategory)
			auth.PUT("/categories/order", api.ReorderCategories)
			auth.PUT("/categories/:id", api.UpdateCategory)
			auth.DELETE("/categories/:id", api.DeleteCategory)

			auth.GET("/tags", api.GetTags)
			auth.POST("/tags", api.CreateTag)
			auth.PUT("/tags/order", api.ReorderTags)
			auth.PUT("/tags/:id", api.UpdateTag)
			auth.DELETE("/tags/:id", api.DeleteTag)
		}
	}

	return r
}
