package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ahkjxy/vblog/internal/content"
	"github.com/ahkjxy/vblog/internal/service"
)

type previewRequest struct {
	Content content.Content `json:"content"`
}

// PublicPosts 前台文章列表，仅包含已发布且审核通过的文章
func (a *API) PublicPosts(c *gin.Context) {
	page, perPage := parsePage(c)
	result, err := a.posts.ListPublic(c.Request.Context(), service.PostFilter{
		Search:       strings.TrimSpace(c.Query("search")),
		CategorySlug: strings.TrimSpace(c.Query("category")),
		TagSlug:      strings.TrimSpace(c.Query("tag")),
		Page:         page,
		PerPage:      perPage,
	})
	if err != nil {
		respondServiceError(c, err, "获取文章列表失败")
		return
	}

	items, err := newPostResponses(result.Posts)
	if err != nil {
		respondServiceError(c, err, "获取文章列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"posts":      items,
		"total":      result.Total,
		"page":       result.Page,
		"perPage":    result.PerPage,
		"totalPages": result.TotalPages,
	})
}

// PublicPostDetail 按 slug 返回文章与渲染后的 HTML，并记录一次浏览
func (a *API) PublicPostDetail(c *gin.Context) {
	ctx := c.Request.Context()

	post, err := a.posts.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		respondServiceError(c, err, "获取文章失败")
		return
	}
	if !post.IsPublic() {
		respondError(c, http.StatusNotFound, "文章不存在")
		return
	}

	html, err := a.renders.RenderPost(ctx, post)
	if err != nil {
		respondServiceError(c, err, "渲染文章失败")
		return
	}

	if err := a.posts.RecordView(ctx, post.ID); err != nil {
		a.logger.WarnContext(ctx, "record view failed", slog.Uint64("post_id", uint64(post.ID)), slog.Any("error", err))
	} else {
		post.ViewCount++
	}

	resp, err := newPostResponse(post)
	if err != nil {
		respondServiceError(c, err, "获取文章失败")
		return
	}
	resp.HTML = html
	c.JSON(http.StatusOK, gin.H{"post": resp})
}

// PublicCategories 前台分类列表
func (a *API) PublicCategories(c *gin.Context) {
	categories, err := a.categories.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "获取分类列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// PublicTags 前台标签列表
func (a *API) PublicTags(c *gin.Context) {
	tags, err := a.tags.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "获取标签列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// Preview 渲染未保存的正文
func (a *API) Preview(c *gin.Context) {
	var req previewRequest
	if !bindJSON(c, &req, "无效的正文") {
		return
	}
	if req.Content.IsZero() {
		respondError(c, http.StatusBadRequest, "正文不能为空")
		return
	}

	html, err := a.renders.Preview(req.Content)
	if err != nil {
		respondServiceError(c, err, "渲染失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"html":    html,
		"excerpt": content.Excerpt(req.Content, content.DefaultExcerptLength),
	})
}
