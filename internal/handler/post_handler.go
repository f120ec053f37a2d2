package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ahkjxy/vblog/internal/content"
	"github.com/ahkjxy/vblog/internal/db"
	"github.com/ahkjxy/vblog/internal/service"
)

// postResponse exposes the decoded body next to the stored record.
type postResponse struct {
	db.Post
	Body content.Content `json:"content"`
	HTML string          `json:"html,omitempty"`
}

type reviewRequest struct {
	Decision string `json:"decision" binding:"required"`
}

type viewCountRequest struct {
	Count *int64 `json:"count" binding:"required"`
}

func newPostResponse(post *db.Post) (postResponse, error) {
	body, err := content.Decode(post.ContentFormat, post.Content)
	if err != nil {
		return postResponse{}, err
	}
	return postResponse{Post: *post, Body: body}, nil
}

func newPostResponses(posts []db.Post) ([]postResponse, error) {
	items := make([]postResponse, 0, len(posts))
	for i := range posts {
		item, err := newPostResponse(&posts[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func listPayload(result *service.PostListResult, items []postResponse) gin.H {
	return gin.H{
		"posts":          items,
		"total":          result.Total,
		"publishedCount": result.PublishedCount,
		"draftCount":     result.DraftCount,
		"archivedCount":  result.ArchivedCount,
		"pendingCount":   result.PendingCount,
		"page":           result.Page,
		"perPage":        result.PerPage,
		"totalPages":     result.TotalPages,
	}
}

// GetPosts 获取后台文章列表
func (a *API) GetPosts(c *gin.Context) {
	page, perPage := parsePage(c)
	filter := service.PostFilter{
		Search:       strings.TrimSpace(c.Query("search")),
		Status:       strings.TrimSpace(c.Query("status")),
		ReviewStatus: strings.TrimSpace(c.Query("reviewStatus")),
		AuthorID:     parseUintQuery(c, "authorId"),
		CategoryID:   parseUintQuery(c, "categoryId"),
		TagID:        parseUintQuery(c, "tagId"),
		Page:         page,
		PerPage:      perPage,
	}
	if filter.Status != "" && !db.ValidStatus(filter.Status) {
		respondError(c, http.StatusBadRequest, "无效的文章状态")
		return
	}
	if c.Query("mine") == "1" {
		filter.AuthorID = currentActor(c).ID
	}

	result, err := a.posts.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "获取文章列表失败")
		return
	}

	items, err := newPostResponses(result.Posts)
	if err != nil {
		respondServiceError(c, err, "获取文章列表失败")
		return
	}
	c.JSON(http.StatusOK, listPayload(result, items))
}

// GetPost 获取单篇文章
func (a *API) GetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.posts.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "获取文章失败")
		return
	}

	resp, err := newPostResponse(post)
	if err != nil {
		respondServiceError(c, err, "获取文章失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": resp})
}

// CreatePost 创建文章
func (a *API) CreatePost(c *gin.Context) {
	var input service.PostInput
	if !bindJSON(c, &input, "无效的文章数据") {
		return
	}

	post, err := a.posts.Create(c.Request.Context(), currentActor(c), input)
	if err != nil {
		respondServiceError(c, err, "创建文章失败")
		return
	}

	resp, err := newPostResponse(post)
	if err != nil {
		respondServiceError(c, err, "创建文章失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "文章创建成功", "post": resp})
}

// UpdatePost 更新文章，未提供的字段保持不变
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var update service.PostUpdate
	if !bindJSON(c, &update, "无效的文章数据") {
		return
	}

	post, err := a.posts.Update(c.Request.Context(), currentActor(c), id, update)
	if err != nil {
		respondServiceError(c, err, "更新文章失败")
		return
	}

	resp, err := newPostResponse(post)
	if err != nil {
		respondServiceError(c, err, "更新文章失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "文章更新成功", "post": resp})
}

// DeletePost 删除文章
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	ctx := c.Request.Context()
	post, err := a.posts.Get(ctx, id)
	if err != nil {
		respondServiceError(c, err, "删除文章失败")
		return
	}
	if err := a.posts.Delete(ctx, currentActor(c), id); err != nil {
		respondServiceError(c, err, "删除文章失败")
		return
	}
	a.renders.Evict(ctx, post)
	c.JSON(http.StatusOK, gin.H{"message": "文章删除成功"})
}

// GetReviewQueue 返回待审核文章
func (a *API) GetReviewQueue(c *gin.Context) {
	page, perPage := parsePage(c)
	result, err := a.posts.ReviewQueue(c.Request.Context(), currentActor(c), page, perPage)
	if err != nil {
		respondServiceError(c, err, "获取审核队列失败")
		return
	}

	items, err := newPostResponses(result.Posts)
	if err != nil {
		respondServiceError(c, err, "获取审核队列失败")
		return
	}
	c.JSON(http.StatusOK, listPayload(result, items))
}

// ReviewPost 审核文章
func (a *API) ReviewPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var req reviewRequest
	if !bindJSON(c, &req, "请提供审核决定") {
		return
	}

	post, err := a.posts.Review(c.Request.Context(), currentActor(c), id, req.Decision)
	if err != nil {
		respondServiceError(c, err, "审核文章失败")
		return
	}

	resp, err := newPostResponse(post)
	if err != nil {
		respondServiceError(c, err, "审核文章失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "审核完成", "post": resp})
}

// CorrectViewCount 修正浏览数
func (a *API) CorrectViewCount(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var req viewCountRequest
	if !bindJSON(c, &req, "请提供浏览数") {
		return
	}

	if err := a.posts.CorrectViewCount(c.Request.Context(), currentActor(c), id, *req.Count); err != nil {
		respondServiceError(c, err, "修正浏览数失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "浏览数已更新", "viewCount": *req.Count})
}
