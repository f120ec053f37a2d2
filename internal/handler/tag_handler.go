package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahkjxy/vblog/internal/service"
)

type tagRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

type orderRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// GetTags 获取标签列表
func (a *API) GetTags(c *gin.Context) {
	tags, err := a.tags.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "获取标签列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// CreateTag 创建新标签
func (a *API) CreateTag(c *gin.Context) {
	var req tagRequest
	if !bindJSON(c, &req, "标签名称不能为空") {
		return
	}

	tag, err := a.tags.Create(c.Request.Context(), service.TagInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		respondServiceError(c, err, "创建标签失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "标签创建成功", "tag": tag})
}

// UpdateTag 更新标签
func (a *API) UpdateTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的标签ID")
		return
	}

	var req tagRequest
	if !bindJSON(c, &req, "标签名称不能为空") {
		return
	}

	tag, err := a.tags.Update(c.Request.Context(), id, service.TagInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		respondServiceError(c, err, "更新标签失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "标签更新成功", "tag": tag})
}

// DeleteTag 删除标签
func (a *API) DeleteTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的标签ID")
		return
	}

	if err := a.tags.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "删除标签失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "标签删除成功"})
}

// ReorderTags 调整标签顺序
func (a *API) ReorderTags(c *gin.Context) {
	var req orderRequest
	if !bindJSON(c, &req, "无效的排序数据") {
		return
	}

	if err := a.tags.Reorder(c.Request.Context(), req.IDs); err != nil {
		respondServiceError(c, err, "更新标签排序失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "排序已更新"})
}
