package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahkjxy/vblog/internal/service"
)

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (r categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{Name: r.Name, Slug: r.Slug, Description: r.Description}
}

// GetCategories 获取分类列表
func (a *API) GetCategories(c *gin.Context) {
	categories, err := a.categories.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "获取分类列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory 创建分类
func (a *API) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, "分类名称不能为空") {
		return
	}

	category, err := a.categories.Create(c.Request.Context(), req.input())
	if err != nil {
		respondServiceError(c, err, "创建分类失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "分类创建成功", "category": category})
}

// UpdateCategory 更新分类
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	var req categoryRequest
	if !bindJSON(c, &req, "分类名称不能为空") {
		return
	}

	category, err := a.categories.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondServiceError(c, err, "更新分类失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "分类更新成功", "category": category})
}

// DeleteCategory 删除分类
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	if err := a.categories.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "删除分类失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "分类删除成功"})
}

// ReorderCategories 调整分类顺序
func (a *API) ReorderCategories(c *gin.Context) {
	var req orderRequest
	if !bindJSON(c, &req, "无效的排序数据") {
		return
	}

	if err := a.categories.Reorder(c.Request.Context(), req.IDs); err != nil {
		respondServiceError(c, err, "更新分类排序失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "排序已更新"})
}
