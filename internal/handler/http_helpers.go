package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ahkjxy/vblog/internal/content"
	"github.com/ahkjxy/vblog/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondServiceError 把 service 层错误映射为 HTTP 状态码。fallback 仅用于未归类的内部错误。
func respondServiceError(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数校验失败", "fields": verr.Fields})
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, content.ErrUnknownFormat),
		errors.Is(err, content.ErrInvalidTree):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredential):
		respondError(c, http.StatusUnauthorized, "用户名或密码错误")
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, forbiddenMessage(err))
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, conflictMessage(err))
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func forbiddenMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrReviewerOnly):
		return "仅审核员可以执行此操作"
	case errors.Is(err, service.ErrNotAuthor):
		return "只有作者或审核员可以修改这篇文章"
	default:
		return "没有权限"
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		return "文章不存在"
	case errors.Is(err, service.ErrCategoryNotFound):
		return "分类不存在"
	case errors.Is(err, service.ErrTagNotFound):
		return "标签不存在"
	case errors.Is(err, service.ErrUserNotFound):
		return "用户不存在"
	default:
		return "资源不存在"
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrReviewNotPending):
		return "文章不在待审核状态"
	case errors.Is(err, service.ErrSlugTaken):
		return "链接地址已被占用，请重试"
	case errors.Is(err, service.ErrCategoryExists):
		return "分类已存在"
	case errors.Is(err, service.ErrCategoryInUse):
		return "分类正在被文章使用，无法删除"
	case errors.Is(err, service.ErrTagExists):
		return "标签已存在"
	case errors.Is(err, service.ErrTagInUse):
		return "标签正在被文章使用，无法删除"
	default:
		return "操作冲突"
	}
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseUintQuery(c *gin.Context, key string) uint {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

func parsePage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "10"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}
