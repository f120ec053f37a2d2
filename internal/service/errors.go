package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

// 错误类别。具体错误通过 %w 归入某一类别，handler 只根据类别映射状态码。
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("permission denied")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
)

var (
	ErrPostNotFound      = fmt.Errorf("post %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrCategoryNotFound  = fmt.Errorf("category %w", ErrNotFound)
	ErrTagNotFound       = fmt.Errorf("tag %w", ErrNotFound)
	ErrNotAuthor         = fmt.Errorf("%w: only the author or a reviewer may change this post", ErrForbidden)
	ErrReviewerOnly      = fmt.Errorf("%w: reviewer privilege required", ErrForbidden)
	ErrReviewNotPending  = fmt.Errorf("%w: post is not awaiting review", ErrConflict)
	ErrSlugTaken         = fmt.Errorf("%w: slug is already in use", ErrConflict)
	ErrCategoryExists    = fmt.Errorf("%w: category already exists", ErrConflict)
	ErrCategoryInUse     = fmt.Errorf("%w: category is associated with posts", ErrConflict)
	ErrTagExists         = fmt.Errorf("%w: tag already exists", ErrConflict)
	ErrTagInUse          = fmt.Errorf("%w: tag is associated with posts", ErrConflict)
	ErrTagOrder          = fmt.Errorf("%w: invalid tag order", ErrValidation)
	ErrCategoryOrder     = fmt.Errorf("%w: invalid category order", ErrValidation)
	ErrInvalidDecision   = fmt.Errorf("%w: decision must be approve or reject", ErrValidation)
	ErrInvalidViewCount  = fmt.Errorf("%w: view count must not be negative", ErrValidation)
	ErrInvalidCredential = errors.New("invalid username or password")
)

// ValidationError 携带逐字段的校验信息。
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", key, e.Fields[key]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// asValidationError converts ozzo validation output into a ValidationError.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// outcome classifies err into the label recorded by workflow metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
