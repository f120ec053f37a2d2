package slug

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goslug "github.com/goliatone/go-slug"
)

// Fallback is used when neither the requested slug nor the title yields one.
const Fallback = "post"

const maxLength = 100

// ErrEmptySlug 表示调用方未先从标题推导候选值。
var ErrEmptySlug = errors.New("slug candidate is empty")

// ExistsFunc reports whether candidate is used by a record other than excludeID.
type ExistsFunc func(ctx context.Context, candidate string, excludeID uint) (bool, error)

// Normalize 将任意文本转换为 URL 安全的 slug，无法转换时返回空串。
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if normalized, err := goslug.Normalize(text); err == nil {
		normalized = limit(strings.Trim(normalized, "-"))
		if normalized != "" && isASCIISlug(normalized) {
			return normalized
		}
	}
	return kebab(text)
}

// FromTitle prefers the requested slug, then the title, then Fallback.
func FromTitle(requested, title string) string {
	if s := Normalize(requested); s != "" {
		return s
	}
	if s := Normalize(title); s != "" {
		return s
	}
	return Fallback
}

// Resolve 返回一个未被占用的 slug：候选值被占用时依次追加 -1、-2……
// 检查结果只是建议，数据库唯一索引才是最终裁决。
func Resolve(ctx context.Context, desired string, excludeID uint, exists ExistsFunc) (string, error) {
	if desired == "" {
		return "", ErrEmptySlug
	}

	candidate := desired
	for suffix := 1; ; suffix++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		taken, err := exists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", desired, suffix)
	}
}

// kebab lower-cases ASCII letters and digits and turns every other run into
// a single dash.
func kebab(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastWasDash := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash && b.Len() > 0 {
				b.WriteByte('-')
				lastWasDash = true
			}
		}
	}
	return limit(strings.Trim(b.String(), "-"))
}

func limit(s string) string {
	if len(s) <= maxLength {
		return s
	}
	return strings.TrimRight(s[:maxLength], "-")
}

func isASCIISlug(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			continue
		}
		return false
	}
	return true
}
