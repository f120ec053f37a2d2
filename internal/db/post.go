package db

import "time"

// 发布状态
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// 审核状态
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Post 定义了文章模型。发布状态与审核状态是两个独立的维度。
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Slug          string     `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	ContentFormat string     `gorm:"size:16;not null;default:markdown" json:"contentFormat"`
	Content       string     `gorm:"type:text" json:"-"`
	Excerpt       string     `gorm:"size:600" json:"excerpt"`
	ExcerptCustom bool       `gorm:"not null;default:false" json:"-"`
	Status        string     `gorm:"size:16;index;not null;default:draft" json:"status"`
	ReviewStatus  string     `gorm:"size:16;index;not null;default:pending" json:"reviewStatus"`
	AuthorID      uint       `gorm:"index;not null" json:"authorId"`
	Author        User       `gorm:"foreignKey:AuthorID" json:"-"`
	ViewCount     int64      `gorm:"not null;default:0" json:"viewCount"`
	PublishedAt   *time.Time `json:"publishedAt"`
	ReviewedBy    *uint      `json:"reviewedBy"`
	ReviewedAt    *time.Time `json:"reviewedAt"`
	Categories    []Category `gorm:"many2many:post_categories;" json:"categories"`
	Tags          []Tag      `gorm:"many2many:post_tags;" json:"tags"`
}

// IsPublic reports whether the post is visible on the public site.
func (p Post) IsPublic() bool {
	return p.Status == StatusPublished && p.ReviewStatus == ReviewApproved
}

// ValidStatus reports whether s is a known publication status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}
