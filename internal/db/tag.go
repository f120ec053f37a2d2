package db

import "time"

// Tag 定义了标签模型
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	SortOrder int       `gorm:"not null;default:0" json:"sortOrder"`
	PostCount int64     `gorm:"->;-:migration" json:"postCount"`
	Posts     []Post    `gorm:"many2many:post_tags;" json:"-"`
}

// PostTag 是文章与标签的关联行，(post_id, tag_id) 为联合主键。
type PostTag struct {
	PostID uint `gorm:"primaryKey"`
	TagID  uint `gorm:"primaryKey;index"`
}

// TableName 指定关联表名。
func (PostTag) TableName() string {
	return "post_tags"
}
