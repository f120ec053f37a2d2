package db

import "time"

// Category 定义了文章分类模型。没有任何分类关联的文章在前台视为“未分类”。
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"size:500" json:"description"`
	SortOrder   int       `gorm:"not null;default:0" json:"sortOrder"`
	PostCount   int64     `gorm:"->;-:migration" json:"postCount"`
	Posts       []Post    `gorm:"many2many:post_categories;" json:"-"`
}

// PostCategory 是文章与分类的关联行，(post_id, category_id) 为联合主键。
type PostCategory struct {
	PostID     uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"primaryKey;index"`
}

// TableName 指定关联表名。
func (PostCategory) TableName() string {
	return "post_categories"
}
