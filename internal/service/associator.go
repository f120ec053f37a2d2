package service

import (
	"context"
	"slices"

	"github.com/ahkjxy/vblog/internal/db"
	"gorm.io/gorm"
)

// Associator 维护文章与分类、标签之间的多对多关联。替换为全量覆盖：
// 先删除文章的全部关联，再写入去重后的集合，二者在同一事务内完成。
// 集合未变化时不写库。
type Associator struct {
	db *gorm.DB
}

// NewAssociator creates an Associator. Passing a transaction handle makes the
// replacements join that transaction.
func NewAssociator(gdb *gorm.DB) *Associator {
	return &Associator{db: gdb}
}

// ReplaceCategories sets the post's categories to exactly ids.
func (a *Associator) ReplaceCategories(ctx context.Context, postID uint, ids []uint) error {
	ids = dedupeIDs(ids)
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAllExist(tx, &db.Category{}, ids, ErrCategoryNotFound); err != nil {
			return err
		}
		current, err := NewAssociator(tx).CategoryIDs(ctx, postID)
		if err != nil {
			return err
		}
		if sameIDs(current, ids) {
			return nil
		}
		if err := tx.Where("post_id = ?", postID).Delete(&db.PostCategory{}).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		links := make([]db.PostCategory, 0, len(ids))
		for _, id := range ids {
			links = append(links, db.PostCategory{PostID: postID, CategoryID: id})
		}
		return tx.Create(&links).Error
	})
}

// ReplaceTags sets the post's tags to exactly ids.
func (a *Associator) ReplaceTags(ctx context.Context, postID uint, ids []uint) error {
	ids = dedupeIDs(ids)
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAllExist(tx, &db.Tag{}, ids, ErrTagNotFound); err != nil {
			return err
		}
		current, err := NewAssociator(tx).TagIDs(ctx, postID)
		if err != nil {
			return err
		}
		if sameIDs(current, ids) {
			return nil
		}
		if err := tx.Where("post_id = ?", postID).Delete(&db.PostTag{}).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		links := make([]db.PostTag, 0, len(ids))
		for _, id := range ids {
			links = append(links, db.PostTag{PostID: postID, TagID: id})
		}
		return tx.Create(&links).Error
	})
}

// CategoryIDs returns the linked category ids in ascending order.
func (a *Associator) CategoryIDs(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	err := a.db.WithContext(ctx).Model(&db.PostCategory{}).
		Where("post_id = ?", postID).
		Order("category_id asc").
		Pluck("category_id", &ids).Error
	return ids, err
}

// TagIDs returns the linked tag ids in ascending order.
func (a *Associator) TagIDs(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	err := a.db.WithContext(ctx).Model(&db.PostTag{}).
		Where("post_id = ?", postID).
		Order("tag_id asc").
		Pluck("tag_id", &ids).Error
	return ids, err
}

// clear removes every link of the post; used before deleting it.
func (a *Associator) clear(ctx context.Context, postID uint) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&db.PostCategory{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", postID).Delete(&db.PostTag{}).Error
	})
}

func ensureAllExist(tx *gorm.DB, model any, ids []uint, notFound error) error {
	if len(ids) == 0 {
		return nil
	}
	var count int64
	if err := tx.Model(model).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return notFound
	}
	return nil
}

// sameIDs compares a sorted id list with an unordered, deduplicated one.
func sameIDs(sorted, ids []uint) bool {
	if len(sorted) != len(ids) {
		return false
	}
	want := append([]uint(nil), ids...)
	slices.Sort(want)
	return slices.Equal(sorted, want)
}

func dedupeIDs(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
