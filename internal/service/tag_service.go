package service

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"

	"github.com/ahkjxy/vblog/internal/db"
	"github.com/ahkjxy/vblog/internal/slug"
)

// TagService wraps tag related operations.
type TagService struct {
	db *gorm.DB
}

// TagInput 是创建或修改标签时接受的字段，slug 为空时由名称生成。
type TagInput struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NewTagService creates a TagService instance.
func NewTagService(gdb *gorm.DB) *TagService {
	return &TagService{db: gdb}
}

// List returns tags ordered by configured sort order.
func (s *TagService) List(ctx context.Context) ([]db.Tag, error) {
	var tags []db.Tag
	if err := s.db.WithContext(ctx).
		Model(&db.Tag{}).
		Select("tags.*, COUNT(post_tags.post_id) AS post_count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Group("tags.id").
		Order("tags.sort_order asc").
		Order("tags.name asc").
		Order("tags.id asc").
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// Create inserts a new tag with unique name.
func (s *TagService) Create(ctx context.Context, input TagInput) (*db.Tag, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateTaxonomyName(input.Name); err != nil {
		return nil, err
	}

	var tag db.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Tag{}).Where("name = ?", input.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrTagExists
		}

		resolved, err := slug.Resolve(ctx, slug.FromTitle(input.Slug, input.Name), 0, taxonomySlugExists(tx, &db.Tag{}))
		if err != nil {
			return err
		}

		sortOrder, err := nextSortOrder(tx, &db.Tag{})
		if err != nil {
			return err
		}

		tag = db.Tag{Name: input.Name, Slug: resolved, SortOrder: sortOrder}
		return tx.Omit("Posts").Create(&tag).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrTagExists
		}
		return nil, err
	}
	tag.PostCount = 0

	return &tag, nil
}

// Update changes the tag name while keeping uniqueness.
func (s *TagService) Update(ctx context.Context, id uint, input TagInput) (*db.Tag, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateTaxonomyName(input.Name); err != nil {
		return nil, err
	}

	var tag db.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tag, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTagNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&db.Tag{}).Where("name = ? AND id <> ?", input.Name, id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrTagExists
		}

		if requested := strings.TrimSpace(input.Slug); requested != "" {
			resolved, err := slug.Resolve(ctx, slug.FromTitle(requested, input.Name), id, taxonomySlugExists(tx, &db.Tag{}))
			if err != nil {
				return err
			}
			tag.Slug = resolved
		}

		tag.Name = input.Name
		return tx.Omit("Posts").Save(&tag).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrTagExists
		}
		return nil, err
	}

	count, err := s.postUsageCount(ctx, tag.ID)
	if err != nil {
		return nil, err
	}
	tag.PostCount = count

	return &tag, nil
}

// Delete removes a tag if it is not associated with posts.
func (s *TagService) Delete(ctx context.Context, id uint) error {
	var tag db.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return err
	}

	count, err := s.postUsageCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrTagInUse
	}

	return s.db.WithContext(ctx).Delete(&tag).Error
}

// Reorder updates tag sort order based on the provided ids sequence.
func (s *TagService) Reorder(ctx context.Context, ids []uint) error {
	return reorder(ctx, s.db, &db.Tag{}, ids, ErrTagOrder, ErrTagNotFound)
}

func (s *TagService) postUsageCount(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.PostTag{}).
		Where("tag_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// 以下为分类与标签共用的辅助函数。

func validateTaxonomyName(name string) error {
	fields := struct{ Name string }{name}
	err := validation.ValidateStruct(&fields,
		validation.Field(&fields.Name, validation.Required, validation.RuneLength(1, 64)),
	)
	return asValidationError(err)
}

func taxonomySlugExists(tx *gorm.DB, model any) slug.ExistsFunc {
	return func(ctx context.Context, candidate string, excludeID uint) (bool, error) {
		query := tx.WithContext(ctx).Model(model).Where("slug = ?", candidate)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	}
}

func nextSortOrder(tx *gorm.DB, model any) (int, error) {
	var maxSort int
	if err := tx.Model(model).Select("COALESCE(MAX(sort_order), -1)").Scan(&maxSort).Error; err != nil {
		return 0, err
	}
	return maxSort + 1, nil
}

func reorder(ctx context.Context, gdb *gorm.DB, model any, ids []uint, invalid, notFound error) error {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return invalid
		}
		if _, ok := seen[id]; ok {
			return invalid
		}
		seen[id] = struct{}{}
	}

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for idx, id := range ids {
			result := tx.Model(model).Where("id = ?", id).Update("sort_order", idx)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return notFound
			}
		}
		return nil
	})
}
