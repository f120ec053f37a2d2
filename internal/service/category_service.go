package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ahkjxy/vblog/internal/db"
	"github.com/ahkjxy/vblog/internal/slug"
)

// CategoryService 管理文章分类。
type CategoryService struct {
	db *gorm.DB
}

// CategoryInput represents fields accepted when saving a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// NewCategoryService creates a CategoryService instance.
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// List returns categories with post counts in configured order.
func (s *CategoryService) List(ctx context.Context) ([]db.Category, error) {
	var categories []db.Category
	if err := s.db.WithContext(ctx).
		Model(&db.Category{}).
		Select("categories.*, COUNT(post_categories.post_id) AS post_count").
		Joins("LEFT JOIN post_categories ON post_categories.category_id = categories.id").
		Group("categories.id").
		Order("categories.sort_order asc").
		Order("categories.name asc").
		Order("categories.id asc").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Create inserts a category with a unique name and slug.
func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*db.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateTaxonomyName(input.Name); err != nil {
		return nil, err
	}

	var category db.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Category{}).Where("name = ?", input.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrCategoryExists
		}

		resolved, err := slug.Resolve(ctx, slug.FromTitle(input.Slug, input.Name), 0, taxonomySlugExists(tx, &db.Category{}))
		if err != nil {
			return err
		}

		sortOrder, err := nextSortOrder(tx, &db.Category{})
		if err != nil {
			return err
		}

		category = db.Category{
			Name:        input.Name,
			Slug:        resolved,
			Description: strings.TrimSpace(input.Description),
			SortOrder:   sortOrder,
		}
		return tx.Omit("Posts").Create(&category).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}

	return &category, nil
}

// Update renames a category; the slug changes only when one is supplied.
func (s *CategoryService) Update(ctx context.Context, id uint, input CategoryInput) (*db.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateTaxonomyName(input.Name); err != nil {
		return nil, err
	}

	var category db.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&db.Category{}).Where("name = ? AND id <> ?", input.Name, id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrCategoryExists
		}

		if requested := strings.TrimSpace(input.Slug); requested != "" {
			resolved, err := slug.Resolve(ctx, slug.FromTitle(requested, input.Name), id, taxonomySlugExists(tx, &db.Category{}))
			if err != nil {
				return err
			}
			category.Slug = resolved
		}

		category.Name = input.Name
		category.Description = strings.TrimSpace(input.Description)
		return tx.Omit("Posts").Save(&category).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}

	count, err := s.postUsageCount(ctx, category.ID)
	if err != nil {
		return nil, err
	}
	category.PostCount = count

	return &category, nil
}

// Delete removes a category that no post references.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	var category db.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	count, err := s.postUsageCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	return s.db.WithContext(ctx).Delete(&category).Error
}

// Reorder updates category sort order based on the provided ids sequence.
func (s *CategoryService) Reorder(ctx context.Context, ids []uint) error {
	return reorder(ctx, s.db, &db.Category{}, ids, ErrCategoryOrder, ErrCategoryNotFound)
}

func (s *CategoryService) postUsageCount(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.PostCategory{}).
		Where("category_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
