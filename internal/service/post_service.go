package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahkjxy/vblog/internal/content"
	"github.com/ahkjxy/vblog/internal/db"
	"github.com/ahkjxy/vblog/internal/metrics"
	"github.com/ahkjxy/vblog/internal/slug"
)

// maxSlugAttempts bounds how often a write is retried after losing a slug race.
const maxSlugAttempts = 3

// 审核决定
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// PostService 实现文章的发布流程：创建、更新、删除与审核，以及相应的权限校验。
type PostService struct {
	db     *gorm.DB
	now    func() time.Time
	logger *slog.Logger
}

// PostServiceOption configures a PostService.
type PostServiceOption func(*PostService)

// WithClock overrides the clock used for publish and review timestamps.
func WithClock(now func() time.Time) PostServiceOption {
	return func(s *PostService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for workflow events.
func WithLogger(logger *slog.Logger) PostServiceOption {
	return func(s *PostService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// PostInput represents fields accepted when creating a post.
type PostInput struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Content     content.Content `json:"content"`
	Excerpt     string          `json:"excerpt"`
	Status      string          `json:"status"`
	CategoryIDs []uint          `json:"categoryIds"`
	TagIDs      []uint          `json:"tagIds"`
}

// PostUpdate carries a partial update; nil fields are left unchanged.
type PostUpdate struct {
	Title       *string          `json:"title"`
	Slug        *string          `json:"slug"`
	Content     *content.Content `json:"content"`
	Excerpt     *string          `json:"excerpt"`
	Status      *string          `json:"status"`
	CategoryIDs *[]uint          `json:"categoryIds"`
	TagIDs      *[]uint          `json:"tagIds"`
}

// PostFilter describes filters for listing posts.
type PostFilter struct {
	Search       string
	Status       string
	ReviewStatus string
	AuthorID     uint
	CategoryID   uint
	CategorySlug string
	TagID        uint
	TagSlug      string
	Page         int
	PerPage      int
}

// PostListResult aggregates paginated list data and counters.
type PostListResult struct {
	Posts          []db.Post `json:"posts"`
	Total          int64     `json:"total"`
	PublishedCount int64     `json:"publishedCount"`
	DraftCount     int64     `json:"draftCount"`
	ArchivedCount  int64     `json:"archivedCount"`
	PendingCount   int64     `json:"pendingCount"`
	TotalPages     int       `json:"totalPages"`
	Page           int       `json:"page"`
	PerPage        int       `json:"perPage"`
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB, opts ...PostServiceOption) *PostService {
	s := &PostService{db: gdb, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get fetches a post by id with categories and tags preloaded.
func (s *PostService) Get(ctx context.Context, id uint) (*db.Post, error) {
	var post db.Post
	if err := s.withTaxonomy(s.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetBySlug fetches a post by its slug.
func (s *PostService) GetBySlug(ctx context.Context, postSlug string) (*db.Post, error) {
	var post db.Post
	if err := s.withTaxonomy(s.db.WithContext(ctx)).Where("slug = ?", strings.TrimSpace(postSlug)).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// Create 由作者创建文章。普通作者的文章总是进入待审核；审核员直接发布时自动通过审核。
func (s *PostService) Create(ctx context.Context, actor Actor, input PostInput) (post *db.Post, err error) {
	defer func() { metrics.ObserveWorkflow("create", outcome(err)) }()

	if actor.ID == 0 {
		return nil, ErrForbidden
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Status = strings.TrimSpace(input.Status)
	if input.Status == "" {
		input.Status = db.StatusDraft
	}
	if err := validatePost(input.Title, input.Status, input.Content); err != nil {
		return nil, err
	}

	format, raw, err := input.Content.Encode()
	if err != nil {
		return nil, err
	}
	excerpt, custom := excerptFor(input.Content, input.Excerpt)

	now := s.now()
	record := db.Post{
		Title:         input.Title,
		ContentFormat: format,
		Content:       raw,
		Excerpt:       excerpt,
		ExcerptCustom: custom,
		Status:        input.Status,
		ReviewStatus:  db.ReviewPending,
		AuthorID:      actor.ID,
	}
	if record.Status == db.StatusPublished {
		record.PublishedAt = &now
		if actor.Reviewer {
			approve(&record, actor, now)
		}
	}

	desired := slug.FromTitle(input.Slug, input.Title)
	err = s.writeWithSlugRetry(ctx, func(tx *gorm.DB) error {
		resolved, err := slug.Resolve(ctx, desired, 0, postSlugExists(tx))
		if err != nil {
			return err
		}
		record.ID = 0
		record.Slug = resolved

		if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
			return err
		}
		links := NewAssociator(tx)
		if err := links.ReplaceCategories(ctx, record.ID, input.CategoryIDs); err != nil {
			return err
		}
		return links.ReplaceTags(ctx, record.ID, input.TagIDs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "post created",
		slog.Uint64("post_id", uint64(record.ID)),
		slog.String("slug", record.Slug),
		slog.String("status", record.Status),
		slog.String("review_status", record.ReviewStatus),
	)
	return s.Get(ctx, record.ID)
}

// Update 修改文章。只有作者本人或审核员可以修改；slug 仅在变化时重新解析，
// publishedAt 只在首次进入 published 时写入。
func (s *PostService) Update(ctx context.Context, actor Actor, id uint, update PostUpdate) (post *db.Post, err error) {
	defer func() { metrics.ObserveWorkflow("update", outcome(err)) }()

	var record db.Post
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if !actor.CanModify(record.AuthorID) {
		return nil, ErrNotAuthor
	}

	current, err := content.Decode(record.ContentFormat, record.Content)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		record.Title = strings.TrimSpace(*update.Title)
	}
	if update.Status != nil {
		record.Status = strings.TrimSpace(*update.Status)
	}
	if update.Content != nil {
		current = *update.Content
	}
	if err := validatePost(record.Title, record.Status, current); err != nil {
		return nil, err
	}

	if update.Content != nil {
		format, raw, err := current.Encode()
		if err != nil {
			return nil, err
		}
		record.ContentFormat = format
		record.Content = raw
	}

	switch {
	case update.Excerpt != nil:
		record.Excerpt, record.ExcerptCustom = excerptFor(current, *update.Excerpt)
	case update.Content != nil && !record.ExcerptCustom:
		record.Excerpt = content.Excerpt(current, content.DefaultExcerptLength)
	}

	now := s.now()
	columns := map[string]any{
		"title":          record.Title,
		"status":         record.Status,
		"content_format": record.ContentFormat,
		"content":        record.Content,
		"excerpt":        record.Excerpt,
		"excerpt_custom": record.ExcerptCustom,
	}
	if record.Status == db.StatusPublished && record.PublishedAt == nil {
		// 只在首次发布时写入，已有值不覆盖
		columns["published_at"] = gorm.Expr("COALESCE(published_at, ?)", now)
	}
	selfApprove := actor.Reviewer && actor.ID == record.AuthorID &&
		record.Status == db.StatusPublished && record.ReviewStatus == db.ReviewPending

	desired := ""
	if update.Slug != nil {
		desired = slug.FromTitle(*update.Slug, record.Title)
		if desired == record.Slug {
			desired = ""
		}
	}

	err = s.writeWithSlugRetry(ctx, func(tx *gorm.DB) error {
		if desired != "" {
			resolved, err := slug.Resolve(ctx, desired, record.ID, postSlugExists(tx))
			if err != nil {
				return err
			}
			columns["slug"] = resolved
		}

		// 审核字段与浏览量不在作者可写范围内，避免覆盖并发的审核或计数
		result := tx.Model(&db.Post{}).Where("id = ?", record.ID).Updates(columns)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		if selfApprove {
			var reviewed db.Post
			approve(&reviewed, actor, now)
			if err := tx.Model(&db.Post{}).
				Where("id = ? AND review_status = ?", record.ID, db.ReviewPending).
				Updates(map[string]any{
					"review_status": reviewed.ReviewStatus,
					"reviewed_by":   reviewed.ReviewedBy,
					"reviewed_at":   reviewed.ReviewedAt,
				}).Error; err != nil {
				return err
			}
		}

		links := NewAssociator(tx)
		if update.CategoryIDs != nil {
			if err := links.ReplaceCategories(ctx, record.ID, *update.CategoryIDs); err != nil {
				return err
			}
		}
		if update.TagIDs != nil {
			if err := links.ReplaceTags(ctx, record.ID, *update.TagIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, record.ID)
}

// Delete removes a post and its links. Only the author or a reviewer may delete.
func (s *PostService) Delete(ctx context.Context, actor Actor, id uint) (err error) {
	defer func() { metrics.ObserveWorkflow("delete", outcome(err)) }()

	var record db.Post
	if err := s.db.WithContext(ctx).Select("id", "author_id").First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	if !actor.CanModify(record.AuthorID) {
		return ErrNotAuthor
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewAssociator(tx).clear(ctx, id); err != nil {
			return err
		}
		return tx.Delete(&db.Post{}, id).Error
	})
}

// Review 由审核员对待审核文章作出通过或驳回决定。通过与驳回均为终态。
func (s *PostService) Review(ctx context.Context, actor Actor, id uint, decision string) (post *db.Post, err error) {
	defer func() { metrics.ObserveWorkflow("review", outcome(err)) }()

	if !actor.Reviewer {
		return nil, ErrReviewerOnly
	}

	var target string
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case DecisionApprove, db.ReviewApproved:
		target = db.ReviewApproved
	case DecisionReject, db.ReviewRejected:
		target = db.ReviewRejected
	default:
		return nil, ErrInvalidDecision
	}

	var record db.Post
	if err := s.db.WithContext(ctx).Select("id", "review_status").First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if record.ReviewStatus != db.ReviewPending {
		return nil, ErrReviewNotPending
	}

	result := s.db.WithContext(ctx).Model(&db.Post{}).
		Where("id = ? AND review_status = ?", id, db.ReviewPending).
		Updates(map[string]any{
			"review_status": target,
			"reviewed_by":   actor.ID,
			"reviewed_at":   s.now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrReviewNotPending
	}

	s.logger.InfoContext(ctx, "post reviewed",
		slog.Uint64("post_id", uint64(id)),
		slog.Uint64("reviewer_id", uint64(actor.ID)),
		slog.String("decision", target),
	)
	return s.Get(ctx, id)
}

// RecordView 原子地将浏览数加一。
func (s *PostService) RecordView(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&db.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// CorrectViewCount is the reviewer-only administrative correction of the view counter.
func (s *PostService) CorrectViewCount(ctx context.Context, actor Actor, id uint, count int64) error {
	if !actor.Reviewer {
		return ErrReviewerOnly
	}
	if count < 0 {
		return ErrInvalidViewCount
	}

	result := s.db.WithContext(ctx).Model(&db.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", count)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// List provides paginated posts with aggregated counters based on filters.
func (s *PostService) List(ctx context.Context, filter PostFilter) (*PostListResult, error) {
	result := &PostListResult{Page: filter.Page, PerPage: filter.PerPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = 10
	}

	gdb := s.db.WithContext(ctx)

	if err := s.applyFilters(gdb.Model(&db.Post{}), filter, true).Count(&result.Total).Error; err != nil {
		return nil, err
	}

	orderBy := "posts.created_at desc, posts.id desc"
	if filter.Status == db.StatusPublished {
		orderBy = "posts.published_at desc, posts.id desc"
	}
	if filter.ReviewStatus == db.ReviewPending && filter.Status == "" {
		orderBy = "posts.created_at asc, posts.id asc"
	}

	var posts []db.Post
	offset := (result.Page - 1) * result.PerPage
	dataQuery := s.applyFilters(s.withTaxonomy(gdb.Model(&db.Post{})), filter, true)
	if err := dataQuery.Order(orderBy).Limit(result.PerPage).Offset(offset).Find(&posts).Error; err != nil {
		return nil, err
	}

	filterWithoutStatus := filter
	filterWithoutStatus.Status = ""
	counters := []struct {
		column string
		value  string
		dst    *int64
	}{
		{"posts.status", db.StatusPublished, &result.PublishedCount},
		{"posts.status", db.StatusDraft, &result.DraftCount},
		{"posts.status", db.StatusArchived, &result.ArchivedCount},
		{"posts.review_status", db.ReviewPending, &result.PendingCount},
	}
	for _, counter := range counters {
		query := s.applyFilters(gdb.Model(&db.Post{}), filterWithoutStatus, false)
		if err := query.Where(counter.column+" = ?", counter.value).Count(counter.dst).Error; err != nil {
			return nil, err
		}
	}

	if result.Total == 0 {
		result.TotalPages = 1
	} else {
		result.TotalPages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}

	result.Posts = posts
	return result, nil
}

// ListPublic lists posts visible on the public site: published and approved.
func (s *PostService) ListPublic(ctx context.Context, filter PostFilter) (*PostListResult, error) {
	filter.Status = db.StatusPublished
	filter.ReviewStatus = db.ReviewApproved
	return s.List(ctx, filter)
}

// ReviewQueue 返回待审核文章，按创建时间先后排列，仅审核员可见。
func (s *PostService) ReviewQueue(ctx context.Context, actor Actor, page, perPage int) (*PostListResult, error) {
	if !actor.Reviewer {
		return nil, ErrReviewerOnly
	}
	return s.List(ctx, PostFilter{ReviewStatus: db.ReviewPending, Page: page, PerPage: perPage})
}

func (s *PostService) applyFilters(query *gorm.DB, filter PostFilter, includeStatus bool) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("(posts.title LIKE ? OR posts.excerpt LIKE ? OR posts.content LIKE ?)", like, like, like)
	}

	if includeStatus && filter.Status != "" {
		query = query.Where("posts.status = ?", filter.Status)
	}

	if filter.ReviewStatus != "" {
		query = query.Where("posts.review_status = ?", filter.ReviewStatus)
	}

	if filter.AuthorID != 0 {
		query = query.Where("posts.author_id = ?", filter.AuthorID)
	}

	if filter.CategoryID != 0 || filter.CategorySlug != "" {
		sub := s.db.Model(&db.PostCategory{}).
			Select("post_categories.post_id").
			Joins("JOIN categories ON categories.id = post_categories.category_id")
		if filter.CategoryID != 0 {
			sub = sub.Where("categories.id = ?", filter.CategoryID)
		}
		if filter.CategorySlug != "" {
			sub = sub.Where("categories.slug = ?", filter.CategorySlug)
		}
		query = query.Where("posts.id IN (?)", sub)
	}

	if filter.TagID != 0 || filter.TagSlug != "" {
		sub := s.db.Model(&db.PostTag{}).
			Select("post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id")
		if filter.TagID != 0 {
			sub = sub.Where("tags.id = ?", filter.TagID)
		}
		if filter.TagSlug != "" {
			sub = sub.Where("tags.slug = ?", filter.TagSlug)
		}
		query = query.Where("posts.id IN (?)", sub)
	}

	return query
}

func (s *PostService) withTaxonomy(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Categories", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("categories.sort_order asc, categories.id asc")
		}).
		Preload("Tags", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("tags.sort_order asc, tags.id asc")
		})
}

// writeWithSlugRetry runs fn in a transaction and reruns it when the slug
// unique index rejects the write because a concurrent request won the race.
func (s *PostService) writeWithSlugRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		err := s.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return err
		}
		s.logger.WarnContext(ctx, "slug race lost, retrying", slog.Int("attempt", attempt), slog.Any("error", err))
	}
	return ErrSlugTaken
}

func postSlugExists(tx *gorm.DB) slug.ExistsFunc {
	return func(ctx context.Context, candidate string, excludeID uint) (bool, error) {
		query := tx.WithContext(ctx).Model(&db.Post{}).Where("slug = ?", candidate)
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

func validatePost(title, status string, body content.Content) error {
	fields := struct {
		Title   string
		Status  string
		Content content.Content
	}{title, status, body}

	err := validation.ValidateStruct(&fields,
		validation.Field(&fields.Title, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&fields.Status, validation.Required, validation.In(db.StatusDraft, db.StatusPublished, db.StatusArchived)),
		validation.Field(&fields.Content, validation.By(func(value any) error {
			c, _ := value.(content.Content)
			if c.IsZero() || c.IsEmpty() {
				return validation.NewError("validation_content_required", "cannot be blank")
			}
			return nil
		})),
	)
	return asValidationError(err)
}

// excerptFor returns the stored excerpt and whether the author supplied it.
func excerptFor(body content.Content, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return content.Excerpt(body, content.DefaultExcerptLength), false
	}
	return content.Truncate(strings.Join(strings.Fields(requested), " "), content.DefaultExcerptLength), true
}

func approve(post *db.Post, reviewer Actor, at time.Time) {
	id := reviewer.ID
	reviewedAt := at
	post.ReviewStatus = db.ReviewApproved
	post.ReviewedBy = &id
	post.ReviewedAt = &reviewedAt
}
