package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ahkjxy/vblog/internal/db"
)

func TestTagServiceCreateAssignsNextSortOrder(t *testing.T) {
	gdb := setupPostServiceTestDB(t)

	if err := gdb.Create(&db.Tag{Name: "已有标签", Slug: "existing", SortOrder: 5}).Error; err != nil {
		t.Fatalf("failed to seed tag: %v", err)
	}

	svc := NewTagService(gdb)
	tag, err := svc.Create(context.Background(), TagInput{Name: "Road Trips"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}

	if tag.SortOrder != 6 {
		t.Fatalf("expected sort_order=6, got %d", tag.SortOrder)
	}
	if tag.Slug != "road-trips" {
		t.Fatalf("expected slug road-trips, got %q", tag.Slug)
	}
}

func TestTagServiceCreateRejectsDuplicatesAndBlank(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewTagService(gdb)
	ctx := context.Background()

	if _, err := svc.Create(ctx, TagInput{Name: "kids"}); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if _, err := svc.Create(ctx, TagInput{Name: " kids "}); !errors.Is(err, ErrTagExists) {
		t.Fatalf("expected ErrTagExists, got %v", err)
	}
	if _, err := svc.Create(ctx, TagInput{Name: "  "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	other, err := svc.Create(ctx, TagInput{Name: "Kids!", Slug: "kids"})
	if err != nil {
		t.Fatalf("create tag with taken slug: %v", err)
	}
	if other.Slug != "kids-1" {
		t.Fatalf("expected suffixed slug, got %q", other.Slug)
	}
}

func TestTagServiceListOrdersBySortOrder(t *testing.T) {
	gdb := setupPostServiceTestDB(t)

	tags := []db.Tag{
		{Name: "Zed", Slug: "zed", SortOrder: 0},
		{Name: "Alpha", Slug: "alpha", SortOrder: 2},
		{Name: "Beta", Slug: "beta", SortOrder: 1},
	}
	if err := gdb.Create(&tags).Error; err != nil {
		t.Fatalf("failed to seed tags: %v", err)
	}
	if err := gdb.Create(&db.PostTag{PostID: 1, TagID: tags[1].ID}).Error; err != nil {
		t.Fatalf("failed to seed link: %v", err)
	}

	svc := NewTagService(gdb)
	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}

	if len(list) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(list))
	}

	if list[0].Name != "Zed" || list[1].Name != "Beta" || list[2].Name != "Alpha" {
		t.Fatalf("unexpected order: %+v", []string{list[0].Name, list[1].Name, list[2].Name})
	}
	if list[2].PostCount != 1 || list[0].PostCount != 0 {
		t.Fatalf("unexpected post counts: %d %d", list[2].PostCount, list[0].PostCount)
	}
}

func TestTagServiceUpdateAndDelete(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewTagService(gdb)
	ctx := context.Background()

	first, err := svc.Create(ctx, TagInput{Name: "food"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(ctx, TagInput{Name: "pets"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(ctx, second.ID, TagInput{Name: "food"}); !errors.Is(err, ErrTagExists) {
		t.Fatalf("expected ErrTagExists, got %v", err)
	}
	if _, err := svc.Update(ctx, 9999, TagInput{Name: "x"}); !errors.Is(err, ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}

	renamed, err := svc.Update(ctx, second.ID, TagInput{Name: "Animals"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Animals" || renamed.Slug != "pets" {
		t.Fatalf("rename must keep slug unless given, got %q/%q", renamed.Name, renamed.Slug)
	}

	if err := gdb.Create(&db.PostTag{PostID: 7, TagID: first.ID}).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}
	if err := svc.Delete(ctx, first.ID); !errors.Is(err, ErrTagInUse) {
		t.Fatalf("expected ErrTagInUse, got %v", err)
	}
	if err := svc.Delete(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, second.ID); !errors.Is(err, ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}
}

func TestTagServiceReorder(t *testing.T) {
	gdb := setupPostServiceTestDB(t)
	svc := NewTagService(gdb)
	ctx := context.Background()

	a, _ := svc.Create(ctx, TagInput{Name: "a"})
	b, _ := svc.Create(ctx, TagInput{Name: "b"})

	if err := svc.Reorder(ctx, []uint{b.ID, a.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("unexpected order after reorder: %d, %d", list[0].ID, list[1].ID)
	}

	if err := svc.Reorder(ctx, []uint{a.ID, a.ID}); !errors.Is(err, ErrTagOrder) {
		t.Fatalf("expected ErrTagOrder, got %v", err)
	}
	if err := svc.Reorder(ctx, []uint{a.ID, 9999}); !errors.Is(err, ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}
}
