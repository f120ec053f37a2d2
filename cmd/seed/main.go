package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"github.com/ahkjxy/vblog/internal/config"
	"github.com/ahkjxy/vblog/internal/content"
	"github.com/ahkjxy/vblog/internal/db"
	"github.com/ahkjxy/vblog/internal/logging"
	"github.com/ahkjxy/vblog/internal/service"
)

// 演示数据生成器：创建家庭成员账号、分类、标签与几篇文章，全部走正常的发布流程。
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	gdb, err := db.Init(db.Options{Driver: cfg.DatabaseDriver, Path: cfg.DatabasePath, DSN: cfg.DatabaseDSN})
	if err != nil {
		logger.Error("数据库初始化失败", slog.Any("error", err))
		os.Exit(1)
	}

	if err := seed(context.Background(), gdb, logger); err != nil {
		logger.Error("生成演示数据失败", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("演示数据生成完成", slog.String("reviewer", "parent"), slog.String("author", "kid"))
}

type demoPost struct {
	author     string
	title      string
	body       content.Content
	status     string
	categories []string
	tags       []string
	review     string
}

func seed(ctx context.Context, gdb *gorm.DB, logger *slog.Logger) error {
	var count int64
	if err := gdb.Model(&db.Post{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("文章已存在，跳过生成")
		return nil
	}

	// 创建家庭成员
	members := []struct {
		username, password, displayName string
		reviewer                        bool
	}{
		{"parent", "parent123", "Mum", true},
		{"kid", "kid123", "Lily", false},
	}
	users := service.NewUserService(gdb)
	actors := map[string]service.Actor{}
	for _, member := range members {
		if err := db.EnsureUser(gdb, member.username, member.password, member.reviewer); err != nil {
			return err
		}
		var user db.User
		if err := gdb.Where("username = ?", member.username).First(&user).Error; err != nil {
			return err
		}
		if user.DisplayName == "" {
			if err := gdb.Model(&user).Update("display_name", member.displayName).Error; err != nil {
				return err
			}
		}
		actor, err := users.Actor(ctx, user.ID)
		if err != nil {
			return err
		}
		actors[member.username] = actor
	}

	// 创建分类与标签
	categoryIDs := map[string]uint{}
	categories := service.NewCategoryService(gdb)
	for _, name := range []string{"Travel", "Recipes", "School"} {
		category, err := categories.Create(ctx, service.CategoryInput{Name: name})
		switch {
		case errors.Is(err, service.ErrCategoryExists):
			var existing db.Category
			if err := gdb.Where("name = ?", name).First(&existing).Error; err != nil {
				return err
			}
			categoryIDs[name] = existing.ID
		case err != nil:
			return err
		default:
			categoryIDs[name] = category.ID
		}
	}

	tagIDs := map[string]uint{}
	tags := service.NewTagService(gdb)
	for _, name := range []string{"summer", "weekend", "homework", "grandma"} {
		tag, err := tags.Create(ctx, service.TagInput{Name: name})
		switch {
		case errors.Is(err, service.ErrTagExists):
			var existing db.Tag
			if err := gdb.Where("name = ?", name).First(&existing).Error; err != nil {
				return err
			}
			tagIDs[name] = existing.ID
		case err != nil:
			return err
		default:
			tagIDs[name] = tag.ID
		}
	}

	posts := service.NewPostService(gdb, service.WithLogger(logger))
	for _, item := range demoPosts() {
		input := service.PostInput{
			Title:   item.title,
			Content: item.body,
			Status:  item.status,
		}
		for _, name := range item.categories {
			input.CategoryIDs = append(input.CategoryIDs, categoryIDs[name])
		}
		for _, name := range item.tags {
			input.TagIDs = append(input.TagIDs, tagIDs[name])
		}

		post, err := posts.Create(ctx, actors[item.author], input)
		if err != nil {
			return err
		}
		if item.review != "" {
			if _, err := posts.Review(ctx, actors["parent"], post.ID, item.review); err != nil {
				return err
			}
		}
	}
	return nil
}

func demoPosts() []demoPost {
	return []demoPost{
		{
			author:     "parent",
			title:      "Summer at the Lake",
			body:       content.Markdown("We spent a week by the lake.\n\n- swimming\n- **fishing** with grandpa\n- campfire songs"),
			status:     db.StatusPublished,
			categories: []string{"Travel"},
			tags:       []string{"summer", "weekend"},
		},
		{
			author:     "parent",
			title:      "Grandma's Dumplings",
			body:       content.Markdown("## Ingredients\n\nFlour, water, pork and cabbage.\n\n```text\nfold, pinch, repeat\n```"),
			status:     db.StatusPublished,
			categories: []string{"Recipes"},
			tags:       []string{"grandma"},
		},
		{
			author: "kid",
			title:  "My Science Project",
			body: content.Tree(&content.Node{Type: content.KindDoc, Content: []content.Node{
				{Type: content.KindHeading, Attrs: map[string]any{"level": 2}, Content: []content.Node{{Type: content.KindText, Text: "Volcano"}}},
				{Type: content.KindParagraph, Content: []content.Node{
					{Type: content.KindText, Text: "Baking soda and "},
					{Type: content.KindText, Text: "vinegar", Marks: []content.Mark{{Type: content.MarkBold}}},
					{Type: content.KindText, Text: " make it erupt."},
				}},
			}}),
			status:     db.StatusPublished,
			categories: []string{"School"},
			tags:       []string{"homework"},
			review:     service.DecisionApprove,
		},
		{
			author: "kid",
			title:  "Secret Diary",
			body:   content.Markdown("Not ready yet."),
			status: db.StatusDraft,
		},
	}
}
