package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options 描述数据库连接参数。
type Options struct {
	// Driver 为 sqlite 或 postgres，空值回退到 sqlite。
	Driver string
	// Path 为 sqlite 文件路径，空值回退到 vblog.db。
	Path string
	// DSN 为 postgres 连接串。
	DSN      string
	LogLevel logger.LogLevel
}

// Init 打开数据库连接并执行自动迁移。
func Init(opts Options) (*gorm.DB, error) {
	gdb, err := Open(opts)
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	return gdb, nil
}

// Open returns a gorm handle for the configured driver. Duplicate-key errors
// are translated to gorm.ErrDuplicatedKey.
func Open(opts Options) (*gorm.DB, error) {
	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite", "sqlite3":
		path := strings.TrimSpace(opts.Path)
		if path == "" {
			path = "vblog.db"
		}
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
		return gorm.Open(sqlite.Open(path), cfg)
	case "postgres", "postgresql":
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, errors.New("postgres driver requires DATABASE_DSN")
		}
		return gorm.Open(postgres.Open(opts.DSN), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// Migrate 注册自定义关联表并为核心模型建表。
func Migrate(gdb *gorm.DB) error {
	joins := []struct {
		model any
		field string
		join  any
	}{
		{&Post{}, "Categories", &PostCategory{}},
		{&Category{}, "Posts", &PostCategory{}},
		{&Post{}, "Tags", &PostTag{}},
		{&Tag{}, "Posts", &PostTag{}},
	}
	for _, j := range joins {
		if err := gdb.SetupJoinTable(j.model, j.field, j.join); err != nil {
			return fmt.Errorf("setup join table %s: %w", j.field, err)
		}
	}

	return gdb.AutoMigrate(
		&User{},
		&Category{},
		&Tag{},
		&Post{},
		&PostCategory{},
		&PostTag{},
	)
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
