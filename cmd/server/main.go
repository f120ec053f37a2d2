package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ahkjxy/vblog/internal/cache"
	"github.com/ahkjxy/vblog/internal/config"
	"github.com/ahkjxy/vblog/internal/db"
	"github.com/ahkjxy/vblog/internal/handler"
	"github.com/ahkjxy/vblog/internal/logging"
	"github.com/ahkjxy/vblog/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	gin.SetMode(cfg.GinMode)
	if cfg.UsesDefaultSecret() && cfg.GinMode != gin.DebugMode {
		logger.Warn("SESSION_SECRET is not set, sessions are signed with the development secret")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	gdb, err := db.Init(db.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseDSN,
	})
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := db.EnsureUser(gdb, cfg.SuperRootUserName, cfg.SuperRootPassword, true); err != nil {
		return err
	}

	renderCache := cache.Connect(ctx, cfg.RedisAddr, logger)
	defer renderCache.Close()

	api := handler.NewAPI(gdb, handler.Options{
		Cache:          renderCache,
		RenderCacheTTL: cfg.RenderCacheTTL,
		HighlightStyle: cfg.HighlightStyle,
		Logger:         logger,
	})
	r := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.ListenAddr), slog.String("driver", cfg.DatabaseDriver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
