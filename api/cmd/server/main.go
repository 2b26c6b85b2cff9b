package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"areca-grader/api/internal/config"
	"areca-grader/api/internal/container"
	"areca-grader/api/internal/httpserver"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/metrics"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}
	defer c.Close()

	srv := httpserver.New(":"+cfg.Port, c.Handler(), cfg.RequestTimeout)
	if err := httpserver.Run(ctx, srv); err != nil {
		logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
