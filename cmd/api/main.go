package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/api/server"
	"github.com/sanosuguru/book-my-seat/internal/bootstrap"
	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
	"github.com/sanosuguru/book-my-seat/internal/pkg/metrics"
	"github.com/sanosuguru/book-my-seat/internal/worker"
)

func main() {
	cfg := config.Load()

	logger.Set(logger.NewLogger(cfg.Env))
	defer func() { _ = logger.Sync() }()

	m := metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, m)
	if err != nil {
		logger.Fatal("初期化に失敗しました", zap.Error(err))
	}

	e := server.New(app, m)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	// 期限切れ予約の定期解放
	sweeper := worker.NewExpiredBookingSweeper(app.Checkout, cfg.Worker.SweepInterval)
	go sweeper.Start(ctx)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("サーバーを起動します",
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.String("storage", cfg.Storage.Driver),
			zap.Bool("redis", cfg.Redis.Enabled),
			zap.Bool("jwt", cfg.Auth.JWTSecret != ""),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("サーバー起動エラー", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("サーバーをシャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
	}
	sweeper.Stop()
	app.Close()

	logger.Info("サーバーが正常にシャットダウンしました")
}
