package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanosuguru/book-my-seat/internal/bootstrap"
	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "bookctl",
		Short:        "座席予約システムの運用コマンド",
		Long:         `期限切れ予約の解放、マイグレーション、デモデータ投入、座席表の表示、予約確定通知の購読を行います。設定は API サーバーと同じ環境変数（.env）から読み込みます。`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newSweepCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newSeatsCmd(),
		newConsumeCmd(),
	)
	return root
}

// loadConfig は設定を読み込み、CLI 向けのロガーを設定する
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	return cfg
}

// withApp は API サーバーと同じ構成で依存関係を組み立てて fn を実行する
func withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	cfg := loadConfig()
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.Build(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("初期化に失敗しました: %w", err)
	}
	defer app.Close()
	return fn(app)
}
