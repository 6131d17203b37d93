package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/infrastructure/rabbitmq"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
)

var errRabbitMQNotConfigured = errors.New("RABBITMQ_URL が設定されていません")

func newConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume-notifications",
		Short: "予約確定通知を購読して標準出力に書き出す",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			defer func() { _ = logger.Sync() }()
			if cfg.RabbitMQ.URL == "" {
				return errRabbitMQNotConfigured
			}

			logger.Info("予約確定通知の購読を開始します", zap.String("queue", cfg.RabbitMQ.Queue))
			err := rabbitmq.NewConsumer(cfg.RabbitMQ, rabbitmq.LineHandler(cmd.OutOrStdout())).Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
