package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
)

const (
	defaultPrefetch = 50
	minBackoff      = time.Second
	maxBackoff      = 30 * time.Second
)

// Handler は受信した予約確定通知を処理する
type Handler func(ctx context.Context, ev booking.ConfirmedEvent) error

// Consumer は予約確定キューを購読する
// 接続が切れた場合は指数バックオフで再接続する
type Consumer struct {
	url      string
	queue    string
	handler  Handler
	prefetch int
}

// NewConsumer は Consumer を作成する
func NewConsumer(cfg config.RabbitMQConfig, handler Handler) *Consumer {
	return &Consumer{url: cfg.URL, queue: cfg.Queue, handler: handler, prefetch: defaultPrefetch}
}

// Run は ctx がキャンセルされるまで購読を続ける
func (c *Consumer) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			logger.Warn("RabbitMQ接続に失敗しました。再試行します", zap.Error(err), zap.Duration("backoff", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("購読が終了しました。再接続します", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("チャネル作成に失敗: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		logger.Warn("QoS設定に失敗しました", zap.Error(err))
	}
	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}

	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("購読開始に失敗: %w", err)
	}
	logger.Info("予約確定通知の購読を開始しました", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("配信チャネルが閉じられました")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				logger.Error("通知の処理に失敗しました", zap.Error(err))
				// 再キューすると同じメッセージで詰まるため破棄する
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev booking.ConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("通知のデコードに失敗: %w", err)
	}
	return c.handler(ctx, ev)
}

// LineHandler は通知を1行形式で w に書き出す Handler を返す
func LineHandler(w io.Writer) Handler {
	return func(_ context.Context, ev booking.ConfirmedEvent) error {
		_, err := io.WriteString(w, FormatLine(ev))
		return err
	}
}

// FormatLine は通知を人が読める1行にする
func FormatLine(ev booking.ConfirmedEvent) string {
	return fmt.Sprintf("[%s] 予約確定 | checkout_id=%s | user_id=%s | theater=%q | movie=%q | starts_at=%s | amount=%d %s | payment_id=%s | seats=[%s]\n",
		ev.PaidAt.UTC().Format(time.RFC3339), ev.CheckoutID, ev.UserID, ev.TheaterName, ev.MovieTitle,
		ev.StartsAt.UTC().Format(time.RFC3339), ev.Amount, ev.Currency, ev.PaymentID, strings.Join(ev.SeatNumbers, ","))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}
