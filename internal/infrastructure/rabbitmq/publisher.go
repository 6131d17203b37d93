package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
)

// Publisher は予約確定通知を RabbitMQ のキューに送信する
// 接続は初回送信時に張り、切断されていれば次の送信で張り直す
type Publisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher は Publisher を作成する
func NewPublisher(cfg config.RabbitMQConfig) *Publisher {
	return &Publisher{url: cfg.URL, queue: cfg.Queue}
}

// NotifyBookingConfirmed はイベントを永続メッセージとして送信する
func (p *Publisher) NotifyBookingConfirmed(ctx context.Context, ev booking.ConfirmedEvent) error {
	msg, err := newPublishing(ev, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	// デフォルトエクスチェンジ経由でキュー名をルーティングキーにする
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("通知の送信に失敗: %w", err)
	}
	logger.Debug("予約確定通知を送信しました", logger.CheckoutID(ev.CheckoutID), zap.String("queue", p.queue))
	return nil
}

// channel は有効なチャネルを返す（mu を保持して呼ぶ）
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("チャネル作成に失敗: %w", err)
	}
	if err := declareQueue(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close は接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// declareQueue はブローカー再起動後もメッセージが残るよう durable で宣言する（冪等）
func declareQueue(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("キュー宣言に失敗: %w", err)
	}
	return nil
}

func newPublishing(ev booking.ConfirmedEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("通知のエンコードに失敗: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.CheckoutID,
		Timestamp:    now.UTC(),
		Type:         "booking.confirmed",
		Body:         body,
	}, nil
}
