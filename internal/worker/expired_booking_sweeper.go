package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
)

const DefaultSweepInterval = 30 * time.Second

// BookingExpirer は支払い期限を過ぎた未払い予約を解放する
type BookingExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpiredBookingSweeper は期限切れ予約を定期的に解放するワーカー
// 期限の判定はリクエスト処理時にも行われるため、このワーカーは座席を早めに空けるためのもの
type ExpiredBookingSweeper struct {
	expirer  BookingExpirer
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewExpiredBookingSweeper は新しいスイーパーを作成
// interval が0以下の場合は DefaultSweepInterval を使う
func NewExpiredBookingSweeper(e BookingExpirer, interval time.Duration) *ExpiredBookingSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ExpiredBookingSweeper{
		expirer:  e,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はスイーパーを開始する。ctx のキャンセルか Stop まで戻らない
func (s *ExpiredBookingSweeper) Start(ctx context.Context) {
	logger.Info("期限切れ予約スイーパー開始", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ予約スイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("期限切れ予約スイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止し、実行中の掃除が終わるまで待つ
func (s *ExpiredBookingSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *ExpiredBookingSweeper) sweep(ctx context.Context) {
	log := logger.Get()

	count, err := s.expirer.ExpireStale(ctx)
	if err != nil {
		// 途中まで解放できた分は count に含まれる
		log.Error("期限切れ予約の解放に失敗", zap.Int("expired", count), zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ予約を解放", zap.Int("count", count))
	} else {
		log.Debug("期限切れ予約なし")
	}
}
