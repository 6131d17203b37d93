package application

import (
	"context"
	"time"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
)

// SeatLocker は座席集合に対するプロセス間ロックを提供する
// 取得できない場合は redisinfra.ErrLockNotAcquired を返す
type SeatLocker interface {
	LockSeats(ctx context.Context, theaterID string, seatIDs []string) (release func(context.Context), err error)
}

// AvailabilityCache は上映回ごとの空席数キャッシュ
// キャッシュにない場合は redisinfra.ErrCacheMiss を返す
type AvailabilityCache interface {
	GetAvailableCount(ctx context.Context, theaterID string) (int, error)
	SetAvailableCount(ctx context.Context, theaterID string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, theaterID string) error
}

// Notifier は予約確定通知の送信先
// 送信失敗は呼び出し側でログに残すだけで、予約状態には影響しない
type Notifier interface {
	NotifyBookingConfirmed(ctx context.Context, ev booking.ConfirmedEvent) error
}
