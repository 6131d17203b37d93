package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/checkout"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
	"github.com/sanosuguru/book-my-seat/internal/pkg/clock"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
	"github.com/sanosuguru/book-my-seat/internal/pkg/metrics"
)

const defaultSweepBatch = 100

// BookingLedger は予約レコードの作成・期限切れ処理・支払い確定を行う
// is_booked を書き込むのはこの型だけ
type BookingLedger struct {
	txManager    transaction.Manager
	bookingRepo  booking.Repository
	seatRepo     seat.Repository
	checkoutRepo checkout.Repository
	hold         time.Duration
	clock        clock.Clock
	metrics      *metrics.Metrics
	sweepBatch   int
}

// NewBookingLedger は BookingLedger を作成する
// hold には ReservationManager と同じ値を渡すこと
func NewBookingLedger(tm transaction.Manager, br booking.Repository, sr seat.Repository, cr checkout.Repository, hold time.Duration, c clock.Clock) *BookingLedger {
	if hold <= 0 {
		hold = booking.DefaultHoldDuration
	}
	if c == nil {
		c = clock.Real()
	}
	return &BookingLedger{
		txManager:    tm,
		bookingRepo:  br,
		seatRepo:     sr,
		checkoutRepo: cr,
		hold:         hold,
		clock:        c,
		sweepBatch:   defaultSweepBatch,
	}
}

// SetMetrics はメトリクスの記録先を設定する
func (l *BookingLedger) SetMetrics(m *metrics.Metrics) {
	l.metrics = m
}

// SetSweepBatch は1トランザクションで処理する期限切れ予約の件数を設定する
func (l *BookingLedger) SetSweepBatch(n int) {
	if n > 0 {
		l.sweepBatch = n
	}
}

// CreatePendingInput は支払い待ち予約の作成パラメータ
type CreatePendingInput struct {
	CheckoutID string
	UserID     string
	SeatID     string
	TheaterID  string
	MovieID    string
	Amount     int64
	Currency   string
	// BookedAt は仮押さえの開始時刻。ゼロ値なら現在時刻を使う
	BookedAt   time.Time
}

// CreatePending は支払い待ちの予約を作成する
// 座席がこのユーザーに仮押さえされていなければ ErrSeatNotHeld を返す
func (l *BookingLedger) CreatePending(ctx context.Context, tx transaction.Tx, in CreatePendingInput) (*booking.Booking, error) {
	now := in.BookedAt
	if now.IsZero() {
		now = l.clock.Now()
	}
	s, err := l.seatRepo.GetByID(ctx, tx, in.SeatID)
	if err != nil {
		return nil, err
	}
	if !s.IsHeldBy(in.UserID, now) {
		return nil, booking.ErrSeatNotHeld
	}

	b := booking.NewPendingBooking(in.CheckoutID, in.UserID, in.SeatID, in.TheaterID, in.MovieID, in.Amount, in.Currency, now)
	b.SeatNumber = s.SeatNumber
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := l.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// IsExpired は予約が支払い期限を過ぎているかを返す（副作用なし）
func (l *BookingLedger) IsExpired(b *booking.Booking) bool {
	return b.IsExpiredAt(l.clock.Now(), l.hold)
}

// SweepResult は期限切れ処理の結果
type SweepResult struct {
	Expired    int
	TheaterIDs []string
}

// ExpireStale は期限切れの支払い待ち予約を解放し、件数を返す
func (l *BookingLedger) ExpireStale(ctx context.Context) (int, error) {
	res, err := l.Sweep(ctx)
	return res.Expired, err
}

// Sweep は期限切れの支払い待ち予約をバッチ単位で解放する
// 各バッチは独立したトランザクションで、途中で失敗してもそれまでの解放は確定済み
func (l *BookingLedger) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	seen := make(map[string]struct{})

	for {
		var batch []*booking.Booking
		err := transaction.Run(ctx, l.txManager, func(tx transaction.Tx) error {
			stale, err := l.bookingRepo.GetExpiredPending(ctx, tx, l.clock.Now().Add(-l.hold), l.sweepBatch)
			if err != nil {
				return fmt.Errorf("期限切れ予約の取得に失敗: %w", err)
			}
			if _, err := l.expire(ctx, tx, stale); err != nil {
				return err
			}
			batch = stale
			return nil
		})
		if err != nil {
			return res, err
		}

		res.Expired += len(batch)
		for _, b := range batch {
			if _, ok := seen[b.TheaterID]; !ok {
				seen[b.TheaterID] = struct{}{}
				res.TheaterIDs = append(res.TheaterIDs, b.TheaterID)
			}
		}
		if len(batch) < l.sweepBatch {
			break
		}
	}

	if res.Expired > 0 {
		l.metrics.RecordExpiredBookings(res.Expired)
		logger.Info("期限切れ予約を解放しました", zap.Int("count", res.Expired))
	}
	return res, nil
}

// expire は予約の仮押さえを（予約者のものである場合のみ）解除して削除し、
// 属するチェックアウトを期限切れにする
func (l *BookingLedger) expire(ctx context.Context, tx transaction.Tx, bookings []*booking.Booking) (int, error) {
	if len(bookings) == 0 {
		return 0, nil
	}
	if err := l.releaseHolds(ctx, tx, bookings); err != nil {
		return 0, err
	}
	n, err := l.bookingRepo.Delete(ctx, tx, booking.IDs(bookings))
	if err != nil {
		return 0, fmt.Errorf("期限切れ予約の削除に失敗: %w", err)
	}
	if err := l.closeCheckouts(ctx, tx, bookings, checkout.StateExpired); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *BookingLedger) releaseHolds(ctx context.Context, tx transaction.Tx, bookings []*booking.Booking) error {
	now := l.clock.Now()
	for _, b := range bookings {
		if _, err := l.seatRepo.ReleaseIfHeldBy(ctx, tx, b.SeatID, b.UserID, now); err != nil {
			return fmt.Errorf("仮押さえ解除に失敗 (seat=%s): %w", b.SeatID, err)
		}
	}
	return nil
}

func (l *BookingLedger) closeCheckouts(ctx context.Context, tx transaction.Tx, bookings []*booking.Booking, to checkout.State) error {
	done := make(map[string]struct{})
	now := l.clock.Now()
	for _, b := range bookings {
		if b.CheckoutID == "" {
			continue
		}
		if _, ok := done[b.CheckoutID]; ok {
			continue
		}
		done[b.CheckoutID] = struct{}{}

		err := l.checkoutRepo.UpdateState(ctx, tx, b.CheckoutID, checkout.StatePendingPayment, to, nil, now)
		// 既に他の経路で終了しているチェックアウトはそのままでよい
		if err != nil && !errors.Is(err, checkout.ErrStateConflict) && !errors.Is(err, checkout.ErrCheckoutNotFound) {
			return fmt.Errorf("チェックアウト状態の更新に失敗: %w", err)
		}
	}
	return nil
}

// FinalizePaid は予約一覧をまとめて支払い済みにし、座席を購入済みにする
// 1件でも期限切れなら期限切れの座席を列挙した checkout.Error（ErrBookingExpired）を返し、何も書き込まない
// tx が nil の場合は自身でトランザクションを開始する
func (l *BookingLedger) FinalizePaid(ctx context.Context, tx transaction.Tx, bookings []*booking.Booking, paymentID, paymentMethod string) error {
	if len(bookings) == 0 {
		return booking.ErrBookingNotFound
	}
	now := l.clock.Now()

	var expired []checkout.SeatFailure
	for _, b := range bookings {
		if !b.IsPending() {
			return fmt.Errorf("予約 %s: %w", b.ID, booking.ErrBookingNotPending)
		}
		if b.IsExpiredAt(now, l.hold) {
			expired = append(expired, checkout.NewSeatFailure(b.SeatID, b.SeatNumber, booking.ErrBookingExpired))
		}
	}
	if len(expired) > 0 {
		return checkout.NewError("支払い確定", booking.ErrBookingExpired, expired)
	}

	err := l.within(ctx, tx, func(tx transaction.Tx) error {
		if err := l.bookingRepo.MarkPaid(ctx, tx, booking.IDs(bookings), paymentID, paymentMethod, now); err != nil {
			return fmt.Errorf("予約の支払い確定に失敗: %w", err)
		}
		for holder, seatIDs := range seatIDsByUser(bookings) {
			if err := l.seatRepo.MarkBooked(ctx, tx, seatIDs, holder, now); err != nil {
				return fmt.Errorf("座席の購入確定に失敗: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, b := range bookings {
		_ = b.MarkPaid(paymentID, paymentMethod, now)
	}
	return nil
}

// Cancel は支払い待ちの予約を削除し、予約者の仮押さえを解除する
// 支払い済みの予約が含まれる場合は何もせず ErrBookingNotPending を返す
func (l *BookingLedger) Cancel(ctx context.Context, tx transaction.Tx, bookings []*booking.Booking) (int, error) {
	for _, b := range bookings {
		if !b.IsPending() {
			return 0, fmt.Errorf("予約 %s: %w", b.ID, booking.ErrBookingNotPending)
		}
	}
	var n int
	err := l.within(ctx, tx, func(tx transaction.Tx) error {
		if err := l.releaseHolds(ctx, tx, bookings); err != nil {
			return err
		}
		deleted, err := l.bookingRepo.Delete(ctx, tx, booking.IDs(bookings))
		if err != nil {
			return fmt.Errorf("予約の削除に失敗: %w", err)
		}
		n = deleted
		return nil
	})
	return n, err
}

// ExpireCheckout はチェックアウトの予約を期限切れとして解放する
func (l *BookingLedger) ExpireCheckout(ctx context.Context, tx transaction.Tx, bookings []*booking.Booking) (int, error) {
	var n int
	err := l.within(ctx, tx, func(tx transaction.Tx) error {
		deleted, err := l.expire(ctx, tx, bookings)
		n = deleted
		return err
	})
	if err == nil {
		l.metrics.RecordExpiredBookings(n)
	}
	return n, err
}

func (l *BookingLedger) within(ctx context.Context, tx transaction.Tx, fn func(tx transaction.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	return transaction.Run(ctx, l.txManager, fn)
}

func seatIDsByUser(bookings []*booking.Booking) map[string][]string {
	out := make(map[string][]string)
	for _, b := range bookings {
		out[b.UserID] = append(out[b.UserID], b.SeatID)
	}
	return out
}
