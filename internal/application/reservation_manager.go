package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
	"github.com/sanosuguru/book-my-seat/internal/pkg/clock"
)

// ReservationManager は座席の一時的な仮押さえを管理する
// 仮押さえ列への書き込みはこの型を経由する
type ReservationManager struct {
	seatRepo seat.Repository
	hold     time.Duration
	clock    clock.Clock
}

// NewReservationManager は ReservationManager を作成する
// hold が0以下の場合はデフォルトの5分を使う
func NewReservationManager(sr seat.Repository, hold time.Duration, c clock.Clock) *ReservationManager {
	if hold <= 0 {
		hold = booking.DefaultHoldDuration
	}
	if c == nil {
		c = clock.Real()
	}
	return &ReservationManager{seatRepo: sr, hold: hold, clock: c}
}

// HoldDuration は仮押さえの有効期間を返す
func (m *ReservationManager) HoldDuration() time.Duration {
	return m.hold
}

// IsAvailable は座席が仮押さえ可能かを返す
// 期限切れの仮押さえが残っていれば、判定の前に解除する
func (m *ReservationManager) IsAvailable(ctx context.Context, tx transaction.Tx, seatID string) (bool, error) {
	s, err := m.seatRepo.GetByID(ctx, tx, seatID)
	if err != nil {
		return false, err
	}
	now := m.clock.Now()
	if err := m.clearIfExpired(ctx, tx, s, now); err != nil {
		return false, err
	}
	return s.IsAvailableAt(now), nil
}

func (m *ReservationManager) clearIfExpired(ctx context.Context, tx transaction.Tx, s *seat.Seat, now time.Time) error {
	if !s.HoldExpiredAt(now) {
		return nil
	}
	if _, err := m.seatRepo.ClearExpiredHold(ctx, tx, s.ID, now); err != nil {
		return fmt.Errorf("期限切れ仮押さえの解除に失敗: %w", err)
	}
	s.Release(now)
	return nil
}

// Reserve は座席を holder で duration の間仮押さえする
// duration が0以下の場合は設定された有効期間を使う
// 失敗時は ErrSeatAlreadyBooked / ErrSeatAlreadyReserved / ErrReservationConflict のいずれかを返す
func (m *ReservationManager) Reserve(ctx context.Context, tx transaction.Tx, seatID, holder string, duration time.Duration) error {
	return m.ReserveAt(ctx, tx, seatID, holder, m.clock.Now(), duration)
}

// ReserveAt は now を仮押さえの開始時刻として Reserve を行う
// 同じ時刻で支払い待ち予約を作れば、仮押さえと予約の期限が一致する
func (m *ReservationManager) ReserveAt(ctx context.Context, tx transaction.Tx, seatID, holder string, now time.Time, duration time.Duration) error {
	if holder == "" {
		return seat.ErrHolderRequired
	}
	if duration <= 0 {
		duration = m.hold
	}

	ok, err := m.seatRepo.TryReserve(ctx, tx, seatID, holder, now, now.Add(duration))
	if err != nil {
		return fmt.Errorf("座席仮押さえに失敗: %w", err)
	}
	if ok {
		return nil
	}

	// 条件付き更新が0件だった理由を特定する
	s, err := m.seatRepo.GetByID(ctx, tx, seatID)
	if err != nil {
		return err
	}
	switch {
	case s.IsBooked:
		return seat.ErrSeatAlreadyBooked
	case s.HasActiveHold(now):
		return seat.ErrSeatAlreadyReserved
	default:
		return seat.ErrReservationConflict
	}
}

// Release は仮押さえを無条件に解除する
func (m *ReservationManager) Release(ctx context.Context, tx transaction.Tx, seatID string) error {
	if err := m.seatRepo.Release(ctx, tx, seatID, m.clock.Now()); err != nil {
		return fmt.Errorf("仮押さえ解除に失敗: %w", err)
	}
	return nil
}

// IsHeldBy は holder が座席の有効な仮押さえを持っているかを返す
func (m *ReservationManager) IsHeldBy(ctx context.Context, tx transaction.Tx, seatID, holder string) (bool, error) {
	s, err := m.seatRepo.GetByID(ctx, tx, seatID)
	if err != nil {
		return false, err
	}
	return s.IsHeldBy(holder, m.clock.Now()), nil
}
