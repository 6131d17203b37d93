package seat

import "time"

// Status は表示用に算出される座席の状態
// 永続化されるのは IsBooked と仮押さえ列のみで、状態は読み取り時に決まる
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusBooked    Status = "booked"
)

// Seat は上映回の座席エンティティを表す
type Seat struct {
	ID            string
	TheaterID     string
	SeatNumber    string
	IsBooked      bool
	ReservedBy    *string // 仮押さえ中のユーザーID
	ReservedUntil *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSeat は新しい座席を作成する
func NewSeat(theaterID, seatNumber string) *Seat {
	now := time.Now()
	return &Seat{
		TheaterID:  theaterID,
		SeatNumber: seatNumber,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HasActiveHold は now 時点で有効な仮押さえがあるかを返す
func (s *Seat) HasActiveHold(now time.Time) bool {
	return s.ReservedUntil != nil && s.ReservedUntil.After(now)
}

// HoldExpiredAt は仮押さえが残っているが期限切れかを返す（副作用なし）
func (s *Seat) HoldExpiredAt(now time.Time) bool {
	return s.ReservedUntil != nil && !s.ReservedUntil.After(now)
}

// IsAvailableAt は now 時点で仮押さえ可能かを返す
func (s *Seat) IsAvailableAt(now time.Time) bool {
	return !s.IsBooked && !s.HasActiveHold(now)
}

// IsHeldBy は holder が有効な仮押さえを持っているかを返す
func (s *Seat) IsHeldBy(holder string, now time.Time) bool {
	return s.ReservedBy != nil && *s.ReservedBy == holder && s.HasActiveHold(now)
}

// StatusAt は now 時点の表示用状態を返す
func (s *Seat) StatusAt(now time.Time) Status {
	switch {
	case s.IsBooked:
		return StatusBooked
	case s.HasActiveHold(now):
		return StatusReserved
	default:
		return StatusAvailable
	}
}

// Reserve は座席を holder で until まで仮押さえする
func (s *Seat) Reserve(holder string, now, until time.Time) error {
	if s.IsBooked {
		return ErrSeatAlreadyBooked
	}
	if s.HasActiveHold(now) {
		return ErrSeatAlreadyReserved
	}
	s.ReservedBy = &holder
	s.ReservedUntil = &until
	s.UpdatedAt = now
	return nil
}

// Release は仮押さえを解除する
func (s *Seat) Release(now time.Time) {
	s.ReservedBy = nil
	s.ReservedUntil = nil
	s.UpdatedAt = now
}

// ClearExpiredHold は期限切れの仮押さえだけを解除し、解除したかを返す
func (s *Seat) ClearExpiredHold(now time.Time) bool {
	if !s.HoldExpiredAt(now) {
		return false
	}
	s.Release(now)
	return true
}

// MarkBooked は座席を確定済みにして仮押さえを消す
// 他ユーザーの有効な仮押さえがある座席は確定できない
func (s *Seat) MarkBooked(holder string, now time.Time) error {
	if s.IsBooked {
		return ErrSeatAlreadyBooked
	}
	if s.HasActiveHold(now) && *s.ReservedBy != holder {
		return ErrReservationConflict
	}
	s.IsBooked = true
	s.Release(now)
	return nil
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.TheaterID == "" {
		return ErrTheaterIDRequired
	}
	if s.SeatNumber == "" {
		return ErrSeatNumberRequired
	}
	return nil
}
