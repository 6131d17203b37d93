package booking

import "time"

// PaymentStatus は予約の支払い状態を表す
type PaymentStatus string

const (
	StatusPending  PaymentStatus = "pending"
	StatusPaid     PaymentStatus = "paid"
	StatusFailed   PaymentStatus = "failed"
	StatusRefunded PaymentStatus = "refunded"
)

// DefaultHoldDuration は仮押さえと未払い予約の有効期間（デフォルト5分）
const DefaultHoldDuration = 5 * time.Minute

// Booking は1座席分の予約レコードを表す
type Booking struct {
	ID            string
	CheckoutID    string
	UserID        string
	SeatID        string
	SeatNumber    string // 表示用（seats との結合で取得）
	TheaterID     string
	MovieID       string
	PaymentStatus PaymentStatus
	PaymentID     *string
	PaymentMethod *string
	Amount        int64 // 最小通貨単位
	Currency      string
	BookedAt      time.Time // 作成時刻（不変）
	PaymentDate   *time.Time
}

// NewPendingBooking は支払い待ちの予約を作成する
func NewPendingBooking(checkoutID, userID, seatID, theaterID, movieID string, amount int64, currency string, now time.Time) *Booking {
	return &Booking{
		CheckoutID:    checkoutID,
		UserID:        userID,
		SeatID:        seatID,
		TheaterID:     theaterID,
		MovieID:       movieID,
		PaymentStatus: StatusPending,
		Amount:        amount,
		Currency:      currency,
		BookedAt:      now,
	}
}

// IsPending は支払い待ちかを返す
func (b *Booking) IsPending() bool {
	return b.PaymentStatus == StatusPending
}

// ExpiresAt は未払いのまま期限切れになる時刻を返す
func (b *Booking) ExpiresAt(hold time.Duration) time.Time {
	return b.BookedAt.Add(hold)
}

// IsExpiredAt は now 時点で期限切れかを返す
// 支払い済みの予約は期限切れにならない
func (b *Booking) IsExpiredAt(now time.Time, hold time.Duration) bool {
	return b.IsPending() && now.After(b.ExpiresAt(hold))
}

// MarkPaid は予約を支払い済みにする
func (b *Booking) MarkPaid(paymentID, paymentMethod string, now time.Time) error {
	if !b.IsPending() {
		return ErrBookingNotPending
	}
	b.PaymentStatus = StatusPaid
	b.PaymentID = &paymentID
	b.PaymentMethod = &paymentMethod
	b.PaymentDate = &now
	return nil
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.UserID == "" {
		return ErrUserIDRequired
	}
	if b.SeatID == "" {
		return ErrSeatIDRequired
	}
	if b.TheaterID == "" {
		return ErrTheaterIDRequired
	}
	if b.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SeatIDs は予約一覧の座席IDを返す
func SeatIDs(bookings []*Booking) []string {
	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.SeatID
	}
	return ids
}

// IDs は予約一覧のIDを返す
func IDs(bookings []*Booking) []string {
	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}
	return ids
}

// TotalAmount は予約一覧の合計金額を返す
func TotalAmount(bookings []*Booking) int64 {
	var total int64
	for _, b := range bookings {
		total += b.Amount
	}
	return total
}
