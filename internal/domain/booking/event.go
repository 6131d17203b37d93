package booking

import "time"

// ConfirmedEvent は支払い完了後に送信される予約確定通知の内容
// メッセージキューにはこの構造体の JSON がそのまま流れる
type ConfirmedEvent struct {
	CheckoutID    string    `json:"checkout_id"`
	UserID        string    `json:"user_id"`
	TheaterID     string    `json:"theater_id"`
	TheaterName   string    `json:"theater_name"`
	MovieID       string    `json:"movie_id"`
	MovieTitle    string    `json:"movie_title"`
	StartsAt      time.Time `json:"starts_at"`
	BookingIDs    []string  `json:"booking_ids"`
	SeatNumbers   []string  `json:"seat_numbers"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentID     string    `json:"payment_id"`
	PaymentMethod string    `json:"payment_method"`
	PaidAt        time.Time `json:"paid_at"`
}
