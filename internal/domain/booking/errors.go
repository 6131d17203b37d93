package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound       = errors.New("予約が見つかりません")
	ErrBookingNotPending     = errors.New("予約は支払い待ちではありません")
	ErrBookingExpired        = errors.New("予約の有効期限が切れています")
	ErrSeatNotHeld           = errors.New("座席はこのユーザーに仮押さえされていません")
	ErrSeatAlreadyHasBooking = errors.New("座席には既に予約が存在します")
	ErrUserIDRequired        = errors.New("ユーザーIDは必須です")
	ErrSeatIDRequired        = errors.New("座席IDは必須です")
	ErrTheaterIDRequired     = errors.New("上映回IDは必須です")
	ErrInvalidAmount         = errors.New("金額は0以上である必要があります")
)
