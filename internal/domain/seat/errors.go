package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound        = errors.New("座席が見つかりません")
	ErrSeatAlreadyBooked   = errors.New("座席は既に購入済みです")
	ErrSeatAlreadyReserved = errors.New("座席は他のユーザーが仮押さえ中です")
	ErrReservationConflict = errors.New("座席の仮押さえが競合しました")
	ErrSeatNotInTheater    = errors.New("座席は指定された上映回に属していません")
	ErrTheaterIDRequired   = errors.New("上映回IDは必須です")
	ErrSeatNumberRequired  = errors.New("座席番号は必須です")
	ErrSeatNumberDuplicate = errors.New("同じ座席番号が既に存在します")
	ErrHolderRequired      = errors.New("仮押さえするユーザーIDは必須です")
	ErrInvalidLayout       = errors.New("座席配置が不正です")
)
