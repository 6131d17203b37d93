package checkout

import "errors"

// Checkout ドメインのエラー定義
var (
	ErrCheckoutNotFound       = errors.New("チェックアウトが見つかりません")
	ErrSeatsUnavailable       = errors.New("選択された座席の一部を確保できませんでした")
	ErrCheckoutExpired        = errors.New("チェックアウトの有効期限が切れています")
	ErrPaymentMismatch        = errors.New("支払い情報がチェックアウトと一致しません")
	ErrCheckoutAlreadyPaid    = errors.New("チェックアウトは既に支払い済みです")
	ErrCheckoutClosed         = errors.New("チェックアウトは既に終了しています")
	ErrInvalidStateTransition = errors.New("許可されていない状態遷移です")
	ErrStateConflict          = errors.New("チェックアウトの状態が他の処理により変更されました")
	ErrUserIDRequired         = errors.New("ユーザーIDは必須です")
	ErrTheaterIDRequired      = errors.New("上映回IDは必須です")
	ErrSeatIDsRequired        = errors.New("座席IDは必須です")
	ErrIdempotencyKeyConflict = errors.New("同じ冪等性キーのチェックアウトが既に存在します")
)
