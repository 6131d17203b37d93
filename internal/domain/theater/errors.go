package theater

import "errors"

// Theater ドメインのエラー定義
var (
	ErrTheaterNotFound        = errors.New("上映回が見つかりません")
	ErrTheaterNameRequired    = errors.New("劇場名は必須です")
	ErrMovieIDRequired        = errors.New("映画IDは必須です")
	ErrInvalidPrice           = errors.New("価格は0以上である必要があります")
	ErrInvalidCurrency        = errors.New("通貨コードは3文字である必要があります")
	ErrOptimisticLockConflict = errors.New("楽観的ロックの競合が発生しました")
)
