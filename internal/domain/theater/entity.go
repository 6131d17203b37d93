package theater

import "time"

// Theater は上映回（劇場 × 映画 × 開始時刻）を表す
// 座席はこの上映回に属する
type Theater struct {
	ID         string
	Name       string
	MovieID    string
	MovieTitle string
	StartsAt   time.Time
	Price      int64 // 最小通貨単位（INRならパイサ）
	Currency   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int // 楽観的ロック用
}

// NewTheater は新しい上映回を作成する
func NewTheater(name, movieID, movieTitle string, startsAt time.Time, price int64, currency string) *Theater {
	now := time.Now()
	return &Theater{
		Name:       name,
		MovieID:    movieID,
		MovieTitle: movieTitle,
		StartsAt:   startsAt,
		Price:      price,
		Currency:   currency,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    0,
	}
}

// ApplyDefaultPrice は価格未設定の上映回にデフォルト価格を適用する
// 上映回に価格が設定されていればそちらが優先される
func (t *Theater) ApplyDefaultPrice(price int64, currency string) {
	if t.Price == 0 {
		t.Price = price
	}
	if t.Currency == "" {
		t.Currency = currency
	}
}

// Validate は上映回の検証を行う
func (t *Theater) Validate() error {
	if t.Name == "" {
		return ErrTheaterNameRequired
	}
	if t.MovieID == "" {
		return ErrMovieIDRequired
	}
	if t.Price < 0 {
		return ErrInvalidPrice
	}
	if len(t.Currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}
