package checkout

import (
	"context"
	"time"

	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

// Repository はチェックアウトリポジトリのインターフェース
type Repository interface {
	// Create は新しいチェックアウトを作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, checkout *Checkout) error

	// GetByID はIDからチェックアウトを取得する
	GetByID(ctx context.Context, tx transaction.Tx, id string) (*Checkout, error)

	// GetByIdempotencyKey はユーザーと冪等性キーからチェックアウトを取得する
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*Checkout, error)

	// UpdateState は状態が from の場合のみ to に更新する
	// 状態が既に変わっていれば ErrStateConflict を返す
	UpdateState(ctx context.Context, tx transaction.Tx, id string, from, to State, paymentID *string, now time.Time) error
}
