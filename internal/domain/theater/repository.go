package theater

import "context"

// ListFilter は一覧取得の条件。MovieID が空なら全件を対象にする
type ListFilter struct {
	MovieID string
	Limit   int
	Offset  int
}

// Repository は上映回リポジトリのインターフェース
type Repository interface {
	// Create は新しい上映回を作成する
	Create(ctx context.Context, theater *Theater) error

	// GetByID はIDから上映回を取得する
	GetByID(ctx context.Context, id string) (*Theater, error)

	// List は上映回一覧を取得する
	List(ctx context.Context, filter ListFilter) ([]*Theater, error)

	// Update は上映回を更新する（楽観的ロック）
	Update(ctx context.Context, theater *Theater) error

	// Delete は上映回を削除する
	Delete(ctx context.Context, id string) error
}
