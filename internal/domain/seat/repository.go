package seat

import (
	"context"
	"time"

	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
// tx を受け取るメソッドは tx が nil の場合トランザクション外で実行する
type Repository interface {
	// Create は新しい座席を作成する
	Create(ctx context.Context, seat *Seat) error

	// CreateBulk は複数の座席を一括作成する
	CreateBulk(ctx context.Context, seats []*Seat) error

	// GetByID はIDから座席を取得する
	GetByID(ctx context.Context, tx transaction.Tx, id string) (*Seat, error)

	// GetByTheaterID は上映回の座席一覧を座席番号順で取得する
	GetByTheaterID(ctx context.Context, theaterID string) ([]*Seat, error)

	// CountAvailableByTheaterID は now 時点で仮押さえ可能な座席数を取得する
	CountAvailableByTheaterID(ctx context.Context, theaterID string, now time.Time) (int, error)

	// TryReserve は座席が未購入かつ有効な仮押さえがない場合のみ holder で仮押さえする
	// 条件付き更新1回で判定と書き込みを行い、更新できたかを返す
	TryReserve(ctx context.Context, tx transaction.Tx, id, holder string, now, until time.Time) (bool, error)

	// Release は仮押さえを無条件に解除する（冪等）
	Release(ctx context.Context, tx transaction.Tx, id string, now time.Time) error

	// ReleaseIfHeldBy は holder の仮押さえである場合のみ解除し、解除したかを返す
	ReleaseIfHeldBy(ctx context.Context, tx transaction.Tx, id, holder string, now time.Time) (bool, error)

	// ClearExpiredHold は期限切れの仮押さえのみを解除し、解除したかを返す
	ClearExpiredHold(ctx context.Context, tx transaction.Tx, id string, now time.Time) (bool, error)

	// MarkBooked は座席を購入済みにして仮押さえを消す（トランザクション必須）
	// 1席でも条件を満たさなければエラーを返す
	MarkBooked(ctx context.Context, tx transaction.Tx, ids []string, holder string, now time.Time) error
}
