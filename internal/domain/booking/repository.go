package booking

import (
	"context"
	"time"

	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は支払い待ちの予約を作成する（トランザクション必須）
	// 座席に既に予約がある場合は ErrSeatAlreadyHasBooking を返す
	Create(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// GetByCheckoutID はチェックアウトに属する予約一覧を取得する
	GetByCheckoutID(ctx context.Context, tx transaction.Tx, checkoutID string) ([]*Booking, error)

	// GetByUserID はユーザーの予約一覧を新しい順に取得する
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*Booking, error)

	// GetExpiredPending は bookedBefore より前に作成された支払い待ち予約を、属するチェックアウトと合わせて行ロック付きで取得する
	// 他トランザクションがロック中の行はスキップする
	GetExpiredPending(ctx context.Context, tx transaction.Tx, bookedBefore time.Time, limit int) ([]*Booking, error)

	// MarkPaid は支払い待ちの予約をまとめて支払い済みにする（トランザクション必須）
	// 1件でも支払い待ちでなければ ErrBookingNotPending を返す
	MarkPaid(ctx context.Context, tx transaction.Tx, ids []string, paymentID, paymentMethod string, paidAt time.Time) error

	// Delete は予約を削除し、削除件数を返す（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, ids []string) (int, error)
}
