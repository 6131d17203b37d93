package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/book-my-seat/internal/domain/checkout"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

type checkoutRow struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	TheaterID      string         `db:"theater_id"`
	SeatIDs        pq.StringArray `db:"seat_ids"`
	State          string         `db:"state"`
	IdempotencyKey *string        `db:"idempotency_key"`
	Amount         int64          `db:"amount"`
	Currency       string         `db:"currency"`
	ExpiresAt      time.Time      `db:"expires_at"`
	PaymentID      *string        `db:"payment_id"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r *checkoutRow) toEntity() *checkout.Checkout {
	var key string
	if r.IdempotencyKey != nil {
		key = *r.IdempotencyKey
	}
	return &checkout.Checkout{
		ID:             r.ID,
		UserID:         r.UserID,
		TheaterID:      r.TheaterID,
		SeatIDs:        []string(r.SeatIDs),
		State:          checkout.State(r.State),
		IdempotencyKey: key,
		Amount:         r.Amount,
		Currency:       r.Currency,
		ExpiresAt:      r.ExpiresAt,
		PaymentID:      r.PaymentID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

const (
	checkoutColumns               = `id, user_id, theater_id, seat_ids, state, idempotency_key, amount, currency, expires_at, payment_id, created_at, updated_at`
	checkoutIdempotencyConstraint = "checkouts_user_idempotency_key"
)

// CheckoutRepository はチェックアウトリポジトリのPostgreSQL実装
type CheckoutRepository struct {
	db *sqlx.DB
}

// NewCheckoutRepository はCheckoutRepositoryを作成する
func NewCheckoutRepository(db *sqlx.DB) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

// Create はチェックアウトを作成する
// 冪等性キーが空の場合は NULL として保存し、一意制約の対象外にする
func (r *CheckoutRepository) Create(ctx context.Context, tx transaction.Tx, c *checkout.Checkout) error {
	query := `
		INSERT INTO checkouts (id, user_id, theater_id, seat_ids, state, idempotency_key, amount, currency, expires_at, payment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := executor(r.db, tx).ExecContext(ctx, query,
		c.ID, c.UserID, c.TheaterID, pq.Array(c.SeatIDs), string(c.State), nullString(c.IdempotencyKey),
		c.Amount, c.Currency, c.ExpiresAt, c.PaymentID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, checkoutIdempotencyConstraint) {
			return checkout.ErrIdempotencyKeyConflict
		}
		return fmt.Errorf("チェックアウト作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はトランザクション内では行ロック付きで取得する
// 同じチェックアウトへの支払い確定・取消・期限切れ処理はこのロックで直列化される
func (r *CheckoutRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*checkout.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE id = $1` + forUpdate(tx, "FOR UPDATE")
	var row checkoutRow
	if err := sqlx.GetContext(ctx, executor(r.db, tx), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkout.ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("チェックアウト取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

func (r *CheckoutRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*checkout.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE user_id = $1 AND idempotency_key = $2`
	var row checkoutRow
	if err := r.db.GetContext(ctx, &row, query, userID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, checkout.ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("チェックアウト取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// UpdateState は状態が from のときだけ to に更新する
func (r *CheckoutRepository) UpdateState(ctx context.Context, tx transaction.Tx, id string, from, to checkout.State, paymentID *string, now time.Time) error {
	if !from.CanTransitionTo(to) {
		return checkout.ErrInvalidStateTransition
	}
	ext := executor(r.db, tx)
	query := `
		UPDATE checkouts
		SET state = $3, payment_id = COALESCE($4, payment_id), updated_at = $5
		WHERE id = $1 AND state = $2
	`
	result, err := ext.ExecContext(ctx, query, id, string(from), string(to), paymentID, now)
	if err != nil {
		return fmt.Errorf("チェックアウト状態更新に失敗しました: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, ext, &exists, `SELECT EXISTS (SELECT 1 FROM checkouts WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("チェックアウト状態更新に失敗しました: %w", err)
	}
	if !exists {
		return checkout.ErrCheckoutNotFound
	}
	return checkout.ErrStateConflict
}

var _ checkout.Repository = (*CheckoutRepository)(nil)
