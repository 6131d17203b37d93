package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

type bookingRow struct {
	ID            string     `db:"id"`
	CheckoutID    string     `db:"checkout_id"`
	UserID        string     `db:"user_id"`
	SeatID        string     `db:"seat_id"`
	SeatNumber    string     `db:"seat_number"`
	TheaterID     string     `db:"theater_id"`
	MovieID       string     `db:"movie_id"`
	PaymentStatus string     `db:"payment_status"`
	PaymentID     *string    `db:"payment_id"`
	PaymentMethod *string    `db:"payment_method"`
	Amount        int64      `db:"amount"`
	Currency      string     `db:"currency"`
	BookedAt      time.Time  `db:"booked_at"`
	PaymentDate   *time.Time `db:"payment_date"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID:            r.ID,
		CheckoutID:    r.CheckoutID,
		UserID:        r.UserID,
		SeatID:        r.SeatID,
		SeatNumber:    r.SeatNumber,
		TheaterID:     r.TheaterID,
		MovieID:       r.MovieID,
		PaymentStatus: booking.PaymentStatus(r.PaymentStatus),
		PaymentID:     r.PaymentID,
		PaymentMethod: r.PaymentMethod,
		Amount:        r.Amount,
		Currency:      r.Currency,
		BookedAt:      r.BookedAt,
		PaymentDate:   r.PaymentDate,
	}
}

func toBookings(rows []bookingRow) []*booking.Booking {
	bookings := make([]*booking.Booking, len(rows))
	for i := range rows {
		bookings[i] = rows[i].toEntity()
	}
	return bookings
}

// 座席番号は表示用に seats から結合する
const bookingSelect = `
	SELECT b.id, b.checkout_id, b.user_id, b.seat_id, s.seat_number, b.theater_id, b.movie_id,
	       b.payment_status, b.payment_id, b.payment_method, b.amount, b.currency, b.booked_at, b.payment_date
	FROM bookings b
	JOIN seats s ON s.id = b.seat_id
`

// BookingRepository は予約リポジトリのPostgreSQL実装
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository はBookingRepositoryを作成する
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create は支払い待ちの予約を作成する
// 座席の一意制約違反でトランザクションを中断させないよう ON CONFLICT DO NOTHING を使う
func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (checkout_id, user_id, seat_id, theater_id, movie_id, payment_status, amount, currency, booked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (seat_id) DO NOTHING
		RETURNING id
	`
	err := executor(r.db, tx).QueryRowxContext(ctx, query,
		b.CheckoutID, b.UserID, b.SeatID, b.TheaterID, b.MovieID, string(b.PaymentStatus), b.Amount, b.Currency, b.BookedAt,
	).Scan(&b.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.ErrSeatAlreadyHasBooking
		}
		return fmt.Errorf("予約作成に失敗しました: %w", err)
	}
	return nil
}

// GetByCheckoutID はトランザクション内では行ロック付きで取得する
// 呼び出し側は先にチェックアウトの行をロックしておくこと
func (r *BookingRepository) GetByCheckoutID(ctx context.Context, tx transaction.Tx, checkoutID string) ([]*booking.Booking, error) {
	query := bookingSelect + ` WHERE b.checkout_id = $1 ORDER BY s.seat_number` + forUpdate(tx, "FOR UPDATE OF b")
	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, executor(r.db, tx), &rows, query, checkoutID); err != nil {
		return nil, fmt.Errorf("予約取得に失敗しました: %w", err)
	}
	return toBookings(rows), nil
}

func (r *BookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	query := bookingSelect + ` WHERE b.user_id = $1 ORDER BY b.booked_at DESC, s.seat_number LIMIT $2 OFFSET $3`
	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗しました: %w", err)
	}
	return toBookings(rows), nil
}

// GetExpiredPending は他のスイープや支払い確定がロック中の行を飛ばして取得する
// ロック順は他の経路と同じくチェックアウト → 予約で、チェックアウトがロック中なら予約ごと飛ばす
func (r *BookingRepository) GetExpiredPending(ctx context.Context, tx transaction.Tx, bookedBefore time.Time, limit int) ([]*booking.Booking, error) {
	query := bookingSelect + `
		JOIN checkouts c ON c.id = b.checkout_id
		WHERE b.payment_status = 'pending' AND b.booked_at < $1
		ORDER BY b.booked_at
		LIMIT $2` + forUpdate(tx, "FOR UPDATE OF c, b SKIP LOCKED")
	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, executor(r.db, tx), &rows, query, bookedBefore, limit); err != nil {
		return nil, fmt.Errorf("期限切れ予約の取得に失敗しました: %w", err)
	}
	return toBookings(rows), nil
}

func (r *BookingRepository) MarkPaid(ctx context.Context, tx transaction.Tx, ids []string, paymentID, paymentMethod string, paidAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	ext := executor(r.db, tx)
	query := `
		UPDATE bookings
		SET payment_status = 'paid', payment_id = $2, payment_method = $3, payment_date = $4
		WHERE id = ANY($1) AND payment_status = 'pending'
	`
	result, err := ext.ExecContext(ctx, query, pq.Array(ids), paymentID, paymentMethod, paidAt)
	if err != nil {
		return fmt.Errorf("支払い確定に失敗しました: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if int(rows) == len(ids) {
		return nil
	}

	var total int
	if err := sqlx.GetContext(ctx, ext, &total, `SELECT COUNT(*) FROM bookings WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("支払い確定に失敗しました: %w", err)
	}
	if total < len(ids) {
		return booking.ErrBookingNotFound
	}
	return booking.ErrBookingNotPending
}

func (r *BookingRepository) Delete(ctx context.Context, tx transaction.Tx, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := executor(r.db, tx).ExecContext(ctx, `DELETE FROM bookings WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("予約削除に失敗しました: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	return int(rows), nil
}

var _ booking.Repository = (*BookingRepository)(nil)
