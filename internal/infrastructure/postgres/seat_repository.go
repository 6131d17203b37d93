package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

type seatRow struct {
	ID            string     `db:"id"`
	TheaterID     string     `db:"theater_id"`
	SeatNumber    string     `db:"seat_number"`
	IsBooked      bool       `db:"is_booked"`
	ReservedBy    *string    `db:"reserved_by"`
	ReservedUntil *time.Time `db:"reserved_until"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: r.ID, TheaterID: r.TheaterID, SeatNumber: r.SeatNumber,
		IsBooked: r.IsBooked, ReservedBy: r.ReservedBy, ReservedUntil: r.ReservedUntil,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const (
	seatColumns             = `id, theater_id, seat_number, is_booked, reserved_by, reserved_until, created_at, updated_at`
	seatNumberConstraint    = "seats_theater_seat_number_key"
	seatAvailableCondition  = `is_booked = FALSE AND (reserved_until IS NULL OR reserved_until <= $%d)`
	seatInsertBatchSize     = 1000
	seatInsertColumnsPerRow = 5
)

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) Create(ctx context.Context, s *seat.Seat) error {
	query := `INSERT INTO seats (theater_id, seat_number, is_booked, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, s.TheaterID, s.SeatNumber, s.IsBooked, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err, seatNumberConstraint) {
			return seat.ErrSeatNumberDuplicate
		}
		return fmt.Errorf("座席作成に失敗: %w", err)
	}
	return nil
}

// CreateBulk はトランザクション内でバッチごとにマルチバリューINSERTを実行する
func (r *SeatRepository) CreateBulk(ctx context.Context, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(seats); i += seatInsertBatchSize {
		end := i + seatInsertBatchSize
		if end > len(seats) {
			end = len(seats)
		}
		if err := r.createBulkBatch(ctx, tx, seats[i:end]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// createBulkBatch はバッチ単位でマルチバリューINSERTを実行
// RETURNING の順序は保証されないため座席番号で ID を対応付ける
func (r *SeatRepository) createBulkBatch(ctx context.Context, tx *sqlx.Tx, seats []*seat.Seat) error {
	query := `INSERT INTO seats (theater_id, seat_number, is_booked, created_at, updated_at) VALUES `
	args := make([]interface{}, 0, len(seats)*seatInsertColumnsPerRow)
	placeholders := make([]string, 0, len(seats))
	byKey := make(map[string]*seat.Seat, len(seats))

	for i, s := range seats {
		base := i * seatInsertColumnsPerRow
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, s.TheaterID, s.SeatNumber, s.IsBooked, s.CreatedAt, s.UpdatedAt)
		byKey[s.TheaterID+"/"+s.SeatNumber] = s
	}

	query += strings.Join(placeholders, ", ") + ` RETURNING id, theater_id, seat_number`
	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err, seatNumberConstraint) {
			return seat.ErrSeatNumberDuplicate
		}
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, theaterID, number string
		if err := rows.Scan(&id, &theaterID, &number); err != nil {
			return fmt.Errorf("座席一括作成に失敗: %w", err)
		}
		if s, ok := byKey[theaterID+"/"+number]; ok {
			s.ID = id
		}
	}
	if err := rows.Err(); err != nil {
		if isUniqueViolation(err, seatNumberConstraint) {
			return seat.ErrSeatNumberDuplicate
		}
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = $1`
	var row seatRow
	if err := sqlx.GetContext(ctx, executor(r.db, tx), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, seat.ErrSeatNotFound
		}
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) GetByTheaterID(ctx context.Context, theaterID string) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE theater_id = $1 ORDER BY seat_number`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, theaterID); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	seats := make([]*seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = row.toEntity()
	}
	return seats, nil
}

func (r *SeatRepository) CountAvailableByTheaterID(ctx context.Context, theaterID string, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM seats WHERE theater_id = $1 AND ` + fmt.Sprintf(seatAvailableCondition, 2)
	var count int
	if err := r.db.GetContext(ctx, &count, query, theaterID, now); err != nil {
		return 0, fmt.Errorf("空席数取得に失敗: %w", err)
	}
	return count, nil
}

// TryReserve は判定と書き込みを1回の条件付きUPDATEで行う
// 競合時もエラーにせず false を返すため、トランザクションは継続できる
func (r *SeatRepository) TryReserve(ctx context.Context, tx transaction.Tx, id, holder string, now, until time.Time) (bool, error) {
	query := `UPDATE seats SET reserved_by = $2, reserved_until = $4, updated_at = $3 WHERE id = $1 AND ` +
		fmt.Sprintf(seatAvailableCondition, 3)
	result, err := executor(r.db, tx).ExecContext(ctx, query, id, holder, now, until)
	if err != nil {
		return false, fmt.Errorf("座席仮押さえに失敗: %w", err)
	}
	return affected(result)
}

func (r *SeatRepository) Release(ctx context.Context, tx transaction.Tx, id string, now time.Time) error {
	query := `UPDATE seats SET reserved_by = NULL, reserved_until = NULL, updated_at = $2 WHERE id = $1 AND reserved_by IS NOT NULL`
	if _, err := executor(r.db, tx).ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("仮押さえ解除に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) ReleaseIfHeldBy(ctx context.Context, tx transaction.Tx, id, holder string, now time.Time) (bool, error) {
	query := `UPDATE seats SET reserved_by = NULL, reserved_until = NULL, updated_at = $3 WHERE id = $1 AND reserved_by = $2`
	result, err := executor(r.db, tx).ExecContext(ctx, query, id, holder, now)
	if err != nil {
		return false, fmt.Errorf("仮押さえ解除に失敗: %w", err)
	}
	return affected(result)
}

func (r *SeatRepository) ClearExpiredHold(ctx context.Context, tx transaction.Tx, id string, now time.Time) (bool, error) {
	query := `UPDATE seats SET reserved_by = NULL, reserved_until = NULL, updated_at = $2 WHERE id = $1 AND reserved_until IS NOT NULL AND reserved_until <= $2`
	result, err := executor(r.db, tx).ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("期限切れ仮押さえの解除に失敗: %w", err)
	}
	return affected(result)
}

// MarkBooked は対象行をロックして全席を検証してから一括で購入済みにする
func (r *SeatRepository) MarkBooked(ctx context.Context, tx transaction.Tx, ids []string, holder string, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	ext := executor(r.db, tx)

	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = ANY($1)` + forUpdate(tx, "FOR UPDATE")
	var rows []seatRow
	if err := sqlx.SelectContext(ctx, ext, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("座席取得に失敗: %w", err)
	}
	if len(rows) != len(ids) {
		return seat.ErrSeatNotFound
	}
	for _, row := range rows {
		if err := row.toEntity().MarkBooked(holder, now); err != nil {
			return err
		}
	}

	update := `UPDATE seats SET is_booked = TRUE, reserved_by = NULL, reserved_until = NULL, updated_at = $2 WHERE id = ANY($1)`
	if _, err := ext.ExecContext(ctx, update, pq.Array(ids), now); err != nil {
		return fmt.Errorf("座席確定に失敗: %w", err)
	}
	return nil
}

func affected(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	return rows > 0, nil
}

var _ seat.Repository = (*SeatRepository)(nil)
