package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
)

// theaterRow はDBの行を表す構造体
type theaterRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	MovieID    string    `db:"movie_id"`
	MovieTitle *string   `db:"movie_title"`
	StartsAt   time.Time `db:"starts_at"`
	Price      int64     `db:"price"`
	Currency   string    `db:"currency"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
	Version    int       `db:"version"`
}

// toEntity はtheaterRowをTheaterエンティティに変換する
func (r *theaterRow) toEntity() *theater.Theater {
	var title string
	if r.MovieTitle != nil {
		title = *r.MovieTitle
	}
	return &theater.Theater{
		ID:         r.ID,
		Name:       r.Name,
		MovieID:    r.MovieID,
		MovieTitle: title,
		StartsAt:   r.StartsAt,
		Price:      r.Price,
		Currency:   r.Currency,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Version:    r.Version,
	}
}

const theaterColumns = `id, name, movie_id, movie_title, starts_at, price, currency, created_at, updated_at, version`

// TheaterRepository は上映回リポジトリのPostgreSQL実装
type TheaterRepository struct {
	db *sqlx.DB
}

// NewTheaterRepository はTheaterRepositoryを作成する
func NewTheaterRepository(db *sqlx.DB) *TheaterRepository {
	return &TheaterRepository{db: db}
}

// Create は新しい上映回を作成する
func (r *TheaterRepository) Create(ctx context.Context, t *theater.Theater) error {
	query := `
		INSERT INTO theaters (name, movie_id, movie_title, starts_at, price, currency, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.MovieID, nullString(t.MovieTitle), t.StartsAt, t.Price, t.Currency, t.CreatedAt, t.UpdatedAt, t.Version,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("上映回作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDから上映回を取得する
func (r *TheaterRepository) GetByID(ctx context.Context, id string) (*theater.Theater, error) {
	query := `SELECT ` + theaterColumns + ` FROM theaters WHERE id = $1`

	var row theaterRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, theater.ErrTheaterNotFound
		}
		return nil, fmt.Errorf("上映回取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// List は上映回一覧を開始時刻の新しい順に取得する
func (r *TheaterRepository) List(ctx context.Context, filter theater.ListFilter) ([]*theater.Theater, error) {
	query := `SELECT ` + theaterColumns + ` FROM theaters`
	var args []interface{}
	if filter.MovieID != "" {
		args = append(args, filter.MovieID)
		query += ` WHERE movie_id = $1`
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY starts_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var rows []theaterRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("上映回一覧取得に失敗しました: %w", err)
	}

	theaters := make([]*theater.Theater, len(rows))
	for i, row := range rows {
		theaters[i] = row.toEntity()
	}
	return theaters, nil
}

// Update は上映回を更新する（楽観的ロック）
func (r *TheaterRepository) Update(ctx context.Context, t *theater.Theater) error {
	query := `
		UPDATE theaters
		SET name = $1, movie_id = $2, movie_title = $3, starts_at = $4, price = $5, currency = $6,
		    updated_at = $7, version = version + 1
		WHERE id = $8 AND version = $9
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.MovieID, nullString(t.MovieTitle), t.StartsAt, t.Price, t.Currency, now, t.ID, t.Version,
	)
	if err != nil {
		return fmt.Errorf("上映回更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		// 行が存在するならバージョン不一致
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
		return theater.ErrOptimisticLockConflict
	}

	t.Version++
	t.UpdatedAt = now
	return nil
}

// Delete は上映回を削除する（座席・予約も連鎖削除される）
func (r *TheaterRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM theaters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("上映回削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return theater.ErrTheaterNotFound
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// インターフェースを満たしているか確認
var _ theater.Repository = (*TheaterRepository)(nil)
