package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

// NewConnection はPostgreSQLへの接続を作成する
func NewConnection(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Ping はデータベース接続を確認する
func Ping(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}

// executor は tx があればトランザクション、なければDBを返す
func executor(db *sqlx.DB, tx transaction.Tx) sqlx.ExtContext {
	if t := UnwrapTx(tx); t != nil {
		return t
	}
	return db
}

// forUpdate はトランザクション内の読み取りにだけ行ロックを付ける
func forUpdate(tx transaction.Tx, clause string) string {
	if UnwrapTx(tx) == nil {
		return ""
	}
	return " " + clause
}

const uniqueViolation = "23505"

// isUniqueViolation は一意制約違反かを判定する
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
