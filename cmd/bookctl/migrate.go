package main

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/infrastructure/postgres"
)

var errNotPostgres = errors.New("マイグレーションは STORAGE_DRIVER=postgres でのみ利用できます")

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "データベースマイグレーションを操作する",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "直近のマイグレーションを戻す",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(db *sqlx.DB, path string) error {
				if err := postgres.RollbackMigrations(db.DB, path, steps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d 件のマイグレーションを戻しました\n", steps)
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "戻す件数")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "未適用のマイグレーションを全て適用する",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(func(db *sqlx.DB, path string) error {
					if err := postgres.RunMigrations(db.DB, path); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "マイグレーションを適用しました")
					return nil
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "現在のスキーマバージョンを表示する",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(func(db *sqlx.DB, path string) error {
					version, dirty, err := postgres.MigrationVersion(db.DB, path)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

// withDB は自動マイグレーションを行わずに接続を開く
func withDB(fn func(db *sqlx.DB, migrationsPath string) error) error {
	cfg := loadConfig()
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		return errNotPostgres
	}
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, cfg.Storage.MigrationsPath)
}
