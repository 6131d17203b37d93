package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanosuguru/book-my-seat/internal/bootstrap"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "支払い期限を過ぎた未払い予約を一度だけ解放する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				n, err := app.Checkout.ExpireStale(cmd.Context())
				if err != nil {
					return fmt.Errorf("期限切れ予約の解放に失敗しました（%d 件は解放済み）: %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d 件の期限切れ予約を解放しました\n", n)
				return nil
			})
		},
	}
}
