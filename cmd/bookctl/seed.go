package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanosuguru/book-my-seat/internal/application"
	"github.com/sanosuguru/book-my-seat/internal/bootstrap"
)

type seedOptions struct {
	name       string
	movieID    string
	movieTitle string
	startsAt   string
	rows       int
	perRow     int
	price      int64
	currency   string
}

func newSeedCmd() *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "上映回と座席配置を作成する",
		Example: `  bookctl seed --name "PVR Screen 1" --movie-id movie-42 --rows 5 --per-row 10
  bookctl seed --name "IMAX" --movie-id movie-7 --price 45000 --starts-at 2026-03-01T18:30:00+05:30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, layout, err := opts.inputs(time.Now())
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				th, err := app.Theaters.CreateTheater(cmd.Context(), in)
				if err != nil {
					return err
				}
				layout.TheaterID = th.ID
				seats, err := app.Seats.CreateSeatLayout(cmd.Context(), layout)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "上映回を作成しました: id=%s name=%q starts_at=%s price=%d %s seats=%d\n",
					th.ID, th.Name, th.StartsAt.Format(time.RFC3339), th.Price, th.Currency, len(seats))
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "劇場名（必須）")
	f.StringVar(&opts.movieID, "movie-id", "", "映画ID（必須）")
	f.StringVar(&opts.movieTitle, "movie-title", "", "映画タイトル")
	f.StringVar(&opts.startsAt, "starts-at", "", "開始時刻（RFC3339、省略時は翌日の同時刻）")
	f.IntVar(&opts.rows, "rows", 5, "行数（A〜Z）")
	f.IntVar(&opts.perRow, "per-row", 10, "1行あたりの座席数")
	f.Int64Var(&opts.price, "price", 0, "1席あたりの価格（最小通貨単位、0なら既定値）")
	f.StringVar(&opts.currency, "currency", "", "通貨コード（省略時は既定値）")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("movie-id")
	return cmd
}

func (o seedOptions) inputs(now time.Time) (application.CreateTheaterInput, application.CreateSeatLayoutInput, error) {
	startsAt := now.Add(24 * time.Hour).Truncate(time.Minute)
	if o.startsAt != "" {
		t, err := time.Parse(time.RFC3339, o.startsAt)
		if err != nil {
			return application.CreateTheaterInput{}, application.CreateSeatLayoutInput{}, fmt.Errorf("--starts-at の形式が不正です: %w", err)
		}
		startsAt = t
	}
	return application.CreateTheaterInput{
			Name:       o.name,
			MovieID:    o.movieID,
			MovieTitle: o.movieTitle,
			StartsAt:   startsAt,
			Price:      o.price,
			Currency:   o.currency,
		}, application.CreateSeatLayoutInput{
			Rows:   o.rows,
			PerRow: o.perRow,
		}, nil
}
