package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sanosuguru/book-my-seat/internal/application"
	"github.com/sanosuguru/book-my-seat/internal/bootstrap"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
)

func newSeatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seats <theater-id>",
		Short: "上映回の座席表を表示する",
		Long:  `□ 空席 / ▲ 仮押さえ中 / ■ 購入済み。期限切れの仮押さえは空席として表示します。`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				th, err := app.Theaters.GetTheater(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				views, err := app.Seats.ListSeats(cmd.Context(), th.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s / %s\n", th.Name, th.MovieTitle)
				renderSeatMap(cmd.OutOrStdout(), views)
				return nil
			})
		},
	}
}

var seatGlyph = map[seat.Status]string{
	seat.StatusAvailable: "□",
	seat.StatusReserved:  "▲",
	seat.StatusBooked:    "■",
}

// seatRow は座席番号 "B12" を行 "B" と番号 12 に分ける
func seatRow(number string) (string, int) {
	i := strings.IndexFunc(number, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return number, 0
	}
	n, _ := strconv.Atoi(number[i:])
	return number[:i], n
}

// renderSeatMap は行ごとに座席の状態を並べた表を w に書き出す
func renderSeatMap(w io.Writer, views []application.SeatView) {
	type cell struct {
		n      int
		status seat.Status
	}
	rows := make(map[string][]cell)
	var (
		order  []string
		counts = make(map[seat.Status]int)
		width  int
	)
	for _, v := range views {
		row, n := seatRow(v.Seat.SeatNumber)
		if _, ok := rows[row]; !ok {
			order = append(order, row)
		}
		rows[row] = append(rows[row], cell{n: n, status: v.Status})
		counts[v.Status]++
		if len(rows[row]) > width {
			width = len(rows[row])
		}
	}
	sort.Strings(order)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	header := table.Row{""}
	for i := 1; i <= width; i++ {
		header = append(header, i)
	}
	t.AppendHeader(header)
	for _, row := range order {
		cells := rows[row]
		sort.Slice(cells, func(i, j int) bool { return cells[i].n < cells[j].n })
		r := table.Row{row}
		for _, c := range cells {
			r = append(r, seatGlyph[c.status])
		}
		t.AppendRow(r)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("空席 %d / 仮押さえ %d / 購入済み %d",
		counts[seat.StatusAvailable], counts[seat.StatusReserved], counts[seat.StatusBooked])})
	t.Render()
}
