package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
)

// LogNotifier はメッセージブローカーが設定されていない場合に使う Notifier
// 予約確定イベントを構造化ログとして出力する
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(l *zap.Logger) *LogNotifier {
	if l == nil {
		l = logger.Get()
	}
	return &LogNotifier{log: l}
}

func (n *LogNotifier) NotifyBookingConfirmed(_ context.Context, ev booking.ConfirmedEvent) error {
	n.log.Info("予約確定",
		logger.CheckoutID(ev.CheckoutID),
		logger.UserID(ev.UserID),
		logger.TheaterID(ev.TheaterID),
		zap.String("movie_title", ev.MovieTitle),
		zap.Strings("seat_numbers", ev.SeatNumbers),
		zap.Int64("amount", ev.Amount),
		zap.String("currency", ev.Currency),
		zap.String("payment_id", ev.PaymentID),
	)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
