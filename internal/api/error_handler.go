package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/checkout"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error    string            `json:"error"`
	Code     int               `json:"code,omitempty"`
	Details  string            `json:"details,omitempty"`
	Failures []FailureResponse `json:"failures,omitempty"`
}

// FailureResponse は確保・確定できなかった座席1席分の理由
type FailureResponse struct {
	SeatID     string `json:"seat_id"`
	SeatNumber string `json:"seat_number,omitempty"`
	Reason     string `json:"reason"`
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ハンドラーが返したドメインエラーをステータスコードに変換する
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := StatusFor(err)
	resp := ErrorResponse{Error: message, Code: code}
	for _, f := range checkout.FailuresOf(err) {
		resp.Failures = append(resp.Failures, FailureResponse{
			SeatID:     f.SeatID,
			SeatNumber: f.SeatNumber,
			Reason:     string(f.Reason),
		})
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if err := c.JSON(code, resp); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

// StatusFor はエラーに対応するHTTPステータスとメッセージを返す
func StatusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		return he.Code, http.StatusText(he.Code)
	}

	switch {
	// 期限切れは座席の競合より優先する
	case errors.Is(err, checkout.ErrCheckoutExpired), errors.Is(err, booking.ErrBookingExpired):
		return http.StatusGone, checkout.ErrCheckoutExpired.Error()

	case errors.Is(err, checkout.ErrSeatsUnavailable):
		return http.StatusConflict, checkout.ErrSeatsUnavailable.Error()

	case errors.Is(err, theater.ErrTheaterNotFound),
		errors.Is(err, seat.ErrSeatNotFound),
		errors.Is(err, checkout.ErrCheckoutNotFound),
		errors.Is(err, booking.ErrBookingNotFound):
		return http.StatusNotFound, rootMessage(err)

	case errors.Is(err, checkout.ErrPaymentMismatch),
		errors.Is(err, checkout.ErrCheckoutAlreadyPaid),
		errors.Is(err, checkout.ErrCheckoutClosed),
		errors.Is(err, checkout.ErrStateConflict),
		errors.Is(err, checkout.ErrIdempotencyKeyConflict),
		errors.Is(err, theater.ErrOptimisticLockConflict),
		errors.Is(err, seat.ErrSeatNumberDuplicate),
		errors.Is(err, seat.ErrSeatAlreadyBooked),
		errors.Is(err, seat.ErrSeatAlreadyReserved),
		errors.Is(err, seat.ErrReservationConflict):
		return http.StatusConflict, err.Error()

	case errors.Is(err, theater.ErrTheaterNameRequired),
		errors.Is(err, theater.ErrMovieIDRequired),
		errors.Is(err, theater.ErrInvalidPrice),
		errors.Is(err, theater.ErrInvalidCurrency),
		errors.Is(err, seat.ErrSeatNumberRequired),
		errors.Is(err, seat.ErrInvalidLayout),
		errors.Is(err, checkout.ErrUserIDRequired),
		errors.Is(err, checkout.ErrTheaterIDRequired),
		errors.Is(err, checkout.ErrSeatIDsRequired):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "内部サーバーエラー"
}

// rootMessage はラップされたエラーから最も内側のメッセージを返す
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
