package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/checkout"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"HTTPError はそのまま", echo.NewHTTPError(http.StatusUnauthorized, "認証が必要です"), http.StatusUnauthorized},
		{"チェックアウト期限切れ", checkout.ErrCheckoutExpired, http.StatusGone},
		{"予約期限切れ", fmt.Errorf("確定: %w", booking.ErrBookingExpired), http.StatusGone},
		{"座席を確保できない", checkout.NewError("仮押さえ", checkout.ErrSeatsUnavailable, nil), http.StatusConflict},
		{"上映回なし", fmt.Errorf("上映回取得に失敗: %w", theater.ErrTheaterNotFound), http.StatusNotFound},
		{"座席なし", seat.ErrSeatNotFound, http.StatusNotFound},
		{"チェックアウトなし", checkout.ErrCheckoutNotFound, http.StatusNotFound},
		{"支払い情報の不一致", checkout.ErrPaymentMismatch, http.StatusConflict},
		{"支払い済み", checkout.ErrCheckoutAlreadyPaid, http.StatusConflict},
		{"楽観的ロック", theater.ErrOptimisticLockConflict, http.StatusConflict},
		{"座席番号の重複", seat.ErrSeatNumberDuplicate, http.StatusConflict},
		{"座席配置が不正", seat.ErrInvalidLayout, http.StatusBadRequest},
		{"劇場名なし", theater.ErrTheaterNameRequired, http.StatusBadRequest},
		{"未知のエラー", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := StatusFor(tt.err)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, msg)
		})
	}

	t.Run("期限切れは座席の競合より優先される", func(t *testing.T) {
		err := checkout.NewError("支払い確定", checkout.ErrCheckoutExpired, []checkout.SeatFailure{
			checkout.NewSeatFailure("s1", "A1", seat.ErrSeatAlreadyReserved),
		})
		code, _ := StatusFor(err)
		assert.Equal(t, http.StatusGone, code)
	})

	t.Run("404は最も内側のメッセージを返す", func(t *testing.T) {
		_, msg := StatusFor(fmt.Errorf("上映回取得に失敗: %w", theater.ErrTheaterNotFound))
		assert.Equal(t, theater.ErrTheaterNotFound.Error(), msg)
	})

	t.Run("500は内部の詳細を隠す", func(t *testing.T) {
		_, msg := StatusFor(errors.New("pq: connection refused"))
		assert.Equal(t, "内部サーバーエラー", msg)
	})
}

func TestCustomHTTPErrorHandler(t *testing.T) {
	t.Run("座席ごとの失敗理由を返す", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := checkout.NewError("座席の仮押さえ", checkout.ErrSeatsUnavailable, []checkout.SeatFailure{
			checkout.NewSeatFailure("s1", "A1", seat.ErrSeatAlreadyBooked),
			checkout.NewSeatFailure("s2", "A2", seat.ErrSeatAlreadyReserved),
			checkout.NewSeatFailure("s9", "", seat.ErrSeatNotFound),
		})
		CustomHTTPErrorHandler(err, c)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusConflict, resp.Code)
		require.Len(t, resp.Failures, 3)
		assert.Equal(t, "already_booked", resp.Failures[0].Reason)
		assert.Equal(t, "already_reserved", resp.Failures[1].Reason)
		assert.Equal(t, "not_found", resp.Failures[2].Reason)
		assert.Empty(t, resp.Failures[2].SeatNumber)
	})

	t.Run("失敗座席がなければ failures を省略する", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		CustomHTTPErrorHandler(checkout.ErrCheckoutNotFound, c)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, rec.Body.String(), "failures")
	})

	t.Run("送信済みのレスポンスには書き込まない", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, c.String(http.StatusOK, "done"))

		CustomHTTPErrorHandler(errors.New("late"), c)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "done", rec.Body.String())
	})
}

func TestValidator(t *testing.T) {
	type req struct {
		Name     string `json:"name" validate:"required"`
		Currency string `json:"currency" validate:"currency"`
	}
	v := NewValidator()

	assert.NoError(t, v.Validate(&req{Name: "x", Currency: "INR"}))
	assert.NoError(t, v.Validate(&req{Name: "x"}))

	err := v.Validate(&req{Currency: "in"})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Contains(t, he.Message, "name は必須です")
}
