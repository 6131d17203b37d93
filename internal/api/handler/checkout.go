package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/book-my-seat/internal/api/middleware"
	"github.com/sanosuguru/book-my-seat/internal/application"
	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
)

type CheckoutHandler struct {
	service CheckoutServiceInterface
}

func NewCheckoutHandler(s CheckoutServiceInterface) *CheckoutHandler {
	return &CheckoutHandler{service: s}
}

type StartCheckoutRequest struct {
	SeatIDs        []string `json:"seat_ids" validate:"required,min=1,max=10,dive,required" example:"seat-A1,seat-A2"`
	IdempotencyKey string   `json:"idempotency_key" validate:"max=128" example:"order-2026-001"`
}

type ConfirmPaymentRequest struct {
	PaymentID     string   `json:"payment_id" validate:"required,max=128" example:"pay_Nx81"`
	PaymentMethod string   `json:"payment_method" validate:"required,max=32" example:"upi"`
	BookingIDs    []string `json:"booking_ids"`
}

type CheckoutResponse struct {
	ID          string            `json:"id"`
	TheaterID   string            `json:"theater_id"`
	TheaterName string            `json:"theater_name,omitempty"`
	MovieTitle  string            `json:"movie_title,omitempty"`
	State       string            `json:"state"`
	SeatIDs     []string          `json:"seat_ids"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	ExpiresAt   time.Time         `json:"expires_at"`
	PaymentID   *string           `json:"payment_id,omitempty"`
	Bookings    []BookingResponse `json:"bookings"`
}

type BookingResponse struct {
	ID            string     `json:"id"`
	CheckoutID    string     `json:"checkout_id"`
	SeatID        string     `json:"seat_id"`
	SeatNumber    string     `json:"seat_number"`
	TheaterID     string     `json:"theater_id"`
	MovieID       string     `json:"movie_id"`
	PaymentStatus string     `json:"payment_status"`
	PaymentID     *string    `json:"payment_id,omitempty"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	BookedAt      time.Time  `json:"booked_at"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		CheckoutID:    b.CheckoutID,
		SeatID:        b.SeatID,
		SeatNumber:    b.SeatNumber,
		TheaterID:     b.TheaterID,
		MovieID:       b.MovieID,
		PaymentStatus: string(b.PaymentStatus),
		PaymentID:     b.PaymentID,
		PaymentMethod: b.PaymentMethod,
		Amount:        b.Amount,
		Currency:      b.Currency,
		BookedAt:      b.BookedAt,
		PaymentDate:   b.PaymentDate,
	}
}

func toCheckoutResponse(v *application.CheckoutView) CheckoutResponse {
	co := v.Checkout
	resp := CheckoutResponse{
		ID:        co.ID,
		TheaterID: co.TheaterID,
		State:     string(co.State),
		SeatIDs:   co.SeatIDs,
		Amount:    co.Amount,
		Currency:  co.Currency,
		ExpiresAt: co.ExpiresAt,
		PaymentID: co.PaymentID,
		Bookings:  make([]BookingResponse, len(v.Bookings)),
	}
	if v.Theater != nil {
		resp.TheaterName = v.Theater.Name
		resp.MovieTitle = v.Theater.MovieTitle
	}
	for i, b := range v.Bookings {
		resp.Bookings[i] = toBookingResponse(b)
	}
	return resp
}

// Start godoc
// @Summary チェックアウトを開始
// @Description 選択した全座席を5分間仮押さえし、支払い待ちの予約を作成します。1席でも確保できなければ何も確保しません
// @Tags checkouts
// @Accept json
// @Produce json
// @Param X-User-ID header string false "ユーザーID（JWT未使用時）"
// @Param Idempotency-Key header string false "再送識別キー"
// @Param theater_id path string true "上映回ID"
// @Param request body StartCheckoutRequest true "座席"
// @Success 201 {object} CheckoutResponse
// @Failure 409 {object} api.ErrorResponse "確保できなかった座席と理由"
// @Router /theaters/{theater_id}/checkouts [post]
func (h *CheckoutHandler) Start(c echo.Context) error {
	var req StartCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	key := req.IdempotencyKey
	if key == "" {
		key = c.Request().Header.Get(middleware.HeaderIdempotencyKey)
	}

	view, err := h.service.StartCheckout(c.Request().Context(), application.StartCheckoutInput{
		TheaterID:      c.Param("theater_id"),
		UserID:         middleware.UserIDFrom(c),
		SeatIDs:        req.SeatIDs,
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCheckoutResponse(view))
}

// GetByID godoc
// @Summary チェックアウトを取得
// @Description 支払い期限を過ぎていれば、その場で期限切れにしてから返します
// @Tags checkouts
// @Produce json
// @Param id path string true "チェックアウトID"
// @Success 200 {object} CheckoutResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /checkouts/{id} [get]
func (h *CheckoutHandler) GetByID(c echo.Context) error {
	view, err := h.service.GetCheckout(c.Request().Context(), c.Param("id"), middleware.UserIDFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCheckoutResponse(view))
}

// ConfirmPayment godoc
// @Summary 支払いを確定
// @Tags checkouts
// @Accept json
// @Produce json
// @Param id path string true "チェックアウトID"
// @Param request body ConfirmPaymentRequest true "決済結果"
// @Success 200 {object} CheckoutResponse
// @Failure 409 {object} api.ErrorResponse "支払い情報の不一致"
// @Failure 410 {object} api.ErrorResponse "支払い期限切れ"
// @Router /checkouts/{id}/payment [post]
func (h *CheckoutHandler) ConfirmPayment(c echo.Context) error {
	var req ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := h.service.ConfirmPayment(c.Request().Context(), application.ConfirmPaymentInput{
		CheckoutID:    c.Param("id"),
		UserID:        middleware.UserIDFrom(c),
		PaymentID:     req.PaymentID,
		PaymentMethod: req.PaymentMethod,
		BookingIDs:    req.BookingIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCheckoutResponse(view))
}

// Cancel godoc
// @Summary チェックアウトをキャンセル
// @Description 利用者のキャンセルまたは決済失敗の通知で座席を解放します
// @Tags checkouts
// @Produce json
// @Param id path string true "チェックアウトID"
// @Success 200 {object} CheckoutResponse
// @Failure 409 {object} api.ErrorResponse "支払い済み"
// @Router /checkouts/{id}/cancel [post]
func (h *CheckoutHandler) Cancel(c echo.Context) error {
	view, err := h.service.CancelCheckout(c.Request().Context(), c.Param("id"), middleware.UserIDFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCheckoutResponse(view))
}
