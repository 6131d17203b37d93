package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/book-my-seat/internal/api/middleware"
)

type BookingHandler struct {
	service CheckoutServiceInterface
}

func NewBookingHandler(s CheckoutServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

// ListMine godoc
// @Summary 自分の予約一覧を取得
// @Tags bookings
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /bookings [get]
func (h *BookingHandler) ListMine(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	bookings, err := h.service.ListUserBookings(c.Request().Context(), middleware.UserIDFrom(c), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}
