package handler

import (
	"github.com/labstack/echo/v4"
)

// Handlers はルーティングに登録するハンドラー一式
type Handlers struct {
	Theater  *TheaterHandler
	Seat     *SeatHandler
	Checkout *CheckoutHandler
	Booking  *BookingHandler
	Health   *HealthHandler
}

// RegisterRoutes は /api/v1 配下にルートを登録する
// identity は利用者の識別が必要なルートにだけ適用する
func RegisterRoutes(e *echo.Echo, h Handlers, identity echo.MiddlewareFunc) *echo.Group {
	v1 := e.Group("/api/v1")
	v1.GET("/health", h.Health.Check)

	v1.GET("/theaters", h.Theater.List)
	v1.POST("/theaters", h.Theater.Create)
	v1.GET("/theaters/:id", h.Theater.GetByID)
	v1.PUT("/theaters/:id", h.Theater.Update)
	v1.DELETE("/theaters/:id", h.Theater.Delete)

	v1.GET("/theaters/:theater_id/seats", h.Seat.ListByTheater)
	v1.POST("/theaters/:theater_id/seats", h.Seat.Create)
	v1.POST("/theaters/:theater_id/seats/bulk", h.Seat.CreateBulk)
	v1.GET("/theaters/:theater_id/seats/available/count", h.Seat.CountAvailable)

	v1.POST("/theaters/:theater_id/checkouts", h.Checkout.Start, identity)
	v1.GET("/checkouts/:id", h.Checkout.GetByID, identity)
	v1.POST("/checkouts/:id/payment", h.Checkout.ConfirmPayment, identity)
	v1.POST("/checkouts/:id/cancel", h.Checkout.Cancel, identity)
	v1.GET("/bookings", h.Booking.ListMine, identity)

	return v1
}
