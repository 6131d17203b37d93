package handler

import (
	"context"

	"github.com/sanosuguru/book-my-seat/internal/application"
	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
)

// TheaterServiceInterface は上映回サービスのインターフェース
type TheaterServiceInterface interface {
	CreateTheater(ctx context.Context, input application.CreateTheaterInput) (*theater.Theater, error)
	GetTheater(ctx context.Context, id string) (*theater.Theater, error)
	ListTheaters(ctx context.Context, filter theater.ListFilter) ([]*theater.Theater, error)
	UpdateTheater(ctx context.Context, input application.UpdateTheaterInput) (*theater.Theater, error)
	DeleteTheater(ctx context.Context, id string) error
}

// SeatServiceInterface は座席サービスのインターフェース
type SeatServiceInterface interface {
	CreateSeat(ctx context.Context, input application.CreateSeatInput) (*seat.Seat, error)
	CreateSeatLayout(ctx context.Context, input application.CreateSeatLayoutInput) ([]*seat.Seat, error)
	ListSeats(ctx context.Context, theaterID string) ([]application.SeatView, error)
	CountAvailableSeats(ctx context.Context, theaterID string) (int, error)
}

// CheckoutServiceInterface はチェックアウトサービスのインターフェース
type CheckoutServiceInterface interface {
	StartCheckout(ctx context.Context, input application.StartCheckoutInput) (*application.CheckoutView, error)
	GetCheckout(ctx context.Context, id, userID string) (*application.CheckoutView, error)
	ConfirmPayment(ctx context.Context, input application.ConfirmPaymentInput) (*application.CheckoutView, error)
	CancelCheckout(ctx context.Context, id, userID string) (*application.CheckoutView, error)
	ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error)
}
