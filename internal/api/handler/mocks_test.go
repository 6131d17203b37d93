package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/book-my-seat/internal/api/middleware"
	"github.com/sanosuguru/book-my-seat/internal/application"
	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
)

// MockTheaterService はTheaterServiceInterfaceのモック
type MockTheaterService struct {
	mock.Mock
}

func (m *MockTheaterService) CreateTheater(ctx context.Context, input application.CreateTheaterInput) (*theater.Theater, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*theater.Theater), args.Error(1)
}

func (m *MockTheaterService) GetTheater(ctx context.Context, id string) (*theater.Theater, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*theater.Theater), args.Error(1)
}

func (m *MockTheaterService) ListTheaters(ctx context.Context, filter theater.ListFilter) ([]*theater.Theater, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*theater.Theater), args.Error(1)
}

func (m *MockTheaterService) UpdateTheater(ctx context.Context, input application.UpdateTheaterInput) (*theater.Theater, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*theater.Theater), args.Error(1)
}

func (m *MockTheaterService) DeleteTheater(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSeatService はSeatServiceInterfaceのモック
type MockSeatService struct {
	mock.Mock
}

func (m *MockSeatService) CreateSeat(ctx context.Context, input application.CreateSeatInput) (*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Seat), args.Error(1)
}

func (m *MockSeatService) CreateSeatLayout(ctx context.Context, input application.CreateSeatLayoutInput) ([]*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatService) ListSeats(ctx context.Context, theaterID string) ([]application.SeatView, error) {
	args := m.Called(ctx, theaterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]application.SeatView), args.Error(1)
}

func (m *MockSeatService) CountAvailableSeats(ctx context.Context, theaterID string) (int, error) {
	args := m.Called(ctx, theaterID)
	return args.Int(0), args.Error(1)
}

// MockCheckoutService はCheckoutServiceInterfaceのモック
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) StartCheckout(ctx context.Context, input application.StartCheckoutInput) (*application.CheckoutView, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CheckoutView), args.Error(1)
}

func (m *MockCheckoutService) GetCheckout(ctx context.Context, id, userID string) (*application.CheckoutView, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CheckoutView), args.Error(1)
}

func (m *MockCheckoutService) ConfirmPayment(ctx context.Context, input application.ConfirmPaymentInput) (*application.CheckoutView, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CheckoutView), args.Error(1)
}

func (m *MockCheckoutService) CancelCheckout(ctx context.Context, id, userID string) (*application.CheckoutView, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CheckoutView), args.Error(1)
}

func (m *MockCheckoutService) ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

type testServer struct {
	echo      *echo.Echo
	theaters  *MockTheaterService
	seats     *MockSeatService
	checkouts *MockCheckoutService
}

// newTestServer はモックサービスでルートを登録した Echo を返す
// 利用者は X-User-ID ヘッダーで識別する
func newTestServer() *testServer {
	s := &testServer{
		echo:      NewTestEcho(),
		theaters:  new(MockTheaterService),
		seats:     new(MockSeatService),
		checkouts: new(MockCheckoutService),
	}
	RegisterRoutes(s.echo, Handlers{
		Theater:  NewTheaterHandler(s.theaters),
		Seat:     NewSeatHandler(s.seats),
		Checkout: NewCheckoutHandler(s.checkouts),
		Booking:  NewBookingHandler(s.checkouts),
		Health:   NewHealthHandler(nil),
	}, middleware.Identity(""))
	return s
}
