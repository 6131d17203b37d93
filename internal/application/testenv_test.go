package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
	"github.com/sanosuguru/book-my-seat/internal/infrastructure/memory"
	"github.com/sanosuguru/book-my-seat/internal/pkg/clock"
)

var testStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// testEnv はインメモリストアと手動時計で組み立てたサービス一式
type testEnv struct {
	clock        *clock.Fake
	seatRepo     *memory.SeatRepository
	bookingRepo  *memory.BookingRepository
	checkoutRepo *memory.CheckoutRepository
	reservations *ReservationManager
	ledger       *BookingLedger
	theaters     *TheaterService
	seats        *SeatService
	checkouts    *CheckoutService
}

func newTestEnv(t *testing.T, opts ...CheckoutOption) *testEnv {
	t.Helper()
	store := memory.NewStore()
	tm := memory.NewTxManager(store)
	fake := clock.NewFake(testStart)
	cfg := config.DefaultCheckoutConfig()

	theaterRepo := memory.NewTheaterRepository(store)
	seatRepo := memory.NewSeatRepository(store)
	bookingRepo := memory.NewBookingRepository(store)
	checkoutRepo := memory.NewCheckoutRepository(store)

	rm := NewReservationManager(seatRepo, cfg.HoldDuration, fake)
	ledger := NewBookingLedger(tm, bookingRepo, seatRepo, checkoutRepo, cfg.HoldDuration, fake)
	opts = append([]CheckoutOption{WithClock(fake)}, opts...)

	env := &testEnv{
		clock:        fake,
		seatRepo:     seatRepo,
		bookingRepo:  bookingRepo,
		checkoutRepo: checkoutRepo,
		reservations: rm,
		ledger:       ledger,
		theaters:     NewTheaterService(theaterRepo, cfg),
		seats:        NewSeatService(seatRepo, theaterRepo, nil, fake),
		checkouts: NewCheckoutService(tm, CheckoutRepositories{
			Theaters:  theaterRepo,
			Seats:     seatRepo,
			Checkouts: checkoutRepo,
			Bookings:  bookingRepo,
		}, rm, ledger, cfg, opts...),
	}
	t.Cleanup(env.checkouts.WaitNotifications)
	return env
}

// newShow は1行 perRow 席の上映回を作成する
func (e *testEnv) newShow(t *testing.T, perRow int) (*theater.Theater, []*seat.Seat) {
	t.Helper()
	ctx := context.Background()
	th, err := e.theaters.CreateTheater(ctx, CreateTheaterInput{
		Name:       "Screen 1",
		MovieID:    "movie-1",
		MovieTitle: "Interstellar",
		StartsAt:   testStart.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	seats, err := e.seats.CreateSeatLayout(ctx, CreateSeatLayoutInput{TheaterID: th.ID, Rows: 1, PerRow: perRow})
	require.NoError(t, err)
	return th, seats
}

func (e *testEnv) seatByID(t *testing.T, id string) *seat.Seat {
	t.Helper()
	s, err := e.seatRepo.GetByID(context.Background(), nil, id)
	require.NoError(t, err)
	return s
}

func (e *testEnv) userBookings(t *testing.T, userID string) []*booking.Booking {
	t.Helper()
	bs, err := e.bookingRepo.GetByUserID(context.Background(), userID, 100, 0)
	require.NoError(t, err)
	return bs
}

// assertNoBookedSeatHeld は購入済みかつ有効な仮押さえ中の座席がないことを確認する
func (e *testEnv) assertNoBookedSeatHeld(t *testing.T, theaterID string) {
	t.Helper()
	seats, err := e.seatRepo.GetByTheaterID(context.Background(), theaterID)
	require.NoError(t, err)
	now := e.clock.Now()
	for _, s := range seats {
		if s.IsBooked && s.HasActiveHold(now) {
			t.Fatalf("座席 %s が購入済みかつ仮押さえ中です", s.SeatNumber)
		}
	}
}

func idsOf(seats ...*seat.Seat) []string {
	ids := make([]string, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	return ids
}
