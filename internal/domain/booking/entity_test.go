package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookedAt = time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)

func TestNewPendingBooking(t *testing.T) {
	b := NewPendingBooking("checkout-1", "user-1", "seat-1", "theater-1", "movie-1", 25000, "INR", bookedAt)

	assert.Equal(t, StatusPending, b.PaymentStatus)
	assert.Equal(t, bookedAt, b.BookedAt)
	assert.Equal(t, int64(25000), b.Amount)
	assert.Nil(t, b.PaymentID)
	assert.Nil(t, b.PaymentDate)
	require.NoError(t, b.Validate())
}

func TestBooking_IsExpiredAt(t *testing.T) {
	b := NewPendingBooking("checkout-1", "user-1", "seat-1", "theater-1", "movie-1", 25000, "INR", bookedAt)

	tests := []struct {
		name     string
		elapsed  time.Duration
		expected bool
	}{
		{"4分59秒後は有効", 4*time.Minute + 59*time.Second, false},
		{"5分ちょうどは有効", 5 * time.Minute, false},
		{"5分01秒後は期限切れ", 5*time.Minute + time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, b.IsExpiredAt(bookedAt.Add(tt.elapsed), DefaultHoldDuration))
		})
	}

	t.Run("支払い済みは期限切れにならない", func(t *testing.T) {
		paid := *b
		paid.PaymentStatus = StatusPaid
		assert.False(t, paid.IsExpiredAt(bookedAt.Add(time.Hour), DefaultHoldDuration))
	})
}

func TestBooking_MarkPaid(t *testing.T) {
	t.Run("支払い待ちを支払い済みにできる", func(t *testing.T) {
		b := NewPendingBooking("checkout-1", "user-1", "seat-1", "theater-1", "movie-1", 25000, "INR", bookedAt)
		paidAt := bookedAt.Add(time.Minute)

		err := b.MarkPaid("pay_123", "card", paidAt)

		require.NoError(t, err)
		assert.Equal(t, StatusPaid, b.PaymentStatus)
		assert.Equal(t, "pay_123", *b.PaymentID)
		assert.Equal(t, "card", *b.PaymentMethod)
		assert.Equal(t, paidAt, *b.PaymentDate)
	})

	t.Run("支払い済みは再度支払えない", func(t *testing.T) {
		b := &Booking{PaymentStatus: StatusPaid}

		err := b.MarkPaid("pay_456", "upi", bookedAt)

		assert.ErrorIs(t, err, ErrBookingNotPending)
	})
}

func TestBooking_Validate(t *testing.T) {
	tests := []struct {
		name        string
		booking     *Booking
		expectedErr error
	}{
		{"ユーザーID未指定", &Booking{SeatID: "seat-1", TheaterID: "theater-1"}, ErrUserIDRequired},
		{"座席ID未指定", &Booking{UserID: "user-1", TheaterID: "theater-1"}, ErrSeatIDRequired},
		{"上映回ID未指定", &Booking{UserID: "user-1", SeatID: "seat-1"}, ErrTheaterIDRequired},
		{"金額が負", &Booking{UserID: "user-1", SeatID: "seat-1", TheaterID: "theater-1", Amount: -1}, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.booking.Validate(), tt.expectedErr)
		})
	}
}

func TestAggregates(t *testing.T) {
	bookings := []*Booking{
		{ID: "b1", SeatID: "s1", Amount: 25000},
		{ID: "b2", SeatID: "s2", Amount: 30000},
	}

	assert.Equal(t, []string{"b1", "b2"}, IDs(bookings))
	assert.Equal(t, []string{"s1", "s2"}, SeatIDs(bookings))
	assert.Equal(t, int64(55000), TotalAmount(bookings))
}
