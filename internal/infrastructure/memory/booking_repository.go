package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

// BookingRepository は予約リポジトリのインメモリ実装
type BookingRepository struct {
	store *Store
}

// NewBookingRepository は BookingRepository を作成する
func NewBookingRepository(store *Store) *BookingRepository {
	return &BookingRepository{store: store}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	return r.store.do(ctx, tx, func() error {
		// seat_id の一意制約
		for _, existing := range r.store.bookings {
			if existing.SeatID == b.SeatID {
				return booking.ErrSeatAlreadyHasBooking
			}
		}
		b.ID = uuid.NewString()
		r.store.bookings[b.ID] = copyBooking(b)
		return nil
	})
}

// withSeatNumber は座席番号を補完したコピーを返す
func (r *BookingRepository) withSeatNumber(b *booking.Booking) *booking.Booking {
	c := copyBooking(b)
	if s, ok := r.store.seats[b.SeatID]; ok {
		c.SeatNumber = s.SeatNumber
	}
	return c
}

func (r *BookingRepository) GetByCheckoutID(ctx context.Context, tx transaction.Tx, checkoutID string) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := r.store.do(ctx, tx, func() error {
		out = r.filter(func(b *booking.Booking) bool { return b.CheckoutID == checkoutID })
		sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
		return nil
	})
	return out, err
}

func (r *BookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := r.store.do(ctx, nil, func() error {
		all := r.filter(func(b *booking.Booking) bool { return b.UserID == userID })
		sort.Slice(all, func(i, j int) bool { return all[i].BookedAt.After(all[j].BookedAt) })
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

func (r *BookingRepository) GetExpiredPending(ctx context.Context, tx transaction.Tx, bookedBefore time.Time, limit int) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := r.store.do(ctx, tx, func() error {
		all := r.filter(func(b *booking.Booking) bool {
			return b.IsPending() && b.BookedAt.Before(bookedBefore)
		})
		sort.Slice(all, func(i, j int) bool { return all[i].BookedAt.Before(all[j].BookedAt) })
		out = page(all, limit, 0)
		return nil
	})
	return out, err
}

func (r *BookingRepository) filter(pred func(*booking.Booking) bool) []*booking.Booking {
	out := make([]*booking.Booking, 0)
	for _, b := range r.store.bookings {
		if pred(b) {
			out = append(out, r.withSeatNumber(b))
		}
	}
	return out
}

func (r *BookingRepository) MarkPaid(ctx context.Context, tx transaction.Tx, ids []string, paymentID, paymentMethod string, paidAt time.Time) error {
	return r.store.do(ctx, tx, func() error {
		for _, id := range ids {
			b, ok := r.store.bookings[id]
			if !ok {
				return booking.ErrBookingNotFound
			}
			if !b.IsPending() {
				return booking.ErrBookingNotPending
			}
		}
		for _, id := range ids {
			_ = r.store.bookings[id].MarkPaid(paymentID, paymentMethod, paidAt)
		}
		return nil
	})
}

func (r *BookingRepository) Delete(ctx context.Context, tx transaction.Tx, ids []string) (int, error) {
	var deleted int
	err := r.store.do(ctx, tx, func() error {
		for _, id := range ids {
			if _, ok := r.store.bookings[id]; ok {
				delete(r.store.bookings, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

var _ booking.Repository = (*BookingRepository)(nil)
