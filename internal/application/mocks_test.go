package application

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/checkout"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockTheaterRepository implements theater.Repository
type MockTheaterRepository struct {
	mock.Mock
}

func (m *MockTheaterRepository) Create(ctx context.Context, t *theater.Theater) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTheaterRepository) GetByID(ctx context.Context, id string) (*theater.Theater, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*theater.Theater), args.Error(1)
}

func (m *MockTheaterRepository) List(ctx context.Context, filter theater.ListFilter) ([]*theater.Theater, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*theater.Theater), args.Error(1)
}

func (m *MockTheaterRepository) Update(ctx context.Context, t *theater.Theater) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTheaterRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSeatRepository implements seat.Repository
type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) Create(ctx context.Context, s *seat.Seat) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSeatRepository) CreateBulk(ctx context.Context, seats []*seat.Seat) error {
	args := m.Called(ctx, seats)
	return args.Error(0)
}

func (m *MockSeatRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*seat.Seat, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) GetByTheaterID(ctx context.Context, theaterID string) ([]*seat.Seat, error) {
	args := m.Called(ctx, theaterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) CountAvailableByTheaterID(ctx context.Context, theaterID string, now time.Time) (int, error) {
	args := m.Called(ctx, theaterID, now)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatRepository) TryReserve(ctx context.Context, tx transaction.Tx, id, holder string, now, until time.Time) (bool, error) {
	args := m.Called(ctx, tx, id, holder, now, until)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeatRepository) Release(ctx context.Context, tx transaction.Tx, id string, now time.Time) error {
	args := m.Called(ctx, tx, id, now)
	return args.Error(0)
}

func (m *MockSeatRepository) ReleaseIfHeldBy(ctx context.Context, tx transaction.Tx, id, holder string, now time.Time) (bool, error) {
	args := m.Called(ctx, tx, id, holder, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeatRepository) ClearExpiredHold(ctx context.Context, tx transaction.Tx, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, tx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeatRepository) MarkBooked(ctx context.Context, tx transaction.Tx, ids []string, holder string, now time.Time) error {
	args := m.Called(ctx, tx, ids, holder, now)
	return args.Error(0)
}

// MockBookingRepository implements booking.Repository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByCheckoutID(ctx context.Context, tx transaction.Tx, checkoutID string) ([]*booking.Booking, error) {
	args := m.Called(ctx, tx, checkoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetExpiredPending(ctx context.Context, tx transaction.Tx, bookedBefore time.Time, limit int) ([]*booking.Booking, error) {
	args := m.Called(ctx, tx, bookedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) MarkPaid(ctx context.Context, tx transaction.Tx, ids []string, paymentID, paymentMethod string, paidAt time.Time) error {
	args := m.Called(ctx, tx, ids, paymentID, paymentMethod, paidAt)
	return args.Error(0)
}

func (m *MockBookingRepository) Delete(ctx context.Context, tx transaction.Tx, ids []string) (int, error) {
	args := m.Called(ctx, tx, ids)
	return args.Int(0), args.Error(1)
}

// MockCheckoutRepository implements checkout.Repository
type MockCheckoutRepository struct {
	mock.Mock
}

func (m *MockCheckoutRepository) Create(ctx context.Context, tx transaction.Tx, c *checkout.Checkout) error {
	args := m.Called(ctx, tx, c)
	return args.Error(0)
}

func (m *MockCheckoutRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*checkout.Checkout, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Checkout), args.Error(1)
}

func (m *MockCheckoutRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*checkout.Checkout, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Checkout), args.Error(1)
}

func (m *MockCheckoutRepository) UpdateState(ctx context.Context, tx transaction.Tx, id string, from, to checkout.State, paymentID *string, now time.Time) error {
	args := m.Called(ctx, tx, id, from, to, paymentID, now)
	return args.Error(0)
}

// MockSeatCache implements AvailabilityCache
type MockSeatCache struct {
	mock.Mock
}

func (m *MockSeatCache) GetAvailableCount(ctx context.Context, theaterID string) (int, error) {
	args := m.Called(ctx, theaterID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatCache) SetAvailableCount(ctx context.Context, theaterID string, count int, ttl time.Duration) error {
	args := m.Called(ctx, theaterID, count, ttl)
	return args.Error(0)
}

func (m *MockSeatCache) Invalidate(ctx context.Context, theaterID string) error {
	args := m.Called(ctx, theaterID)
	return args.Error(0)
}

// recordingNotifier は送信されたイベントを記録する Notifier
type recordingNotifier struct {
	mu     sync.Mutex
	events []booking.ConfirmedEvent
	err    error
}

func (n *recordingNotifier) NotifyBookingConfirmed(_ context.Context, ev booking.ConfirmedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) Events() []booking.ConfirmedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]booking.ConfirmedEvent(nil), n.events...)
}

// stubLocker は常に同じ結果を返す SeatLocker
type stubLocker struct {
	err      error
	released int
	mu       sync.Mutex
}

func (l *stubLocker) LockSeats(context.Context, string, []string) (func(context.Context), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}
