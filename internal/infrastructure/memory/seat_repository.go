package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

// SeatRepository は座席リポジトリのインメモリ実装
type SeatRepository struct {
	store *Store
}

// NewSeatRepository は SeatRepository を作成する
func NewSeatRepository(store *Store) *SeatRepository {
	return &SeatRepository{store: store}
}

func (r *SeatRepository) Create(ctx context.Context, s *seat.Seat) error {
	return r.CreateBulk(ctx, []*seat.Seat{s})
}

func (r *SeatRepository) CreateBulk(ctx context.Context, seats []*seat.Seat) error {
	return r.store.do(ctx, nil, func() error {
		for _, s := range seats {
			if r.numberTaken(s.TheaterID, s.SeatNumber) {
				return seat.ErrSeatNumberDuplicate
			}
			s.ID = uuid.NewString()
			r.store.seats[s.ID] = copySeat(s)
		}
		return nil
	})
}

func (r *SeatRepository) numberTaken(theaterID, number string) bool {
	for _, s := range r.store.seats {
		if s.TheaterID == theaterID && s.SeatNumber == number {
			return true
		}
	}
	return false
}

func (r *SeatRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*seat.Seat, error) {
	var out *seat.Seat
	err := r.store.do(ctx, tx, func() error {
		s, ok := r.store.seats[id]
		if !ok {
			return seat.ErrSeatNotFound
		}
		out = copySeat(s)
		return nil
	})
	return out, err
}

func (r *SeatRepository) GetByTheaterID(ctx context.Context, theaterID string) ([]*seat.Seat, error) {
	var out []*seat.Seat
	err := r.store.do(ctx, nil, func() error {
		out = make([]*seat.Seat, 0)
		for _, s := range r.store.seats {
			if s.TheaterID == theaterID {
				out = append(out, copySeat(s))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
		return nil
	})
	return out, err
}

func (r *SeatRepository) CountAvailableByTheaterID(ctx context.Context, theaterID string, now time.Time) (int, error) {
	var count int
	err := r.store.do(ctx, nil, func() error {
		for _, s := range r.store.seats {
			if s.TheaterID == theaterID && s.IsAvailableAt(now) {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *SeatRepository) TryReserve(ctx context.Context, tx transaction.Tx, id, holder string, now, until time.Time) (bool, error) {
	var reserved bool
	err := r.store.do(ctx, tx, func() error {
		s, ok := r.store.seats[id]
		if !ok {
			return nil
		}
		reserved = s.Reserve(holder, now, until) == nil
		return nil
	})
	return reserved, err
}

func (r *SeatRepository) Release(ctx context.Context, tx transaction.Tx, id string, now time.Time) error {
	return r.store.do(ctx, tx, func() error {
		if s, ok := r.store.seats[id]; ok {
			s.Release(now)
		}
		return nil
	})
}

func (r *SeatRepository) ReleaseIfHeldBy(ctx context.Context, tx transaction.Tx, id, holder string, now time.Time) (bool, error) {
	var released bool
	err := r.store.do(ctx, tx, func() error {
		s, ok := r.store.seats[id]
		if !ok || s.ReservedBy == nil || *s.ReservedBy != holder {
			return nil
		}
		s.Release(now)
		released = true
		return nil
	})
	return released, err
}

func (r *SeatRepository) ClearExpiredHold(ctx context.Context, tx transaction.Tx, id string, now time.Time) (bool, error) {
	var cleared bool
	err := r.store.do(ctx, tx, func() error {
		if s, ok := r.store.seats[id]; ok {
			cleared = s.ClearExpiredHold(now)
		}
		return nil
	})
	return cleared, err
}

func (r *SeatRepository) MarkBooked(ctx context.Context, tx transaction.Tx, ids []string, holder string, now time.Time) error {
	return r.store.do(ctx, tx, func() error {
		// 全席を検証してから書き込む
		for _, id := range ids {
			s, ok := r.store.seats[id]
			if !ok {
				return seat.ErrSeatNotFound
			}
			probe := copySeat(s)
			if err := probe.MarkBooked(holder, now); err != nil {
				return err
			}
		}
		for _, id := range ids {
			_ = r.store.seats[id].MarkBooked(holder, now)
		}
		return nil
	})
}

var _ seat.Repository = (*SeatRepository)(nil)
