package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
)

// TheaterRepository は上映回リポジトリのインメモリ実装
type TheaterRepository struct {
	store *Store
}

// NewTheaterRepository は TheaterRepository を作成する
func NewTheaterRepository(store *Store) *TheaterRepository {
	return &TheaterRepository{store: store}
}

func (r *TheaterRepository) Create(ctx context.Context, t *theater.Theater) error {
	return r.store.do(ctx, nil, func() error {
		t.ID = uuid.NewString()
		r.store.theaters[t.ID] = copyTheater(t)
		return nil
	})
}

func (r *TheaterRepository) GetByID(ctx context.Context, id string) (*theater.Theater, error) {
	var out *theater.Theater
	err := r.store.do(ctx, nil, func() error {
		t, ok := r.store.theaters[id]
		if !ok {
			return theater.ErrTheaterNotFound
		}
		out = copyTheater(t)
		return nil
	})
	return out, err
}

func (r *TheaterRepository) List(ctx context.Context, filter theater.ListFilter) ([]*theater.Theater, error) {
	var out []*theater.Theater
	err := r.store.do(ctx, nil, func() error {
		all := make([]*theater.Theater, 0, len(r.store.theaters))
		for _, t := range r.store.theaters {
			if filter.MovieID != "" && t.MovieID != filter.MovieID {
				continue
			}
			all = append(all, copyTheater(t))
		}
		sort.Slice(all, func(i, j int) bool { return all[i].StartsAt.After(all[j].StartsAt) })
		out = page(all, filter.Limit, filter.Offset)
		return nil
	})
	return out, err
}

func (r *TheaterRepository) Update(ctx context.Context, t *theater.Theater) error {
	return r.store.do(ctx, nil, func() error {
		cur, ok := r.store.theaters[t.ID]
		if !ok {
			return theater.ErrTheaterNotFound
		}
		if cur.Version != t.Version {
			return theater.ErrOptimisticLockConflict
		}
		t.Version++
		t.UpdatedAt = time.Now()
		r.store.theaters[t.ID] = copyTheater(t)
		return nil
	})
}

func (r *TheaterRepository) Delete(ctx context.Context, id string) error {
	return r.store.do(ctx, nil, func() error {
		if _, ok := r.store.theaters[id]; !ok {
			return theater.ErrTheaterNotFound
		}
		delete(r.store.theaters, id)
		for sid, s := range r.store.seats {
			if s.TheaterID == id {
				delete(r.store.seats, sid)
			}
		}
		return nil
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ theater.Repository = (*TheaterRepository)(nil)
