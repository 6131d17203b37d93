package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
)

func TestTheaterService_CreateTheater(t *testing.T) {
	ctx := context.Background()
	startsAt := testStart.Add(48 * time.Hour)

	t.Run("正常系: 価格未指定ならデフォルト価格を使う", func(t *testing.T) {
		repo := new(MockTheaterRepository)
		svc := NewTheaterService(repo, config.DefaultCheckoutConfig())
		repo.On("Create", ctx, mock.AnythingOfType("*theater.Theater")).Return(nil)

		th, err := svc.CreateTheater(ctx, CreateTheaterInput{Name: "Screen 1", MovieID: "movie-1", MovieTitle: "Dune", StartsAt: startsAt})
		require.NoError(t, err)
		assert.Equal(t, int64(25000), th.Price)
		assert.Equal(t, "INR", th.Currency)
		repo.AssertExpectations(t)
	})

	t.Run("正常系: 上映回の価格が優先される", func(t *testing.T) {
		repo := new(MockTheaterRepository)
		svc := NewTheaterService(repo, config.DefaultCheckoutConfig())
		repo.On("Create", ctx, mock.Anything).Return(nil)

		th, err := svc.CreateTheater(ctx, CreateTheaterInput{Name: "IMAX", MovieID: "movie-1", StartsAt: startsAt, Price: 45000, Currency: "USD"})
		require.NoError(t, err)
		assert.Equal(t, int64(45000), th.Price)
		assert.Equal(t, "USD", th.Currency)
	})

	t.Run("異常系: 劇場名が空", func(t *testing.T) {
		repo := new(MockTheaterRepository)
		svc := NewTheaterService(repo, config.DefaultCheckoutConfig())

		_, err := svc.CreateTheater(ctx, CreateTheaterInput{MovieID: "movie-1", StartsAt: startsAt})
		assert.ErrorIs(t, err, theater.ErrTheaterNameRequired)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("異常系: 価格が負", func(t *testing.T) {
		repo := new(MockTheaterRepository)
		svc := NewTheaterService(repo, config.DefaultCheckoutConfig())

		_, err := svc.CreateTheater(ctx, CreateTheaterInput{Name: "Screen 1", MovieID: "movie-1", StartsAt: startsAt, Price: -1})
		assert.ErrorIs(t, err, theater.ErrInvalidPrice)
	})
}

func TestTheaterService_ListTheaters(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{"デフォルト", 0, 0, 20, 0},
		{"上限を超える", 500, 10, 100, 10},
		{"負のオフセット", 5, -3, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockTheaterRepository)
			svc := NewTheaterService(repo, config.DefaultCheckoutConfig())
			want := theater.ListFilter{Limit: tt.wantLimit, Offset: tt.wantOffset}
			repo.On("List", ctx, want).Return([]*theater.Theater{}, nil)

			_, err := svc.ListTheaters(ctx, theater.ListFilter{Limit: tt.limit, Offset: tt.offset})
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestTheaterService_ListTheatersByMovie(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTheaterRepository)
	svc := NewTheaterService(repo, config.DefaultCheckoutConfig())
	repo.On("List", ctx, theater.ListFilter{MovieID: "movie-1", Limit: 20}).
		Return([]*theater.Theater{{ID: "theater-1", MovieID: "movie-1"}}, nil)

	got, err := svc.ListTheaters(ctx, theater.ListFilter{MovieID: "movie-1"})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "movie-1", got[0].MovieID)
	repo.AssertExpectations(t)
}

func TestTheaterService_UpdateTheater(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系", func(t *testing.T) {
		repo := new(MockTheaterRepository)
		svc := NewTheaterService(repo, config.DefaultCheckoutConfig())
		current := &theater.Theater{ID: "theater-1", Name: "Old", MovieID: "movie-1", Price: 25000, Currency: "INR", Version: 3}
		repo.On("GetByID", ctx, "theater-1").Return(current, nil)
		repo.On("Update", ctx, current).Return(nil)

		th, err := svc.UpdateTheater(ctx, UpdateTheaterInput{ID: "theater-1", Name: "New", MovieID: "movie-2", Price: 30000})
		require.NoError(t, err)
		assert.Equal(t, "New", th.Name)
		assert.Equal(t, "INR", th.Currency)
		assert.Equal(t, int64(30000), th.Price)
	})

	t.Run("異常系: 楽観的ロックの競合", func(t *testing.T) {
		repo := new(MockTheaterRepository)
		svc := NewTheaterService(repo, config.DefaultCheckoutConfig())
		current := &theater.Theater{ID: "theater-1", Name: "Old", MovieID: "movie-1", Currency: "INR"}
		repo.On("GetByID", ctx, "theater-1").Return(current, nil)
		repo.On("Update", ctx, current).Return(theater.ErrOptimisticLockConflict)

		_, err := svc.UpdateTheater(ctx, UpdateTheaterInput{ID: "theater-1", Name: "New", MovieID: "movie-1"})
		assert.ErrorIs(t, err, theater.ErrOptimisticLockConflict)
	})

	t.Run("異常系: 存在しない", func(t *testing.T) {
		repo := new(MockTheaterRepository)
		svc := NewTheaterService(repo, config.DefaultCheckoutConfig())
		repo.On("GetByID", ctx, "missing").Return(nil, theater.ErrTheaterNotFound)

		_, err := svc.UpdateTheater(ctx, UpdateTheaterInput{ID: "missing", Name: "New", MovieID: "movie-1"})
		assert.ErrorIs(t, err, theater.ErrTheaterNotFound)
	})
}
