package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
	redisinfra "github.com/sanosuguru/book-my-seat/internal/infrastructure/redis"
	"github.com/sanosuguru/book-my-seat/internal/pkg/clock"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
)

const (
	seatCacheTTL = 30 * time.Second
	maxRows      = 26
	maxPerRow    = 100
)

type SeatService struct {
	seatRepo    seat.Repository
	theaterRepo theater.Repository
	cache       AvailabilityCache
	clock       clock.Clock
}

// NewSeatService は SeatService を作成する
// cache は nil でもよい
func NewSeatService(sr seat.Repository, tr theater.Repository, cache AvailabilityCache, c clock.Clock) *SeatService {
	if c == nil {
		c = clock.Real()
	}
	return &SeatService{seatRepo: sr, theaterRepo: tr, cache: cache, clock: c}
}

type CreateSeatInput struct {
	TheaterID  string
	SeatNumber string
}

func (s *SeatService) CreateSeat(ctx context.Context, input CreateSeatInput) (*seat.Seat, error) {
	if _, err := s.theaterRepo.GetByID(ctx, input.TheaterID); err != nil {
		return nil, fmt.Errorf("上映回取得に失敗: %w", err)
	}
	se := seat.NewSeat(input.TheaterID, input.SeatNumber)
	if err := se.Validate(); err != nil {
		return nil, err
	}
	if err := s.seatRepo.Create(ctx, se); err != nil {
		return nil, err
	}
	s.InvalidateCache(ctx, input.TheaterID)
	return se, nil
}

// CreateSeatLayoutInput は「A1..A10, B1..B10」形式の座席配置を表す
type CreateSeatLayoutInput struct {
	TheaterID string
	Rows      int
	PerRow    int
}

// CreateSeatLayout は行（A〜Z）× 列の座席を一括作成する
func (s *SeatService) CreateSeatLayout(ctx context.Context, input CreateSeatLayoutInput) ([]*seat.Seat, error) {
	if input.Rows <= 0 || input.Rows > maxRows || input.PerRow <= 0 || input.PerRow > maxPerRow {
		return nil, fmt.Errorf("%w (rows=%d, per_row=%d)", seat.ErrInvalidLayout, input.Rows, input.PerRow)
	}
	if _, err := s.theaterRepo.GetByID(ctx, input.TheaterID); err != nil {
		return nil, fmt.Errorf("上映回取得に失敗: %w", err)
	}
	seats := make([]*seat.Seat, 0, input.Rows*input.PerRow)
	for r := 0; r < input.Rows; r++ {
		row := string(rune('A' + r))
		for n := 1; n <= input.PerRow; n++ {
			seats = append(seats, seat.NewSeat(input.TheaterID, fmt.Sprintf("%s%d", row, n)))
		}
	}
	if err := s.seatRepo.CreateBulk(ctx, seats); err != nil {
		return nil, err
	}
	s.InvalidateCache(ctx, input.TheaterID)
	return seats, nil
}

// SeatView は読み取り時点の状態を付与した座席
type SeatView struct {
	Seat   *seat.Seat
	Status seat.Status
}

// ListSeats は上映回の座席一覧を読み取り時点の状態付きで返す
// 期限切れの仮押さえは available として扱う
func (s *SeatService) ListSeats(ctx context.Context, theaterID string) ([]SeatView, error) {
	if _, err := s.theaterRepo.GetByID(ctx, theaterID); err != nil {
		return nil, err
	}
	seats, err := s.seatRepo.GetByTheaterID(ctx, theaterID)
	if err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	now := s.clock.Now()
	views := make([]SeatView, len(seats))
	for i, se := range seats {
		views[i] = SeatView{Seat: se, Status: se.StatusAt(now)}
	}
	return views, nil
}

func (s *SeatService) CountAvailableSeats(ctx context.Context, theaterID string) (int, error) {
	// キャッシュから取得を試みる
	if s.cache != nil {
		count, err := s.cache.GetAvailableCount(ctx, theaterID)
		if err == nil {
			logger.Debug("キャッシュヒット", logger.TheaterID(theaterID), zap.Int("count", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	count, err := s.seatRepo.CountAvailableByTheaterID(ctx, theaterID, s.clock.Now())
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetAvailableCount(ctx, theaterID, count, seatCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return count, nil
}

// InvalidateCache は上映回の空席数キャッシュを無効化する
func (s *SeatService) InvalidateCache(ctx context.Context, theaterID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, theaterID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Error(err))
	}
}
