package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
)

type TheaterService struct {
	theaterRepo theater.Repository
	pricing     config.CheckoutConfig
}

// NewTheaterService は TheaterService を作成する
// pricing のデフォルト価格は価格未指定で作成された上映回にのみ適用される
func NewTheaterService(theaterRepo theater.Repository, pricing config.CheckoutConfig) *TheaterService {
	return &TheaterService{theaterRepo: theaterRepo, pricing: pricing}
}

type CreateTheaterInput struct {
	Name       string
	MovieID    string
	MovieTitle string
	StartsAt   time.Time
	Price      int64
	Currency   string
}

func (s *TheaterService) CreateTheater(ctx context.Context, input CreateTheaterInput) (*theater.Theater, error) {
	t := theater.NewTheater(input.Name, input.MovieID, input.MovieTitle, input.StartsAt, input.Price, input.Currency)
	t.ApplyDefaultPrice(s.pricing.DefaultTicketPrice, s.pricing.Currency)
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.theaterRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("上映回作成に失敗しました: %w", err)
	}
	return t, nil
}

func (s *TheaterService) GetTheater(ctx context.Context, id string) (*theater.Theater, error) {
	return s.theaterRepo.GetByID(ctx, id)
}

// ListTheaters は上映回一覧を返す。MovieID を指定するとその映画の上映回だけに絞る
func (s *TheaterService) ListTheaters(ctx context.Context, filter theater.ListFilter) ([]*theater.Theater, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.theaterRepo.List(ctx, filter)
}

type UpdateTheaterInput struct {
	ID         string
	Name       string
	MovieID    string
	MovieTitle string
	StartsAt   time.Time
	Price      int64
	Currency   string
}

func (s *TheaterService) UpdateTheater(ctx context.Context, input UpdateTheaterInput) (*theater.Theater, error) {
	t, err := s.theaterRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	t.Name = input.Name
	t.MovieID = input.MovieID
	t.MovieTitle = input.MovieTitle
	t.StartsAt = input.StartsAt
	t.Price = input.Price
	if input.Currency != "" {
		t.Currency = input.Currency
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.theaterRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TheaterService) DeleteTheater(ctx context.Context, id string) error {
	return s.theaterRepo.Delete(ctx, id)
}
