package memory

import (
	"context"
	"time"

	"github.com/sanosuguru/book-my-seat/internal/domain/checkout"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

// CheckoutRepository はチェックアウトリポジトリのインメモリ実装
type CheckoutRepository struct {
	store *Store
}

// NewCheckoutRepository は CheckoutRepository を作成する
func NewCheckoutRepository(store *Store) *CheckoutRepository {
	return &CheckoutRepository{store: store}
}

func (r *CheckoutRepository) Create(ctx context.Context, tx transaction.Tx, c *checkout.Checkout) error {
	return r.store.do(ctx, tx, func() error {
		if c.IdempotencyKey != "" {
			for _, existing := range r.store.checkouts {
				if existing.UserID == c.UserID && existing.IdempotencyKey == c.IdempotencyKey {
					return checkout.ErrIdempotencyKeyConflict
				}
			}
		}
		r.store.checkouts[c.ID] = copyCheckout(c)
		return nil
	})
}

func (r *CheckoutRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*checkout.Checkout, error) {
	var out *checkout.Checkout
	err := r.store.do(ctx, tx, func() error {
		c, ok := r.store.checkouts[id]
		if !ok {
			return checkout.ErrCheckoutNotFound
		}
		out = copyCheckout(c)
		return nil
	})
	return out, err
}

func (r *CheckoutRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*checkout.Checkout, error) {
	var out *checkout.Checkout
	err := r.store.do(ctx, nil, func() error {
		for _, c := range r.store.checkouts {
			if c.UserID == userID && c.IdempotencyKey == key {
				out = copyCheckout(c)
				return nil
			}
		}
		return checkout.ErrCheckoutNotFound
	})
	return out, err
}

func (r *CheckoutRepository) UpdateState(ctx context.Context, tx transaction.Tx, id string, from, to checkout.State, paymentID *string, now time.Time) error {
	return r.store.do(ctx, tx, func() error {
		c, ok := r.store.checkouts[id]
		if !ok {
			return checkout.ErrCheckoutNotFound
		}
		if c.State != from {
			return checkout.ErrStateConflict
		}
		next := copyCheckout(c)
		if err := next.TransitionTo(to, now); err != nil {
			return err
		}
		if paymentID != nil {
			next.PaymentID = paymentID
		}
		r.store.checkouts[id] = next
		return nil
	})
}

var _ checkout.Repository = (*CheckoutRepository)(nil)
