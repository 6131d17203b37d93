// Package memory はプロセス内で完結する永続化層を提供する
// ストア全体を1つのロックで直列化するため、単一プロセスの開発環境とテスト向け
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/checkout"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
)

// ErrTxDone はコミットまたはロールバック済みのトランザクションを使った場合のエラー
var ErrTxDone = errors.New("トランザクションは既に終了しています")

// Store はインメモリのデータストア
type Store struct {
	sem chan struct{}

	theaters  map[string]*theater.Theater
	seats     map[string]*seat.Seat
	bookings  map[string]*booking.Booking
	checkouts map[string]*checkout.Checkout
}

// NewStore は空のストアを作成する
func NewStore() *Store {
	return &Store{
		sem:       make(chan struct{}, 1),
		theaters:  make(map[string]*theater.Theater),
		seats:     make(map[string]*seat.Seat),
		bookings:  make(map[string]*booking.Booking),
		checkouts: make(map[string]*checkout.Checkout),
	}
}

func (s *Store) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlock() {
	<-s.sem
}

// do は fn をストアのロック下で実行する
// tx がこのストアのトランザクションであれば、既に保持しているロックをそのまま使う
func (s *Store) do(ctx context.Context, tx transaction.Tx, fn func() error) error {
	if t, ok := tx.(*Tx); ok && t != nil && t.store == s {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.done {
			return ErrTxDone
		}
		return fn()
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()
	return fn()
}

type snapshot struct {
	theaters  map[string]*theater.Theater
	seats     map[string]*seat.Seat
	bookings  map[string]*booking.Booking
	checkouts map[string]*checkout.Checkout
}

// エンティティは更新時にポインタごと差し替えるため、構造体のコピーで十分
func (s *Store) snapshot() snapshot {
	snap := snapshot{
		theaters:  make(map[string]*theater.Theater, len(s.theaters)),
		seats:     make(map[string]*seat.Seat, len(s.seats)),
		bookings:  make(map[string]*booking.Booking, len(s.bookings)),
		checkouts: make(map[string]*checkout.Checkout, len(s.checkouts)),
	}
	for k, v := range s.theaters {
		snap.theaters[k] = copyTheater(v)
	}
	for k, v := range s.seats {
		snap.seats[k] = copySeat(v)
	}
	for k, v := range s.bookings {
		snap.bookings[k] = copyBooking(v)
	}
	for k, v := range s.checkouts {
		snap.checkouts[k] = copyCheckout(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.theaters = snap.theaters
	s.seats = snap.seats
	s.bookings = snap.bookings
	s.checkouts = snap.checkouts
}

// Tx はストアのトランザクション
// Begin でストアのロックを取得し、Commit / Rollback で解放する
type Tx struct {
	store *Store
	snap  snapshot
	mu    sync.Mutex
	done  bool
}

// Commit は変更を確定してロックを解放する
func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.store.unlock()
	return nil
}

// Rollback は Begin 時点の状態に戻してロックを解放する
// 終了済みの場合は何もしない
func (t *Tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.store.restore(t.snap)
	t.store.unlock()
	return nil
}

// TxManager はインメモリストアのトランザクションマネージャー
type TxManager struct {
	store *Store
}

// NewTxManager は新しい TxManager を作成する
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin はストアのロックを取得してトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	if err := m.store.lock(ctx); err != nil {
		return nil, err
	}
	return &Tx{store: m.store, snap: m.store.snapshot()}, nil
}

var _ transaction.Manager = (*TxManager)(nil)

func copyTheater(t *theater.Theater) *theater.Theater {
	c := *t
	return &c
}

func copySeat(s *seat.Seat) *seat.Seat {
	c := *s
	return &c
}

func copyBooking(b *booking.Booking) *booking.Booking {
	c := *b
	return &c
}

func copyCheckout(co *checkout.Checkout) *checkout.Checkout {
	c := *co
	c.SeatIDs = append([]string(nil), co.SeatIDs...)
	return &c
}
