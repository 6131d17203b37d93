package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/checkout"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/book-my-seat/internal/infrastructure/redis"
	"github.com/sanosuguru/book-my-seat/internal/pkg/clock"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
	"github.com/sanosuguru/book-my-seat/internal/pkg/metrics"
)

const notifyTimeout = 10 * time.Second

// CheckoutService は座席選択から支払い確定までの流れを調整する
//
//	SELECTING → HOLDING → PENDING_PAYMENT → {PAID | EXPIRED | CANCELLED}
//
// 仮押さえと予約作成は全席成功か全席ロールバックのどちらか
type CheckoutService struct {
	txManager    transaction.Manager
	theaterRepo  theater.Repository
	seatRepo     seat.Repository
	checkoutRepo checkout.Repository
	bookingRepo  booking.Repository
	reservations *ReservationManager
	ledger       *BookingLedger
	cfg          config.CheckoutConfig
	clock        clock.Clock

	locker   SeatLocker
	cache    AvailabilityCache
	notifier Notifier
	metrics  *metrics.Metrics

	notifyWG sync.WaitGroup
}

// CheckoutOption は CheckoutService の任意の依存を設定する
type CheckoutOption func(*CheckoutService)

func WithSeatLocker(l SeatLocker) CheckoutOption {
	return func(s *CheckoutService) { s.locker = l }
}

func WithAvailabilityCache(c AvailabilityCache) CheckoutOption {
	return func(s *CheckoutService) { s.cache = c }
}

func WithNotifier(n Notifier) CheckoutOption {
	return func(s *CheckoutService) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) CheckoutOption {
	return func(s *CheckoutService) { s.metrics = m }
}

func WithClock(c clock.Clock) CheckoutOption {
	return func(s *CheckoutService) { s.clock = c }
}

// CheckoutRepositories はチェックアウトが参照するリポジトリ一式
type CheckoutRepositories struct {
	Theaters  theater.Repository
	Seats     seat.Repository
	Checkouts checkout.Repository
	Bookings  booking.Repository
}

func NewCheckoutService(tm transaction.Manager, repos CheckoutRepositories, rm *ReservationManager, ledger *BookingLedger, cfg config.CheckoutConfig, opts ...CheckoutOption) *CheckoutService {
	if cfg.HoldDuration <= 0 {
		cfg.HoldDuration = booking.DefaultHoldDuration
	}
	s := &CheckoutService{
		txManager:    tm,
		theaterRepo:  repos.Theaters,
		seatRepo:     repos.Seats,
		checkoutRepo: repos.Checkouts,
		bookingRepo:  repos.Bookings,
		reservations: rm,
		ledger:       ledger,
		cfg:          cfg,
		clock:        clock.Real(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckoutView はチェックアウトと関連する予約・上映回をまとめたもの
type CheckoutView struct {
	Checkout *checkout.Checkout
	Bookings []*booking.Booking
	Theater  *theater.Theater
}

type StartCheckoutInput struct {
	TheaterID      string
	UserID         string
	SeatIDs        []string
	IdempotencyKey string
}

// StartCheckout は選択された全座席を仮押さえし、支払い待ちの予約を作成する
// 1席でも失敗すれば全座席の仮押さえを取り消し、失敗した全座席と理由を checkout.Error で返す
func (s *CheckoutService) StartCheckout(ctx context.Context, input StartCheckoutInput) (*CheckoutView, error) {
	if input.UserID == "" {
		return nil, checkout.ErrUserIDRequired
	}
	if input.TheaterID == "" {
		return nil, checkout.ErrTheaterIDRequired
	}
	seatIDs := normalizeSeatIDs(input.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, checkout.ErrSeatIDsRequired
	}

	// 冪等性チェック
	if input.IdempotencyKey != "" {
		existing, err := s.checkoutRepo.GetByIdempotencyKey(ctx, input.UserID, input.IdempotencyKey)
		if err == nil {
			return s.GetCheckout(ctx, existing.ID, input.UserID)
		}
		if !errors.Is(err, checkout.ErrCheckoutNotFound) {
			return nil, fmt.Errorf("冪等性チェックに失敗: %w", err)
		}
	}

	th, err := s.theaterRepo.GetByID(ctx, input.TheaterID)
	if err != nil {
		return nil, err
	}

	// 放置された支払い待ちを先に解放しておく
	if _, err := s.ExpireStale(ctx); err != nil {
		logger.Warn("事前の期限切れ処理に失敗しました", zap.Error(err))
	}

	if s.locker != nil {
		release, err := s.locker.LockSeats(ctx, th.ID, seatIDs)
		switch {
		case errors.Is(err, redisinfra.ErrLockNotAcquired):
			s.metrics.RecordSeatHold("lock_failed")
			s.metrics.RecordCheckout("rejected")
			return nil, busyError(seatIDs)
		case err != nil:
			// ロック基盤の障害時もDBの条件付き更新が最終的な排他を保証する
			logger.Warn("分散ロックを使用せずに続行します", zap.Error(err))
		default:
			defer release(ctx)
		}
	}

	now := s.clock.Now()
	co := checkout.NewCheckout(uuid.NewString(), input.UserID, th.ID, input.IdempotencyKey, seatIDs, now)
	var bookings []*booking.Booking

	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		if err := s.holdSeats(ctx, tx, th, co, now); err != nil {
			return err
		}
		created, err := s.createPendingBookings(ctx, tx, th, co, now)
		if err != nil {
			return err
		}
		bookings = created
		return nil
	})
	if err != nil {
		s.metrics.RecordCheckout("rejected")
		if errors.Is(err, checkout.ErrIdempotencyKeyConflict) {
			existing, getErr := s.checkoutRepo.GetByIdempotencyKey(ctx, input.UserID, input.IdempotencyKey)
			if getErr == nil {
				return s.GetCheckout(ctx, existing.ID, input.UserID)
			}
		}
		return nil, err
	}

	s.invalidateCache(ctx, th.ID)
	s.metrics.RecordCheckout(string(checkout.StatePendingPayment))
	logger.Info("チェックアウトを開始しました",
		logger.CheckoutID(co.ID), logger.UserID(co.UserID), logger.TheaterID(th.ID), logger.SeatIDs(seatIDs),
		zap.Time("expires_at", co.ExpiresAt))

	return &CheckoutView{Checkout: co, Bookings: bookings, Theater: th}, nil
}

// holdSeats は SELECTING → HOLDING の遷移を行う
// 失敗しても残りの座席の判定を続け、全ての失敗をまとめて返す
func (s *CheckoutService) holdSeats(ctx context.Context, tx transaction.Tx, th *theater.Theater, co *checkout.Checkout, now time.Time) error {
	var failures []checkout.SeatFailure
	for _, id := range co.SeatIDs {
		se, err := s.seatRepo.GetByID(ctx, tx, id)
		if err != nil {
			if !errors.Is(err, seat.ErrSeatNotFound) {
				return err
			}
			failures = append(failures, checkout.NewSeatFailure(id, "", err))
			continue
		}
		if se.TheaterID != th.ID {
			failures = append(failures, checkout.NewSeatFailure(id, se.SeatNumber, seat.ErrSeatNotInTheater))
			continue
		}
		if err := s.reservations.ReserveAt(ctx, tx, id, co.UserID, now, s.cfg.HoldDuration); err != nil {
			f := checkout.NewSeatFailure(id, se.SeatNumber, err)
			if f.Reason == checkout.ReasonConflict && !isDomainSeatError(err) {
				return err
			}
			s.metrics.RecordSeatHold(string(f.Reason))
			failures = append(failures, f)
			continue
		}
		s.metrics.RecordSeatHold("success")
	}
	if len(failures) > 0 {
		return checkout.NewError("座席の仮押さえ", checkout.ErrSeatsUnavailable, failures)
	}

	if err := co.TransitionTo(checkout.StateHolding, now); err != nil {
		return err
	}
	co.Amount = th.Price * int64(len(co.SeatIDs))
	co.Currency = th.Currency
	co.ExpiresAt = now.Add(s.cfg.HoldDuration)
	return s.checkoutRepo.Create(ctx, tx, co)
}

// createPendingBookings は HOLDING → PENDING_PAYMENT の遷移を行う
// 予約の booked_at は仮押さえと同じ now にする
func (s *CheckoutService) createPendingBookings(ctx context.Context, tx transaction.Tx, th *theater.Theater, co *checkout.Checkout, now time.Time) ([]*booking.Booking, error) {
	var failures []checkout.SeatFailure
	bookings := make([]*booking.Booking, 0, len(co.SeatIDs))
	for _, id := range co.SeatIDs {
		b, err := s.ledger.CreatePending(ctx, tx, CreatePendingInput{
			CheckoutID: co.ID,
			UserID:     co.UserID,
			SeatID:     id,
			TheaterID:  th.ID,
			MovieID:    th.MovieID,
			Amount:     th.Price,
			Currency:   th.Currency,
			BookedAt:   now,
		})
		if err != nil {
			if !errors.Is(err, booking.ErrSeatNotHeld) && !errors.Is(err, booking.ErrSeatAlreadyHasBooking) {
				return nil, err
			}
			failures = append(failures, checkout.SeatFailure{SeatID: id, Reason: checkout.ReasonConflict, Err: err})
			continue
		}
		bookings = append(bookings, b)
	}
	if len(failures) > 0 {
		return nil, checkout.NewError("予約作成", checkout.ErrSeatsUnavailable, failures)
	}

	if err := s.checkoutRepo.UpdateState(ctx, tx, co.ID, checkout.StateHolding, checkout.StatePendingPayment, nil, now); err != nil {
		return nil, err
	}
	if err := co.TransitionTo(checkout.StatePendingPayment, now); err != nil {
		return nil, err
	}
	return bookings, nil
}

// GetCheckout はチェックアウトを取得する
// 支払い待ちで期限を過ぎていれば、返す前に期限切れとして解放する
func (s *CheckoutService) GetCheckout(ctx context.Context, id, userID string) (*CheckoutView, error) {
	co, err := s.checkoutRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !co.IsOwnedBy(userID) {
		return nil, checkout.ErrCheckoutNotFound
	}
	th, err := s.theaterRepo.GetByID(ctx, co.TheaterID)
	if err != nil {
		return nil, err
	}

	view := &CheckoutView{Checkout: co, Theater: th}
	if co.State != checkout.StatePendingPayment {
		view.Bookings, err = s.bookingRepo.GetByCheckoutID(ctx, nil, co.ID)
		return view, err
	}

	var expired bool
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		// 支払い確定・取消・スイープと同じくチェックアウト → 予約の順にロックする
		locked, err := s.checkoutRepo.GetByID(ctx, tx, co.ID)
		if err != nil {
			return err
		}
		view.Checkout = locked
		bookings, err := s.bookingRepo.GetByCheckoutID(ctx, tx, co.ID)
		if err != nil {
			return err
		}
		if locked.State != checkout.StatePendingPayment || !s.anyExpired(bookings) {
			view.Bookings = bookings
			return nil
		}
		expired = true
		_, err = s.ledger.ExpireCheckout(ctx, tx, bookings)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		co = view.Checkout
		co.State = checkout.StateExpired
		s.invalidateCache(ctx, co.TheaterID)
		s.metrics.RecordCheckout(string(checkout.StateExpired))
		logger.Info("閲覧時にチェックアウトを期限切れにしました", logger.CheckoutID(co.ID))
	}
	return view, nil
}

type ConfirmPaymentInput struct {
	CheckoutID    string
	UserID        string
	PaymentID     string
	PaymentMethod string
	// BookingIDs が指定された場合はチェックアウトの予約と完全一致する必要がある
	BookingIDs []string
}

// ConfirmPayment は PENDING_PAYMENT → PAID の遷移を行う
// 期限切れの予約が含まれていれば全予約を解放して EXPIRED にし、ErrCheckoutExpired を返す
func (s *CheckoutService) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*CheckoutView, error) {
	if input.PaymentID == "" || input.PaymentMethod == "" {
		return nil, fmt.Errorf("支払いIDと支払い方法は必須です: %w", checkout.ErrPaymentMismatch)
	}

	var (
		co          *checkout.Checkout
		bookings    []*booking.Booking
		alreadyPaid bool
		outcome     error
	)
	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		var err error
		co, err = s.checkoutRepo.GetByID(ctx, tx, input.CheckoutID)
		if err != nil {
			return err
		}
		if !co.IsOwnedBy(input.UserID) {
			return fmt.Errorf("別ユーザーのチェックアウトです: %w", checkout.ErrPaymentMismatch)
		}

		switch co.State {
		case checkout.StatePaid:
			if co.PaymentID != nil && *co.PaymentID == input.PaymentID {
				alreadyPaid = true
				bookings, err = s.bookingRepo.GetByCheckoutID(ctx, tx, co.ID)
				return err
			}
			return checkout.ErrCheckoutAlreadyPaid
		case checkout.StateExpired:
			return expiredError(co.SeatIDs, nil)
		case checkout.StatePendingPayment:
		default:
			return checkout.ErrCheckoutClosed
		}

		bookings, err = s.bookingRepo.GetByCheckoutID(ctx, tx, co.ID)
		if err != nil {
			return err
		}
		if !matchesCheckout(co, bookings, input.BookingIDs) {
			return fmt.Errorf("予約がチェックアウトと一致しません: %w", checkout.ErrPaymentMismatch)
		}

		err = s.ledger.FinalizePaid(ctx, tx, bookings, input.PaymentID, input.PaymentMethod)
		if errors.Is(err, booking.ErrBookingExpired) {
			// 期限切れの解放は確定させたいのでコミットし、結果だけを呼び出し元に返す
			if _, expErr := s.ledger.ExpireCheckout(ctx, tx, bookings); expErr != nil {
				return expErr
			}
			co.State = checkout.StateExpired
			outcome = expiredError(co.SeatIDs, bookings)
			return nil
		}
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.checkoutRepo.UpdateState(ctx, tx, co.ID, checkout.StatePendingPayment, checkout.StatePaid, &input.PaymentID, now); err != nil {
			return err
		}
		co.State = checkout.StatePaid
		co.PaymentID = &input.PaymentID
		co.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	th, thErr := s.theaterRepo.GetByID(ctx, co.TheaterID)
	if thErr != nil {
		logger.Warn("上映回の取得に失敗しました", logger.TheaterID(co.TheaterID), zap.Error(thErr))
	}

	if outcome != nil {
		s.invalidateCache(ctx, co.TheaterID)
		s.metrics.RecordCheckout(string(checkout.StateExpired))
		logger.Info("支払い時に期限切れを検出しました", logger.CheckoutID(co.ID))
		return nil, outcome
	}

	view := &CheckoutView{Checkout: co, Bookings: bookings, Theater: th}
	if alreadyPaid {
		return view, nil
	}

	s.invalidateCache(ctx, co.TheaterID)
	s.metrics.RecordCheckout(string(checkout.StatePaid))
	logger.Info("支払いを確定しました", logger.CheckoutID(co.ID), logger.UserID(co.UserID),
		zap.String("payment_id", input.PaymentID), zap.String("payment_method", input.PaymentMethod))

	s.notifyConfirmed(ctx, view, input.PaymentMethod)
	return view, nil
}

// CancelCheckout は PENDING_PAYMENT → CANCELLED の遷移を行う
// 決済失敗の通知もこの経路で処理する
func (s *CheckoutService) CancelCheckout(ctx context.Context, id, userID string) (*CheckoutView, error) {
	var (
		co       *checkout.Checkout
		released int
	)
	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		var err error
		co, err = s.checkoutRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if !co.IsOwnedBy(userID) {
			return checkout.ErrCheckoutNotFound
		}
		switch co.State {
		case checkout.StateCancelled:
			return nil
		case checkout.StatePaid:
			return checkout.ErrCheckoutAlreadyPaid
		case checkout.StateExpired:
			return expiredError(co.SeatIDs, nil)
		case checkout.StatePendingPayment:
		default:
			return checkout.ErrCheckoutClosed
		}

		bookings, err := s.bookingRepo.GetByCheckoutID(ctx, tx, co.ID)
		if err != nil {
			return err
		}
		released, err = s.ledger.Cancel(ctx, tx, bookings)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := s.checkoutRepo.UpdateState(ctx, tx, co.ID, checkout.StatePendingPayment, checkout.StateCancelled, nil, now); err != nil {
			return err
		}
		co.State = checkout.StateCancelled
		co.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if released > 0 {
		s.invalidateCache(ctx, co.TheaterID)
		s.metrics.RecordCheckout(string(checkout.StateCancelled))
		logger.Info("チェックアウトをキャンセルしました", logger.CheckoutID(co.ID), zap.Int("released", released))
	}
	th, err := s.theaterRepo.GetByID(ctx, co.TheaterID)
	if err != nil {
		return nil, err
	}
	return &CheckoutView{Checkout: co, Theater: th}, nil
}

// ExpireStale は期限切れの支払い待ち予約を全て解放し、件数を返す
func (s *CheckoutService) ExpireStale(ctx context.Context) (int, error) {
	res, err := s.ledger.Sweep(ctx)
	for _, theaterID := range res.TheaterIDs {
		s.invalidateCache(ctx, theaterID)
	}
	return res.Expired, err
}

// ListUserBookings はユーザーの予約履歴を取得する
func (s *CheckoutService) ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookingRepo.GetByUserID(ctx, userID, limit, offset)
}

// WaitNotifications は送信中の通知が終わるまで待つ
func (s *CheckoutService) WaitNotifications() {
	s.notifyWG.Wait()
}

func (s *CheckoutService) notifyConfirmed(ctx context.Context, view *CheckoutView, paymentMethod string) {
	if s.notifier == nil {
		return
	}
	ev := confirmedEvent(view, paymentMethod)

	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		err := s.notifier.NotifyBookingConfirmed(nctx, ev)
		s.metrics.RecordNotification(err)
		if err != nil {
			logger.Error("予約確定通知の送信に失敗しました", logger.CheckoutID(ev.CheckoutID), zap.Error(err))
		}
	}()
}

func confirmedEvent(view *CheckoutView, paymentMethod string) booking.ConfirmedEvent {
	co := view.Checkout
	ev := booking.ConfirmedEvent{
		CheckoutID:    co.ID,
		UserID:        co.UserID,
		TheaterID:     co.TheaterID,
		BookingIDs:    booking.IDs(view.Bookings),
		Amount:        booking.TotalAmount(view.Bookings),
		Currency:      co.Currency,
		PaymentMethod: paymentMethod,
		PaidAt:        co.UpdatedAt,
	}
	if co.PaymentID != nil {
		ev.PaymentID = *co.PaymentID
	}
	for _, b := range view.Bookings {
		ev.SeatNumbers = append(ev.SeatNumbers, b.SeatNumber)
	}
	if th := view.Theater; th != nil {
		ev.TheaterName = th.Name
		ev.MovieID = th.MovieID
		ev.MovieTitle = th.MovieTitle
		ev.StartsAt = th.StartsAt
	}
	return ev
}

func (s *CheckoutService) anyExpired(bookings []*booking.Booking) bool {
	for _, b := range bookings {
		if s.ledger.IsExpired(b) {
			return true
		}
	}
	return false
}

func (s *CheckoutService) invalidateCache(ctx context.Context, theaterID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, theaterID); err != nil {
		logger.Warn("キャッシュ無効化エラー", logger.TheaterID(theaterID), zap.Error(err))
	}
}

// normalizeSeatIDs は座席IDの重複と空文字を除いてソートする
// 並行するチェックアウト同士が同じ順序で行を更新するようにするため
func normalizeSeatIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func matchesCheckout(co *checkout.Checkout, bookings []*booking.Booking, requested []string) bool {
	if len(bookings) == 0 || len(bookings) != len(co.SeatIDs) {
		return false
	}
	if len(requested) == 0 {
		return true
	}
	if len(requested) != len(bookings) {
		return false
	}
	want := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		want[id] = struct{}{}
	}
	for _, b := range bookings {
		if _, ok := want[b.ID]; !ok {
			return false
		}
	}
	return true
}

func isDomainSeatError(err error) bool {
	return errors.Is(err, seat.ErrReservationConflict) ||
		errors.Is(err, seat.ErrSeatAlreadyBooked) ||
		errors.Is(err, seat.ErrSeatAlreadyReserved)
}

func busyError(seatIDs []string) error {
	failures := make([]checkout.SeatFailure, len(seatIDs))
	for i, id := range seatIDs {
		failures[i] = checkout.NewSeatFailure(id, "", seat.ErrReservationConflict)
	}
	return checkout.NewError("座席の仮押さえ", checkout.ErrSeatsUnavailable, failures)
}

func expiredError(seatIDs []string, bookings []*booking.Booking) error {
	numbers := make(map[string]string, len(bookings))
	for _, b := range bookings {
		numbers[b.SeatID] = b.SeatNumber
	}
	failures := make([]checkout.SeatFailure, len(seatIDs))
	for i, id := range seatIDs {
		failures[i] = checkout.NewSeatFailure(id, numbers[id], booking.ErrBookingExpired)
	}
	return checkout.NewError("支払い確定", checkout.ErrCheckoutExpired, failures)
}
