package checkout

import "time"

// State はチェックアウトの状態を表す
type State string

const (
	StateSelecting      State = "selecting"
	StateHolding        State = "holding"
	StatePendingPayment State = "pending_payment"
	StatePaid           State = "paid"
	StateExpired        State = "expired"
	StateCancelled      State = "cancelled"
)

var transitions = map[State][]State{
	StateSelecting:      {StateHolding},
	StateHolding:        {StatePendingPayment, StateCancelled},
	StatePendingPayment: {StatePaid, StateExpired, StateCancelled},
}

// CanTransitionTo は next への遷移が許可されているかを返す
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal は終端状態かを返す
func (s State) IsTerminal() bool {
	return s == StatePaid || s == StateExpired || s == StateCancelled
}

// Checkout は1回の座席選択から支払いまでの試行を表す
// ID はクライアントに返すチェックアウトトークンを兼ねる
type Checkout struct {
	ID             string
	UserID         string
	TheaterID      string
	SeatIDs        []string
	State          State
	IdempotencyKey string
	Amount         int64
	Currency       string
	ExpiresAt      time.Time
	PaymentID      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewCheckout は座席選択中のチェックアウトを作成する
func NewCheckout(id, userID, theaterID, idempotencyKey string, seatIDs []string, now time.Time) *Checkout {
	return &Checkout{
		ID:             id,
		UserID:         userID,
		TheaterID:      theaterID,
		SeatIDs:        seatIDs,
		State:          StateSelecting,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TransitionTo は状態を next に遷移させる
func (c *Checkout) TransitionTo(next State, now time.Time) error {
	if !c.State.CanTransitionTo(next) {
		return ErrInvalidStateTransition
	}
	c.State = next
	c.UpdatedAt = now
	return nil
}

// IsOwnedBy はチェックアウトが userID のものかを返す
func (c *Checkout) IsOwnedBy(userID string) bool {
	return c.UserID == userID
}

// Validate はチェックアウトの検証を行う
func (c *Checkout) Validate() error {
	if c.UserID == "" {
		return ErrUserIDRequired
	}
	if c.TheaterID == "" {
		return ErrTheaterIDRequired
	}
	if len(c.SeatIDs) == 0 {
		return ErrSeatIDsRequired
	}
	return nil
}
