package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
)

// FailureReason は座席ごとの失敗理由
type FailureReason string

const (
	ReasonAlreadyBooked   FailureReason = "already_booked"
	ReasonAlreadyReserved FailureReason = "already_reserved"
	ReasonExpired         FailureReason = "expired"
	ReasonConflict        FailureReason = "conflict"
	ReasonNotFound        FailureReason = "not_found"
)

// ReasonFor はドメインエラーを失敗理由に分類する
func ReasonFor(err error) FailureReason {
	switch {
	case errors.Is(err, seat.ErrSeatAlreadyBooked):
		return ReasonAlreadyBooked
	case errors.Is(err, seat.ErrSeatAlreadyReserved):
		return ReasonAlreadyReserved
	case errors.Is(err, booking.ErrBookingExpired), errors.Is(err, ErrCheckoutExpired):
		return ReasonExpired
	case errors.Is(err, seat.ErrSeatNotFound), errors.Is(err, seat.ErrSeatNotInTheater):
		return ReasonNotFound
	default:
		return ReasonConflict
	}
}

// SeatFailure は1座席分の失敗を表す
type SeatFailure struct {
	SeatID     string
	SeatNumber string
	Reason     FailureReason
	Err        error
}

// NewSeatFailure は err から理由を分類して SeatFailure を作成する
func NewSeatFailure(seatID, seatNumber string, err error) SeatFailure {
	return SeatFailure{SeatID: seatID, SeatNumber: seatNumber, Reason: ReasonFor(err), Err: err}
}

// Label は座席番号があれば座席番号、なければ座席IDを返す
func (f SeatFailure) Label() string {
	if f.SeatNumber != "" {
		return f.SeatNumber
	}
	return f.SeatID
}

// Error はバッチ操作で失敗した全座席をまとめたエラー
// errors.Is で Err と各座席の原因エラーの両方に一致する
type Error struct {
	Op       string
	Failures []SeatFailure
	Err      error
}

// NewError は Op と失敗一覧から Error を作成する
func NewError(op string, err error, failures []SeatFailure) *Error {
	return &Error{Op: op, Err: err, Failures: failures}
}

func (e *Error) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s (%s)", f.Label(), f.Reason)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, strings.Join(parts, ", "))
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// FailuresOf は err に含まれる座席ごとの失敗を返す
func FailuresOf(err error) []SeatFailure {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Failures
	}
	return nil
}
