/*
errors.go - Rejection taxonomy for the chit engine

PURPOSE:
  Every business-rule rejection has a Kind. Callers branch with errors.Is on
  the sentinels, pull details with errors.As on the structured types, and
  relay the {kind, message, context} triple to end users via Describe.

ERROR KINDS:
  validation_error  Malformed or out-of-range input, wrong group, inactive ticket
  not_found         Missing group, member, ticket, or auction
  conflict          Month already auctioned, ticket already won, ticket number taken
  not_ready         Payment attempted before the month is settled
  winner_exempt     Payment attempted by the month's winning ticket
  overpayment       Payment exceeds what is still due

All of these are deterministic. None is retried by the engine.

SEE ALSO:
  - registry.go: AlreadyWonError
  - payment.go:  OverpaymentError
*/
package chit

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindNotReady     Kind = "not_ready"
	KindWinnerExempt Kind = "winner_exempt"
	KindOverpayment  Kind = "overpayment"
	KindInternal     Kind = "internal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrNotReady     = errors.New("not ready")
	ErrWinnerExempt = errors.New("winner exempt")
	ErrOverpayment  = errors.New("overpayment")

	// Store-level sentinels. They wrap the kind they belong to.
	ErrGroupNotFound   = fmt.Errorf("group %w", ErrNotFound)
	ErrMemberNotFound  = fmt.Errorf("member %w", ErrNotFound)
	ErrTicketNotFound  = fmt.Errorf("ticket %w", ErrNotFound)
	ErrAuctionNotFound = fmt.Errorf("auction %w", ErrNotFound)
	ErrMonthTaken      = fmt.Errorf("%w: month already auctioned", ErrConflict)
	ErrAlreadyWon      = fmt.Errorf("%w: ticket already won", ErrConflict)
	ErrTicketTaken     = fmt.Errorf("%w: ticket number taken", ErrConflict)
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindNotReady:
		return ErrNotReady
	case KindWinnerExempt:
		return ErrWinnerExempt
	case KindOverpayment:
		return ErrOverpayment
	}
	return nil
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// Error is the relayable form of a rejection. Message is written for end users.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind.sentinel() }

func newError(kind Kind, ctx map[string]any, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Context: ctx}
}

func validationError(ctx map[string]any, format string, args ...any) *Error {
	return newError(KindValidation, ctx, format, args...)
}

func notFoundError(what string, id any) *Error {
	return newError(KindNotFound, map[string]any{what + "_id": id}, "%s not found", what)
}

// AlreadyWonError is returned when a ticket that already won is proposed again.
// AuctionID and MonthNumber identify the earlier win when known.
type AlreadyWonError struct {
	TicketID    TicketID
	AuctionID   AuctionID
	MonthNumber int
}

func (e *AlreadyWonError) Error() string {
	if e.MonthNumber > 0 {
		return fmt.Sprintf("This ticket has already won an auction (month %d)", e.MonthNumber)
	}
	return "This ticket has already won an auction"
}

func (e *AlreadyWonError) Unwrap() error { return ErrAlreadyWon }

// OverpaymentError reports how much can still be paid for the month.
type OverpaymentError struct {
	TicketID    TicketID
	MonthNumber int
	AlreadyPaid decimal.Decimal
	Due         decimal.Decimal
	Attempted   decimal.Decimal
	Remaining   decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("Overpayment. Already paid %s, monthly due is %s, max you can pay now is %s",
		e.AlreadyPaid, e.Due, e.Remaining)
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// Describe converts any error returned by the engine into its relayable form.
// Errors outside the taxonomy become KindInternal with a generic message.
func Describe(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var won *AlreadyWonError
	if errors.As(err, &won) {
		return &Error{
			Kind:    KindConflict,
			Message: won.Error(),
			Context: map[string]any{
				"ticket_id":    won.TicketID,
				"auction_id":   won.AuctionID,
				"month_number": won.MonthNumber,
			},
		}
	}

	var over *OverpaymentError
	if errors.As(err, &over) {
		return &Error{
			Kind:    KindOverpayment,
			Message: over.Error(),
			Context: map[string]any{
				"ticket_id":    over.TicketID,
				"month_number": over.MonthNumber,
				"already_paid": over.AlreadyPaid.String(),
				"monthly_due":  over.Due.String(),
				"attempted":    over.Attempted.String(),
				"remaining":    over.Remaining.String(),
			},
		}
	}

	for _, k := range []Kind{KindValidation, KindNotFound, KindConflict, KindNotReady, KindWinnerExempt, KindOverpayment} {
		if errors.Is(err, k.sentinel()) {
			return &Error{Kind: k, Message: err.Error()}
		}
	}
	return &Error{Kind: KindInternal, Message: "internal error"}
}

// KindOf returns the rejection kind of err.
func KindOf(err error) Kind {
	if d := Describe(err); d != nil {
		return d.Kind
	}
	return ""
}

// IsClientError returns true if the error is a business-rule rejection.
func IsClientError(err error) bool {
	k := KindOf(err)
	return k != "" && k != KindInternal
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
