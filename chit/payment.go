/*
payment.go - Payment reconciliation against a settled month

PURPOSE:
  Accepts collections from non-winning tickets for a settled month and
  accumulates them against that month's amount_to_collect.

INVARIANTS:
  1. Σ amount_paid for (ticket, month) never exceeds amount_to_collect.
  2. The month's winning ticket never pays for that month.
  3. Rows are append-only. Each carries the status computed at insert:
     COMPLETED when the cumulative total reaches the due, PARTIAL otherwise.

REJECTIONS (checked in this order, all before any write):
  validation_error  amount <= 0, unknown method, UPI without upi_id
  not_found         group or ticket missing
  validation_error  ticket outside the group, or inactive
  not_ready         month not yet auctioned
  winner_exempt     ticket won this month
  overpayment       prior + amount > due (reports what can still be paid)

ATOMICITY:
  Sum, compare and append run inside one TxStore.WithTx, so two concurrent
  partial payments cannot both read the same stale sum.

STATEMENT:
  Statement reports, for a settled month, every ticket's due, paid,
  remaining and state. Remaining is never negative.

SEE ALSO:
  - auction.go: Produces the amount_to_collect read here
*/
package chit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordPaymentInput is a request to record one collection.
type RecordPaymentInput struct {
	GroupID     GroupID
	TicketID    TicketID
	MonthNumber int
	AmountPaid  decimal.Decimal
	Method      PaymentMethod
	UPIID       string
	PaymentDate time.Time
	Notes       string
}

// PaymentReceipt is the recorded row plus the running position for the month.
type PaymentReceipt struct {
	Payment      Payment
	TicketNumber int
	TotalPaid    decimal.Decimal
	MonthlyDue   decimal.Decimal
	Remaining    decimal.Decimal
}

// PaymentReconciler records and reports payments.
type PaymentReconciler struct {
	Store    TxStore
	Observer Observer
	Log      *slog.Logger
	Now      func() time.Time
}

// NewPaymentReconciler creates a reconciler over the given store.
func NewPaymentReconciler(store TxStore) *PaymentReconciler {
	return &PaymentReconciler{Store: store}
}

// Record validates and appends one payment.
func (pr *PaymentReconciler) Record(ctx context.Context, in RecordPaymentInput) (*PaymentReceipt, error) {
	if err := in.validate(); err != nil {
		pr.reject(ctx, in, err)
		return nil, err
	}

	var receipt PaymentReceipt
	err := pr.Store.WithTx(ctx, func(s Store) error {
		ticket, auction, err := pr.eligibility(ctx, s, in.GroupID, in.TicketID, in.MonthNumber)
		if err != nil {
			return err
		}

		prior, err := s.PaymentsFor(ctx, ticket.ID, in.MonthNumber)
		if err != nil {
			return fmt.Errorf("failed to load prior payments: %w", err)
		}
		alreadyPaid := SumPaid(prior)
		due := auction.AmountToCollect()
		total := alreadyPaid.Add(in.AmountPaid)

		if total.GreaterThan(due) {
			return &OverpaymentError{
				TicketID:    ticket.ID,
				MonthNumber: in.MonthNumber,
				AlreadyPaid: alreadyPaid,
				Due:         due,
				Attempted:   in.AmountPaid,
				Remaining:   remaining(due, alreadyPaid),
			}
		}

		status := PaymentPartial
		if total.GreaterThanOrEqual(due) {
			status = PaymentCompleted
		}

		now := pr.now()
		paymentDate := in.PaymentDate
		if paymentDate.IsZero() {
			paymentDate = now
		}
		p := Payment{
			ID:          PaymentID(NewID("pay")),
			GroupID:     in.GroupID,
			TicketID:    ticket.ID,
			MonthNumber: in.MonthNumber,
			AmountPaid:  in.AmountPaid,
			Method:      in.Method,
			UPIID:       strings.TrimSpace(in.UPIID),
			PaymentDate: paymentDate,
			Status:      status,
			Notes:       in.Notes,
			CreatedAt:   now,
		}
		if err := s.AppendPayment(ctx, p); err != nil {
			return fmt.Errorf("failed to append payment: %w", err)
		}

		receipt = PaymentReceipt{
			Payment:      p,
			TicketNumber: ticket.TicketNumber,
			TotalPaid:    total,
			MonthlyDue:   due,
			Remaining:    remaining(due, total),
		}
		return nil
	})
	if err != nil {
		pr.reject(ctx, in, err)
		return nil, err
	}

	pr.logger().InfoContext(ctx, "payment recorded",
		"group_id", in.GroupID,
		"ticket_id", in.TicketID,
		"month", in.MonthNumber,
		"amount", in.AmountPaid.String(),
		"status", receipt.Payment.Status,
		"remaining", receipt.Remaining.String(),
	)
	if pr.Observer != nil {
		if err := pr.Observer.PaymentRecorded(ctx, receipt); err != nil {
			pr.logger().WarnContext(ctx, "payment observer failed", "payment_id", receipt.Payment.ID, "error", err)
		}
	}
	return &receipt, nil
}

// eligibility runs the referential and month checks for a (group, ticket, month).
func (pr *PaymentReconciler) eligibility(ctx context.Context, s Store, groupID GroupID, ticketID TicketID, month int) (*Ticket, *Auction, error) {
	if _, err := loadGroup(ctx, s, groupID); err != nil {
		return nil, nil, err
	}

	ticket, err := s.GetTicket(ctx, ticketID)
	if errors.Is(err, ErrTicketNotFound) {
		return nil, nil, notFoundError("ticket", ticketID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	if ticket.GroupID != groupID {
		return nil, nil, validationError(map[string]any{"group_id": groupID, "ticket_id": ticketID},
			"Chit member does not belong to this chit group")
	}
	if !ticket.Active {
		return nil, nil, validationError(map[string]any{"ticket_id": ticketID}, "This ticket is inactive")
	}

	auction, err := s.AuctionForMonth(ctx, groupID, month)
	if errors.Is(err, ErrAuctionNotFound) {
		return nil, nil, newError(KindNotReady, map[string]any{"group_id": groupID, "month_number": month},
			"Auction for this month has not happened yet. Complete the auction first.")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load auction: %w", err)
	}

	if auction.WinnerTicketID == ticketID {
		return nil, nil, newError(KindWinnerExempt,
			map[string]any{"ticket_id": ticketID, "month_number": month, "auction_id": auction.ID},
			"This ticket is the auction winner for this month and does not need to pay")
	}
	return ticket, auction, nil
}

func (in RecordPaymentInput) validate() error {
	switch {
	case in.MonthNumber < 1:
		return validationError(map[string]any{"month_number": in.MonthNumber}, "month_number must be at least 1")
	case !in.AmountPaid.IsPositive():
		return validationError(map[string]any{"amount_paid": in.AmountPaid.String()}, "amount_paid must be greater than 0")
	case !in.Method.Valid():
		return validationError(map[string]any{"payment_method": string(in.Method)},
			"payment_method must be one of CASH, UPI, BANK_TRANSFER")
	case in.Method == MethodUPI && strings.TrimSpace(in.UPIID) == "":
		return validationError(map[string]any{"payment_method": string(in.Method)},
			"upi_id is required when payment_method is UPI")
	}
	return nil
}

// remaining is max(0, due - paid).
func remaining(due, paid decimal.Decimal) decimal.Decimal {
	r := due.Sub(paid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// =============================================================================
// QUERIES
// =============================================================================

// List returns payments matching the filter.
func (pr *PaymentReconciler) List(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	return pr.Store.ListPayments(ctx, filter)
}

// TicketState is a ticket's collection state for one month.
type TicketState string

const (
	StateWinner    TicketState = "WINNER"
	StatePending   TicketState = "PENDING"
	StatePartial   TicketState = "PARTIAL"
	StateCompleted TicketState = "COMPLETED"
	StateInactive  TicketState = "INACTIVE"
)

// TicketPosition is one line of a MonthStatement.
type TicketPosition struct {
	TicketID     TicketID
	TicketNumber int
	MemberID     MemberID
	State        TicketState
	Due          decimal.Decimal
	Paid         decimal.Decimal
	Remaining    decimal.Decimal
}

// MonthStatement is the collection picture for a settled month.
type MonthStatement struct {
	GroupID          GroupID
	MonthNumber      int
	AuctionID        AuctionID
	WinnerTicketID   TicketID
	AmountToCollect  decimal.Decimal
	ExpectedTotal    decimal.Decimal
	CollectedTotal   decimal.Decimal
	OutstandingTotal decimal.Decimal
	Tickets          []TicketPosition
}

// Statement reports every ticket's position for a settled month. Inactive
// tickets owe nothing, but their payments still count as collected.
func (pr *PaymentReconciler) Statement(ctx context.Context, groupID GroupID, month int) (*MonthStatement, error) {
	if _, err := loadGroup(ctx, pr.Store, groupID); err != nil {
		return nil, err
	}
	auction, err := pr.Store.AuctionForMonth(ctx, groupID, month)
	if errors.Is(err, ErrAuctionNotFound) {
		return nil, newError(KindNotReady, map[string]any{"group_id": groupID, "month_number": month},
			"Auction for month %d has not happened yet", month)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load auction: %w", err)
	}

	tickets, err := pr.Store.ListTickets(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	payments, err := pr.Store.ListPayments(ctx, PaymentFilter{GroupID: &groupID, MonthNumber: &month})
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	paid := make(map[TicketID]decimal.Decimal)
	for _, p := range payments {
		paid[p.TicketID] = paid[p.TicketID].Add(p.AmountPaid)
	}

	due := auction.AmountToCollect()
	st := &MonthStatement{
		GroupID:          groupID,
		MonthNumber:      month,
		AuctionID:        auction.ID,
		WinnerTicketID:   auction.WinnerTicketID,
		AmountToCollect:  due,
		ExpectedTotal:    decimal.Zero,
		CollectedTotal:   decimal.Zero,
		OutstandingTotal: decimal.Zero,
	}
	for _, t := range tickets {
		if t.ID == auction.WinnerTicketID {
			st.Tickets = append(st.Tickets, TicketPosition{
				TicketID: t.ID, TicketNumber: t.TicketNumber, MemberID: t.MemberID,
				State: StateWinner, Due: decimal.Zero, Paid: decimal.Zero, Remaining: decimal.Zero,
			})
			continue
		}
		p := paid[t.ID]
		if !t.Active {
			// Owes nothing further, but what it already paid was collected.
			st.CollectedTotal = st.CollectedTotal.Add(p)
			st.Tickets = append(st.Tickets, TicketPosition{
				TicketID: t.ID, TicketNumber: t.TicketNumber, MemberID: t.MemberID,
				State: StateInactive, Due: decimal.Zero, Paid: p, Remaining: decimal.Zero,
			})
			continue
		}
		pos := TicketPosition{
			TicketID:     t.ID,
			TicketNumber: t.TicketNumber,
			MemberID:     t.MemberID,
			Due:          due,
			Paid:         p,
			Remaining:    remaining(due, p),
		}
		switch {
		case p.GreaterThanOrEqual(due):
			pos.State = StateCompleted
		case p.IsPositive():
			pos.State = StatePartial
		default:
			pos.State = StatePending
		}
		st.ExpectedTotal = st.ExpectedTotal.Add(due)
		st.CollectedTotal = st.CollectedTotal.Add(p)
		st.OutstandingTotal = st.OutstandingTotal.Add(pos.Remaining)
		st.Tickets = append(st.Tickets, pos)
	}
	return st, nil
}

func (pr *PaymentReconciler) reject(ctx context.Context, in RecordPaymentInput, err error) {
	logRejection(ctx, pr.logger(), "record_payment", err,
		"group_id", in.GroupID, "ticket_id", in.TicketID, "month", in.MonthNumber)
	if pr.Observer != nil {
		pr.Observer.Rejected(ctx, "record_payment", err)
	}
}

func (pr *PaymentReconciler) logger() *slog.Logger {
	if pr.Log != nil {
		return pr.Log
	}
	return slog.Default()
}

func (pr *PaymentReconciler) now() time.Time {
	if pr.Now != nil {
		return pr.Now()
	}
	return time.Now().UTC()
}
