/*
Package chit implements the settlement and payment-reconciliation engine for
rotating-savings groups ("chit funds").

PURPOSE:
  A group of N members each contributes a fixed monthly amount into a pool.
  Every month one ticket wins the pool through an auction: the winning bid is
  the discount the winner concedes. That bid, minus the organizer's
  commission, plus any remainder carried from last month, is shared back to
  the members as a dividend that reduces what they owe this month.

KEY CONCEPTS IN THIS FILE (types.go):
  - Group:   Financial configuration (pool, members, commission, round-off)
  - Member:  The person behind a ticket
  - Ticket:  A member's seat in one group, eligible to win exactly once
  - Auction: One month's settlement, persisted verbatim
  - Payment: One collection against a ticket's monthly due

DESIGN PRINCIPLES:
  1. Precision: All money is decimal.Decimal, never float64
  2. Immutability: Auctions and Payments are append-only
  3. Type Safety: Distinct ID types for groups, tickets, auctions, payments

SEE ALSO:
  - settlement.go: The calculator
  - registry.go:   Winner invariants
  - payment.go:    Payment reconciliation
  - store.go:      Persistence interfaces
*/
package chit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// MustMoney parses a decimal string and panics on malformed input.
// Intended for constants and tests.
func MustMoney(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Rupees returns a whole-unit amount.
func Rupees(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// MonthlyAmount is the per-ticket contribution: total / members, rounded
// half-up to two decimal places.
func MonthlyAmount(total decimal.Decimal, members int) decimal.Decimal {
	if members <= 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(members)), 2)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type GroupID string
type MemberID string
type TicketID string
type AuctionID string
type PaymentID string

// NewID returns a random identifier with the given prefix.
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// =============================================================================
// ENUMS
// =============================================================================

type CommissionType string

const (
	CommissionPercent CommissionType = "PERCENT"
	CommissionFixed   CommissionType = "FIXED"
)

func (c CommissionType) Valid() bool {
	return c == CommissionPercent || c == CommissionFixed
}

type GroupStatus string

const (
	GroupPending   GroupStatus = "PENDING"
	GroupActive    GroupStatus = "ACTIVE"
	GroupCompleted GroupStatus = "COMPLETED"
	GroupCancelled GroupStatus = "CANCELLED"
)

// CanTransitionTo reports whether a group may move from s to next.
func (s GroupStatus) CanTransitionTo(next GroupStatus) bool {
	switch s {
	case GroupPending:
		return next == GroupActive || next == GroupCancelled
	case GroupActive:
		return next == GroupCompleted || next == GroupCancelled
	default:
		return false
	}
}

// Closed reports whether no further auctions may be held.
func (s GroupStatus) Closed() bool {
	return s == GroupCompleted || s == GroupCancelled
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodUPI          PaymentMethod = "UPI"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodUPI, MethodBankTransfer:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPartial   PaymentStatus = "PARTIAL"
	PaymentCompleted PaymentStatus = "COMPLETED"
)

// =============================================================================
// ENTITIES
// =============================================================================

// Group is a chit group's financial configuration.
// Financial fields are fixed once the first auction is posted.
type Group struct {
	ID               GroupID
	Name             string
	TotalAmount      decimal.Decimal
	TotalMembers     int
	DurationMonths   int
	MonthlyAmount    decimal.Decimal
	CommissionType   CommissionType
	CommissionValue  decimal.Decimal
	RoundOffValue    decimal.Decimal
	Status           GroupStatus
	AuctionStartDate *time.Time
	CreatedAt        time.Time
}

type Member struct {
	ID        MemberID
	Name      string
	Mobile    string
	Active    bool
	CreatedAt time.Time
}

// Ticket is a member's seat in a group.
type Ticket struct {
	ID           TicketID
	GroupID      GroupID
	TicketNumber int
	MemberID     MemberID
	Active       bool
	CreatedAt    time.Time
}

// Auction is one month's posted settlement. Never updated, never deleted.
type Auction struct {
	ID             AuctionID
	GroupID        GroupID
	MonthNumber    int
	WinnerTicketID TicketID
	OriginalBid    decimal.Decimal
	Settlement     Settlement
	CreatedAt      time.Time
}

// AmountToCollect is what every non-winning ticket owes for the month.
func (a *Auction) AmountToCollect() decimal.Decimal {
	return a.Settlement.AmountToCollect
}

// Payment is one collection row. Status is the snapshot taken at insert time.
type Payment struct {
	ID          PaymentID
	GroupID     GroupID
	TicketID    TicketID
	MonthNumber int
	AmountPaid  decimal.Decimal
	Method      PaymentMethod
	UPIID       string
	PaymentDate time.Time
	Status      PaymentStatus
	Notes       string
	CreatedAt   time.Time
}

// SumPaid totals AmountPaid over payments.
func SumPaid(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountPaid)
	}
	return total
}
