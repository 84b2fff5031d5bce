/*
store.go - Persistence interfaces for groups, tickets, auctions and payments

PURPOSE:
  Defines the boundary between the engine and the database. The engine
  never issues SQL; it asks a Store for what it needs and appends results.

KEY INTERFACES:
  GroupStore:  Groups, members and tickets (the roster)
  LedgerStore: Auctions and payments (APPEND-ONLY)
  TxStore:     Runs a unit of work atomically

APPEND-ONLY CONTRACT:
  LedgerStore has no Update or Delete for auctions or payments.
  A posted auction is final; a payment row keeps the status it was born with.

UNIQUENESS:
  Implementations MUST reject, inside AppendAuction:
  - a second auction for the same (group, month)  -> ErrMonthTaken
  - a second auction won by the same ticket        -> ErrAlreadyWon
  These back up the checks WinnerRegistry performs first, so a race that
  slips past the checks still cannot persist.

ATOMICITY:
  Check-then-append sequences (auction creation, payment reconciliation)
  run inside WithTx. The Store passed to fn sees its own writes; if fn
  returns an error nothing it wrote is kept.

IMPLEMENTATIONS:
  - chit/store/memory.go:  In-memory, for tests and demos
  - store/sqlite/sqlite.go: SQLite
*/
package chit

import "context"

// GroupFilter narrows ListGroups. Zero value lists everything.
type GroupFilter struct {
	Status *GroupStatus
}

// PaymentFilter narrows ListPayments. Zero value lists everything.
type PaymentFilter struct {
	GroupID     *GroupID
	TicketID    *TicketID
	MonthNumber *int
}

// GroupStore persists the roster.
type GroupStore interface {
	SaveGroup(ctx context.Context, g Group) error
	GetGroup(ctx context.Context, id GroupID) (*Group, error)
	ListGroups(ctx context.Context, filter GroupFilter) ([]Group, error)
	UpdateGroupStatus(ctx context.Context, id GroupID, status GroupStatus) error

	SaveMember(ctx context.Context, m Member) error
	GetMember(ctx context.Context, id MemberID) (*Member, error)
	ListMembers(ctx context.Context) ([]Member, error)

	// SaveTicket returns ErrTicketTaken if the number is used in the group.
	SaveTicket(ctx context.Context, t Ticket) error
	GetTicket(ctx context.Context, id TicketID) (*Ticket, error)
	// ListTickets returns a group's tickets ordered by ticket number.
	ListTickets(ctx context.Context, groupID GroupID) ([]Ticket, error)
}

// LedgerStore persists auctions and payments. Append-only.
type LedgerStore interface {
	// AppendAuction returns ErrMonthTaken or ErrAlreadyWon on uniqueness violations.
	AppendAuction(ctx context.Context, a Auction) error
	GetAuction(ctx context.Context, id AuctionID) (*Auction, error)
	// AuctionForMonth returns ErrAuctionNotFound if the month is not settled.
	AuctionForMonth(ctx context.Context, groupID GroupID, month int) (*Auction, error)
	// AuctionWonBy returns ErrAuctionNotFound if the ticket never won.
	AuctionWonBy(ctx context.Context, ticketID TicketID) (*Auction, error)
	// ListAuctions returns a group's auctions ordered by month.
	ListAuctions(ctx context.Context, groupID GroupID) ([]Auction, error)

	AppendPayment(ctx context.Context, p Payment) error
	// PaymentsFor returns the rows for (ticket, month) in insertion order.
	PaymentsFor(ctx context.Context, ticketID TicketID, month int) ([]Payment, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
}

// Store is the full persistence surface.
type Store interface {
	GroupStore
	LedgerStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
