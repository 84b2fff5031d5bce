/*
auction.go - Monthly auction posting

PURPOSE:
  Posts one month's auction for a group as a single atomic unit of work:

  ┌──────────────────────────────────────────────────────────────────┐
  │                                                                  │
  │  load group   WinnerRegistry   CarryLedger    Calculate   Register│
  │  + ticket ──▶    .Check    ──▶  .Resolve  ──▶  (pure)  ──▶ append │
  │                                                                  │
  │              └──────────── one TxStore.WithTx ────────────┘      │
  │                                                                  │
  └──────────────────────────────────────────────────────────────────┘

  Everything inside the box sees one consistent view of the ledger, so two
  concurrent requests for the same month (or the same winning ticket)
  cannot both pass validation and both insert.

GROUP LIFECYCLE:
  - The first posted auction moves a PENDING group to ACTIVE.
  - When every month of the group's duration is settled it becomes COMPLETED.
  - CANCELLED and COMPLETED groups accept no further auctions.

PREVIEW:
  Preview runs the same validation and calculation without writing, so a
  caller can show the numbers before confirming.

SEE ALSO:
  - settlement.go: The calculator
  - registry.go:   Winner invariants
  - carry.go:      carry_previous resolution
*/
package chit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// SettleAuctionInput is a request to post an auction.
type SettleAuctionInput struct {
	GroupID        GroupID
	MonthNumber    int
	WinnerTicketID TicketID
	OriginalBid    decimal.Decimal
}

// AuctionService posts and reads auctions.
type AuctionService struct {
	Store    TxStore
	Carry    CarryLedger
	Registry WinnerRegistry
	Observer Observer
	Log      *slog.Logger
	Now      func() time.Time
}

// NewAuctionService creates a service with default collaborators.
func NewAuctionService(store TxStore, carry CarryLedger) *AuctionService {
	return &AuctionService{Store: store, Carry: carry}
}

// Settle validates, calculates and appends the auction for one month.
func (as *AuctionService) Settle(ctx context.Context, in SettleAuctionInput) (*Auction, error) {
	var (
		posted Auction
		group  Group
	)
	err := as.Store.WithTx(ctx, func(s Store) error {
		g, ticket, err := as.prepare(ctx, s, in)
		if err != nil {
			return err
		}
		settlement, err := as.calculate(ctx, s, g, in)
		if err != nil {
			return err
		}

		posted = Auction{
			ID:             AuctionID(NewID("auc")),
			GroupID:        g.ID,
			MonthNumber:    in.MonthNumber,
			WinnerTicketID: ticket.ID,
			OriginalBid:    in.OriginalBid,
			Settlement:     settlement,
			CreatedAt:      as.now(),
		}
		if err := as.Registry.Register(ctx, s, posted); err != nil {
			return err
		}

		if err := as.advanceGroup(ctx, s, g); err != nil {
			return err
		}
		group = *g
		return nil
	})
	if err != nil {
		as.reject(ctx, "settle_auction", err, "group_id", in.GroupID, "month", in.MonthNumber)
		return nil, err
	}

	as.logger().InfoContext(ctx, "auction settled",
		"group_id", posted.GroupID,
		"month", posted.MonthNumber,
		"winner_ticket_id", posted.WinnerTicketID,
		"bid", posted.OriginalBid.String(),
		"per_member_dividend", posted.Settlement.PerMemberDividend.String(),
		"carry_next", posted.Settlement.CarryNext.String(),
	)
	if as.Observer != nil {
		if err := as.Observer.AuctionSettled(ctx, group, posted); err != nil {
			as.logger().WarnContext(ctx, "auction observer failed", "auction_id", posted.ID, "error", err)
		}
	}
	return &posted, nil
}

// Preview returns the settlement Settle would post, without writing anything.
func (as *AuctionService) Preview(ctx context.Context, in SettleAuctionInput) (*Settlement, error) {
	var result Settlement
	err := as.Store.WithTx(ctx, func(s Store) error {
		g, _, err := as.prepare(ctx, s, in)
		if err != nil {
			return err
		}
		result, err = as.calculate(ctx, s, g, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Get returns one auction.
func (as *AuctionService) Get(ctx context.Context, id AuctionID) (*Auction, error) {
	a, err := as.Store.GetAuction(ctx, id)
	if errors.Is(err, ErrAuctionNotFound) {
		return nil, notFoundError("auction", id)
	}
	return a, err
}

// List returns a group's auctions ordered by month.
func (as *AuctionService) List(ctx context.Context, groupID GroupID) ([]Auction, error) {
	if _, err := loadGroup(ctx, as.Store, groupID); err != nil {
		return nil, err
	}
	return as.Store.ListAuctions(ctx, groupID)
}

// prepare loads the group and ticket and runs every check that precedes calculation.
func (as *AuctionService) prepare(ctx context.Context, s Store, in SettleAuctionInput) (*Group, *Ticket, error) {
	g, err := loadGroup(ctx, s, in.GroupID)
	if err != nil {
		return nil, nil, err
	}
	if g.Status.Closed() {
		return nil, nil, validationError(map[string]any{"group_id": g.ID, "status": g.Status},
			"Chit group is %s and accepts no auctions", g.Status)
	}
	if in.MonthNumber < 1 || in.MonthNumber > g.DurationMonths {
		return nil, nil, validationError(
			map[string]any{"month_number": in.MonthNumber, "duration_months": g.DurationMonths},
			"month_number must be between 1 and %d", g.DurationMonths)
	}

	ticket, err := s.GetTicket(ctx, in.WinnerTicketID)
	if errors.Is(err, ErrTicketNotFound) {
		return nil, nil, notFoundError("ticket", in.WinnerTicketID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	if err := as.Registry.Check(ctx, s, g, ticket, in.MonthNumber); err != nil {
		return nil, nil, err
	}
	return g, ticket, nil
}

func (as *AuctionService) calculate(ctx context.Context, s Store, g *Group, in SettleAuctionInput) (Settlement, error) {
	carry, err := as.Carry.Resolve(ctx, s, g.ID, in.MonthNumber)
	if err != nil {
		return Settlement{}, err
	}
	return Calculate(InputFor(g, in.OriginalBid, carry))
}

// advanceGroup moves the group along its lifecycle after an auction is appended.
func (as *AuctionService) advanceGroup(ctx context.Context, s Store, g *Group) error {
	if g.Status == GroupPending {
		if err := s.UpdateGroupStatus(ctx, g.ID, GroupActive); err != nil {
			return fmt.Errorf("failed to activate group: %w", err)
		}
		g.Status = GroupActive
	}

	auctions, err := s.ListAuctions(ctx, g.ID)
	if err != nil {
		return fmt.Errorf("failed to count auctions: %w", err)
	}
	if len(auctions) >= g.DurationMonths {
		if err := s.UpdateGroupStatus(ctx, g.ID, GroupCompleted); err != nil {
			return fmt.Errorf("failed to complete group: %w", err)
		}
		g.Status = GroupCompleted
	}
	return nil
}

func (as *AuctionService) reject(ctx context.Context, op string, err error, args ...any) {
	logRejection(ctx, as.logger(), op, err, args...)
	if as.Observer != nil {
		as.Observer.Rejected(ctx, op, err)
	}
}

func (as *AuctionService) logger() *slog.Logger {
	if as.Log != nil {
		return as.Log
	}
	return slog.Default()
}

func (as *AuctionService) now() time.Time {
	if as.Now != nil {
		return as.Now()
	}
	return time.Now().UTC()
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func loadGroup(ctx context.Context, s GroupStore, id GroupID) (*Group, error) {
	g, err := s.GetGroup(ctx, id)
	if errors.Is(err, ErrGroupNotFound) {
		return nil, notFoundError("group", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	return g, nil
}

func logRejection(ctx context.Context, log *slog.Logger, op string, err error, args ...any) {
	args = append(args, "op", op, "error", err)
	if IsClientError(err) {
		log.InfoContext(ctx, "request rejected", append(args, "kind", KindOf(err))...)
		return
	}
	log.ErrorContext(ctx, "operation failed", args...)
}
