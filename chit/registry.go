/*
registry.go - Winner invariants for auction creation

PURPOSE:
  Guards the two uniqueness rules of the auction ledger:

  INVARIANT 1: At most one auction per (group, month).
  INVARIANT 2: A ticket wins at most once, ever.

  And the referential rule: the winner must hold a ticket in the group.

WHY BOTH A CHECK AND A STORE CONSTRAINT?
  Check() produces precise, user-facing rejections before anything is
  written. Register() appends and translates the store's own uniqueness
  errors, which is what actually holds the line under concurrency.

  Both must run inside the same TxStore.WithTx unit of work.

LOOKUP COST:
  "Has this ticket won?" is an index lookup keyed by ticket id
  (LedgerStore.AuctionWonBy), not a scan over the group's auctions.

SEE ALSO:
  - auction.go: AuctionService runs Check, then Calculate, then Register
  - store.go:   ErrMonthTaken / ErrAlreadyWon contract
*/
package chit

import (
	"context"
	"errors"
	"fmt"
)

// WinnerRegistry enforces the month and single-win rules for auctions.
type WinnerRegistry struct{}

// Check validates a proposed winner for (group, month) without writing.
func (WinnerRegistry) Check(ctx context.Context, s LedgerStore, g *Group, t *Ticket, month int) error {
	if t.GroupID != g.ID {
		return validationError(map[string]any{"group_id": g.ID, "ticket_id": t.ID},
			"Winner is not a member of this chit group")
	}
	if !t.Active {
		return validationError(map[string]any{"ticket_id": t.ID}, "This ticket is inactive")
	}

	if _, err := s.AuctionForMonth(ctx, g.ID, month); err == nil {
		return newError(KindConflict, map[string]any{"group_id": g.ID, "month_number": month},
			"Month %d already has an auction", month)
	} else if !errors.Is(err, ErrAuctionNotFound) {
		return fmt.Errorf("failed to check month %d: %w", month, err)
	}

	won, err := s.AuctionWonBy(ctx, t.ID)
	if err == nil {
		return &AlreadyWonError{TicketID: t.ID, AuctionID: won.ID, MonthNumber: won.MonthNumber}
	}
	if !errors.Is(err, ErrAuctionNotFound) {
		return fmt.Errorf("failed to check ticket %s: %w", t.ID, err)
	}
	return nil
}

// Register appends the auction, mapping store uniqueness errors to rejections.
func (WinnerRegistry) Register(ctx context.Context, s LedgerStore, a Auction) error {
	err := s.AppendAuction(ctx, a)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMonthTaken):
		return newError(KindConflict, map[string]any{"group_id": a.GroupID, "month_number": a.MonthNumber},
			"Month %d already has an auction", a.MonthNumber)
	case errors.Is(err, ErrAlreadyWon):
		return &AlreadyWonError{TicketID: a.WinnerTicketID}
	}
	return fmt.Errorf("failed to append auction: %w", err)
}
