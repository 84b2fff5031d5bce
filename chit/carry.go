package chit

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CarryLedger resolves carry_previous for a month from the month before it.
//
// The lookup is keyed on exactly month-1. With Sequential unset, a missing
// month-1 auction yields zero carry even if an earlier month carried a
// remainder. With Sequential set, settling month M > 1 before month M-1 is
// rejected as not ready, so the chain can never silently reset.
type CarryLedger struct {
	Sequential bool
}

// Resolve returns the carry owed into month for the group.
func (c CarryLedger) Resolve(ctx context.Context, s LedgerStore, groupID GroupID, month int) (decimal.Decimal, error) {
	if month < 1 {
		return decimal.Zero, validationError(map[string]any{"month_number": month},
			"month_number must be at least 1")
	}
	if month == 1 {
		return decimal.Zero, nil
	}

	prev, err := s.AuctionForMonth(ctx, groupID, month-1)
	if errors.Is(err, ErrAuctionNotFound) {
		if c.Sequential {
			return decimal.Zero, newError(KindNotReady,
				map[string]any{"group_id": groupID, "month_number": month, "missing_month": month - 1},
				"Month %d must be auctioned before month %d", month-1, month)
		}
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load month %d auction: %w", month-1, err)
	}
	return prev.Settlement.CarryNext, nil
}
