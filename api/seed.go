/*
seed.go - Demo group loader for development and demonstrations

PURPOSE:
  Populates the store with one realistic chit group so the API has
  something to show on a fresh database.

THE DEMO GROUP:
  Total ₹1,00,000, 10 members, 15% commission, round-off 50.
  Month 1 is settled with ticket #1 winning at a bid of 6430:

    commission        964.50
    dividend pool    5465.50
    per member        500      (546.55 floored to a multiple of 50)
    carry next        465.50
    amount to collect 9500

  Payments are left open so the statement shows every ticket PENDING.

USAGE VIA API:
  POST /api/demo/seed

  Also run at startup when SEED_DEMO=true.

NOTE:
  Every call creates a new group and new members. Nothing is reset.

SEE ALSO:
  - handlers.go: SeedDemo handler
  - chit/settlement.go: The calculator
*/
package api

import (
	"context"
	"fmt"

	"github.com/warp/chit-engine/chit"
)

// =============================================================================
// DEMO DEFINITION
// =============================================================================

const demoGroupName = "Demo Chit 1L"

var demoMembers = []string{
	"Anitha Raman", "Bharath Kumar", "Chitra Devi", "Dinesh Babu", "Eswari Mohan",
	"Farooq Ali", "Gayathri Suresh", "Hari Prasad", "Indira Nair", "Jagan Mohan",
}

func demoGroupInput() chit.CreateGroupInput {
	return chit.CreateGroupInput{
		Name:            demoGroupName,
		TotalAmount:     chit.Rupees(100000),
		TotalMembers:    len(demoMembers),
		CommissionType:  chit.CommissionPercent,
		CommissionValue: chit.Rupees(15),
		RoundOffValue:   chit.Rupees(50),
	}
}

// =============================================================================
// LOADER
// =============================================================================

// SeedDemo creates the demo group, enrolls its members and settles month 1.
func SeedDemo(ctx context.Context, roster *chit.Roster, auctions *chit.AuctionService) (*chit.Group, error) {
	g, err := roster.CreateGroup(ctx, demoGroupInput())
	if err != nil {
		return nil, fmt.Errorf("create demo group: %w", err)
	}

	var first *chit.Ticket
	for i, name := range demoMembers {
		m, err := roster.CreateMember(ctx, name, fmt.Sprintf("98400%05d", i+1))
		if err != nil {
			return nil, fmt.Errorf("create demo member %q: %w", name, err)
		}
		t, err := roster.Enroll(ctx, chit.EnrollInput{
			GroupID:      g.ID,
			MemberID:     m.ID,
			TicketNumber: i + 1,
		})
		if err != nil {
			return nil, fmt.Errorf("enroll demo member %q: %w", name, err)
		}
		if first == nil {
			first = t
		}
	}

	if _, err := auctions.Settle(ctx, chit.SettleAuctionInput{
		GroupID:        g.ID,
		MonthNumber:    1,
		WinnerTicketID: first.ID,
		OriginalBid:    chit.Rupees(6430),
	}); err != nil {
		return nil, fmt.Errorf("settle demo month 1: %w", err)
	}

	return roster.GetGroup(ctx, g.ID)
}
