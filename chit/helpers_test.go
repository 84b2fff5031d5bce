package chit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/chit-engine/chit"
	"github.com/warp/chit-engine/chit/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var fixedNow = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal { return chit.MustMoney(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, got.Equal(money(want)), "%s: want %s, got %s", field, want, got)
}

// fixture is a 1,00,000 / 10-member group with 15% commission and a 50 round-off,
// the group used by every literal scenario.
type fixture struct {
	store    *store.Memory
	roster   *chit.Roster
	auctions *chit.AuctionService
	payments *chit.PaymentReconciler
	group    *chit.Group
	tickets  []chit.Ticket // index i holds ticket number i+1
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithCarry(t, chit.CarryLedger{})
}

func newFixtureWithCarry(t *testing.T, carry chit.CarryLedger) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	now := func() time.Time { return fixedNow }

	payments := chit.NewPaymentReconciler(mem)
	payments.Now = now
	f := &fixture{
		store:    mem,
		roster:   &chit.Roster{Store: mem, Now: now},
		auctions: &chit.AuctionService{Store: mem, Carry: carry, Now: now},
		payments: payments,
	}

	g, err := f.roster.CreateGroup(ctx, chit.CreateGroupInput{
		Name:            "Main Street 1L",
		TotalAmount:     chit.Rupees(100000),
		TotalMembers:    10,
		CommissionType:  chit.CommissionPercent,
		CommissionValue: chit.Rupees(15),
		RoundOffValue:   chit.Rupees(50),
	})
	require.NoError(t, err)
	f.group = g

	for i := 1; i <= 10; i++ {
		m, err := f.roster.CreateMember(ctx, fmt.Sprintf("Member %02d", i), "")
		require.NoError(t, err)
		tk, err := f.roster.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: i})
		require.NoError(t, err)
		f.tickets = append(f.tickets, *tk)
	}
	return f
}

func (f *fixture) ticket(n int) chit.TicketID {
	return f.tickets[n-1].ID
}

func (f *fixture) settle(t *testing.T, month, winner int, bid string) *chit.Auction {
	t.Helper()
	a, err := f.auctions.Settle(context.Background(), chit.SettleAuctionInput{
		GroupID:        f.group.ID,
		MonthNumber:    month,
		WinnerTicketID: f.ticket(winner),
		OriginalBid:    money(bid),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) pay(month, ticket int, amount string) (*chit.PaymentReceipt, error) {
	return f.payments.Record(context.Background(), chit.RecordPaymentInput{
		GroupID:     f.group.ID,
		TicketID:    f.ticket(ticket),
		MonthNumber: month,
		AmountPaid:  money(amount),
		Method:      chit.MethodCash,
	})
}

// newFixtureOn creates a second group in f's store and returns its only ticket.
func newFixtureOn(t *testing.T, f *fixture) *chit.Ticket {
	t.Helper()
	ctx := context.Background()

	g, err := f.roster.CreateGroup(ctx, chit.CreateGroupInput{
		Name:            "Side Street 50K",
		TotalAmount:     chit.Rupees(50000),
		TotalMembers:    5,
		CommissionType:  chit.CommissionFixed,
		CommissionValue: chit.Rupees(500),
		RoundOffValue:   chit.Rupees(10),
	})
	require.NoError(t, err)
	m, err := f.roster.CreateMember(ctx, "Outsider", "")
	require.NoError(t, err)
	tk, err := f.roster.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: 1})
	require.NoError(t, err)
	return tk
}
