package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/chit-engine/chit"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var testNow = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

// seedGroup creates the 1L / 10-member / 15% / 50 round-off group with tickets 1..10.
func seedGroup(t *testing.T, store *Store) (*chit.Group, []chit.Ticket) {
	t.Helper()
	ctx := context.Background()
	roster := &chit.Roster{Store: store, Now: func() time.Time { return testNow }}

	start := time.Date(2025, time.April, 5, 0, 0, 0, 0, time.UTC)
	g, err := roster.CreateGroup(ctx, chit.CreateGroupInput{
		Name:             "Main Street 1L",
		TotalAmount:      chit.Rupees(100000),
		TotalMembers:     10,
		CommissionType:   chit.CommissionPercent,
		CommissionValue:  chit.Rupees(15),
		RoundOffValue:    chit.Rupees(50),
		AuctionStartDate: &start,
	})
	require.NoError(t, err)

	var tickets []chit.Ticket
	for i := 1; i <= 10; i++ {
		m, err := roster.CreateMember(ctx, fmt.Sprintf("Member %02d", i), "")
		require.NoError(t, err)
		tk, err := roster.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: i})
		require.NoError(t, err)
		tickets = append(tickets, *tk)
	}
	return g, tickets
}

func TestNew_MigratesFileDatabaseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chit.db")

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Second open sees migrate.ErrNoChange and carries on.
	second, err := New(path)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Ping(context.Background()))
}

func TestStore_GroupRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g, tickets := seedGroup(t, store)

	got, err := store.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Name, got.Name)
	assert.True(t, got.TotalAmount.Equal(chit.Rupees(100000)))
	assert.True(t, got.CommissionValue.Equal(chit.Rupees(15)))
	assert.True(t, got.MonthlyAmount.Equal(chit.Rupees(10000)))
	assert.Equal(t, chit.CommissionPercent, got.CommissionType)
	assert.Equal(t, chit.GroupPending, got.Status)
	require.NotNil(t, got.AuctionStartDate)
	assert.True(t, g.AuctionStartDate.Equal(*got.AuctionStartDate))
	assert.True(t, testNow.Equal(got.CreatedAt))

	listed, err := store.ListTickets(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, listed, 10)
	assert.Equal(t, tickets[0].ID, listed[0].ID)
	assert.True(t, listed[0].Active)

	_, err = store.GetGroup(ctx, "grp-missing")
	assert.True(t, errors.Is(err, chit.ErrGroupNotFound))
}

func TestStore_TicketNumberUniqueness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g, tickets := seedGroup(t, store)

	err := store.SaveTicket(ctx, chit.Ticket{
		ID: "tkt-dup", GroupID: g.ID, TicketNumber: 1, MemberID: tickets[1].MemberID, Active: true, CreatedAt: testNow,
	})
	assert.True(t, errors.Is(err, chit.ErrTicketTaken))

	// Upsert of an existing ticket only flips active.
	tk := tickets[2]
	tk.Active = false
	require.NoError(t, store.SaveTicket(ctx, tk))
	got, err := store.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestStore_AuctionUniquenessMapsToSentinels(t *testing.T) {
	// GIVEN: An auction for month 1 won by ticket #1
	// WHEN: Raw appends collide on (group, month) or on the winner
	// THEN: The store returns ErrMonthTaken and ErrAlreadyWon

	store := newTestStore(t)
	ctx := context.Background()
	g, tickets := seedGroup(t, store)

	s, err := chit.Calculate(chit.InputFor(g, chit.Rupees(6430), chit.Rupees(0)))
	require.NoError(t, err)

	base := chit.Auction{ID: "auc-1", GroupID: g.ID, MonthNumber: 1, WinnerTicketID: tickets[0].ID,
		OriginalBid: chit.Rupees(6430), Settlement: s, CreatedAt: testNow}
	require.NoError(t, store.AppendAuction(ctx, base))

	sameMonth := base
	sameMonth.ID, sameMonth.WinnerTicketID = "auc-2", tickets[1].ID
	assert.True(t, errors.Is(store.AppendAuction(ctx, sameMonth), chit.ErrMonthTaken))

	sameWinner := base
	sameWinner.ID, sameWinner.MonthNumber = "auc-3", 2
	assert.True(t, errors.Is(store.AppendAuction(ctx, sameWinner), chit.ErrAlreadyWon))
}

func TestStore_SettlementSurvivesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g, tickets := seedGroup(t, store)
	auctions := &chit.AuctionService{Store: store, Now: func() time.Time { return testNow }}

	posted, err := auctions.Settle(ctx, chit.SettleAuctionInput{
		GroupID: g.ID, MonthNumber: 1, WinnerTicketID: tickets[2].ID, OriginalBid: chit.MustMoney("6430"),
	})
	require.NoError(t, err)

	got, err := store.AuctionForMonth(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, posted.ID, got.ID)
	assert.Equal(t, "964.5", got.Settlement.Commission.String())
	assert.Equal(t, "546.55", got.Settlement.RawPerMember.String())
	assert.Equal(t, "465.5", got.Settlement.CarryNext.String())
	assert.Equal(t, "9500", got.AmountToCollect().String())

	won, err := store.AuctionWonBy(ctx, tickets[2].ID)
	require.NoError(t, err)
	assert.Equal(t, posted.ID, won.ID)

	// Month 2 reads the stored carry back through the ledger.
	m2, err := auctions.Settle(ctx, chit.SettleAuctionInput{
		GroupID: g.ID, MonthNumber: 2, WinnerTicketID: tickets[6].ID, OriginalBid: chit.MustMoney("7000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "415.5", m2.Settlement.CarryNext.String())

	grp, err := store.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, chit.GroupActive, grp.Status)
}

func TestStore_PaymentFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g, tickets := seedGroup(t, store)
	auctions := &chit.AuctionService{Store: store, Now: func() time.Time { return testNow }}
	payments := &chit.PaymentReconciler{Store: store, Now: func() time.Time { return testNow }}

	_, err := auctions.Settle(ctx, chit.SettleAuctionInput{
		GroupID: g.ID, MonthNumber: 1, WinnerTicketID: tickets[2].ID, OriginalBid: chit.MustMoney("6430"),
	})
	require.NoError(t, err)

	pay := func(amount string) (*chit.PaymentReceipt, error) {
		return payments.Record(ctx, chit.RecordPaymentInput{
			GroupID: g.ID, TicketID: tickets[4].ID, MonthNumber: 1,
			AmountPaid: chit.MustMoney(amount), Method: chit.MethodUPI, UPIID: "m5@upi",
		})
	}

	r1, err := pay("4000")
	require.NoError(t, err)
	assert.Equal(t, chit.PaymentPartial, r1.Payment.Status)

	r2, err := pay("5500")
	require.NoError(t, err)
	assert.Equal(t, chit.PaymentCompleted, r2.Payment.Status)

	_, err = pay("1")
	assert.True(t, errors.Is(err, chit.ErrOverpayment))

	rows, err := store.PaymentsFor(ctx, tickets[4].ID, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, r1.Payment.ID, rows[0].ID)
	assert.Equal(t, "m5@upi", rows[0].UPIID)
	assert.Equal(t, "", rows[0].Notes)
	assert.True(t, testNow.Equal(rows[1].PaymentDate))

	month := 1
	filtered, err := store.ListPayments(ctx, chit.PaymentFilter{GroupID: &g.ID, MonthNumber: &month})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g, _ := seedGroup(t, store)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(s chit.Store) error {
		require.NoError(t, s.UpdateGroupStatus(ctx, g.ID, chit.GroupCancelled))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, chit.GroupPending, got.Status)
}

func TestStore_ConcurrentSettleSameMonth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g, tickets := seedGroup(t, store)
	auctions := chit.NewAuctionService(store, chit.CarryLedger{})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, tk := range tickets {
		wg.Add(1)
		go func(id chit.TicketID) {
			defer wg.Done()
			_, err := auctions.Settle(ctx, chit.SettleAuctionInput{
				GroupID: g.ID, MonthNumber: 1, WinnerTicketID: id, OriginalBid: chit.MustMoney("6430"),
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(tk.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	list, err := store.ListAuctions(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
