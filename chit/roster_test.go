package chit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/chit-engine/chit"
	"github.com/warp/chit-engine/chit/store"
)

func newRoster() *chit.Roster {
	r := chit.NewRoster(store.NewMemory())
	r.Now = func() time.Time { return fixedNow }
	return r
}

func validGroupInput() chit.CreateGroupInput {
	return chit.CreateGroupInput{
		Name:            "  Temple Road 1L  ",
		TotalAmount:     chit.Rupees(100000),
		TotalMembers:    10,
		CommissionType:  chit.CommissionPercent,
		CommissionValue: chit.Rupees(5),
		RoundOffValue:   chit.Rupees(100),
	}
}

// =============================================================================
// GROUPS
// =============================================================================

func TestCreateGroup_DerivesScheduleAndInstallment(t *testing.T) {
	r := newRoster()

	g, err := r.CreateGroup(context.Background(), validGroupInput())
	require.NoError(t, err)

	assert.Equal(t, "Temple Road 1L", g.Name)
	assert.Equal(t, chit.GroupPending, g.Status)
	assert.Equal(t, 10, g.DurationMonths)
	assertMoney(t, "10000", g.MonthlyAmount, "monthly_amount")
	assert.Contains(t, string(g.ID), "grp-")
}

func TestCreateGroup_RejectsBadConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*chit.CreateGroupInput)
	}{
		{"blank name", func(in *chit.CreateGroupInput) { in.Name = "  " }},
		{"one member", func(in *chit.CreateGroupInput) { in.TotalMembers = 1 }},
		{"zero pool", func(in *chit.CreateGroupInput) { in.TotalAmount = money("0") }},
		{"zero round-off", func(in *chit.CreateGroupInput) { in.RoundOffValue = money("0") }},
		{"negative commission", func(in *chit.CreateGroupInput) { in.CommissionValue = money("-1") }},
		{"unknown commission type", func(in *chit.CreateGroupInput) { in.CommissionType = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validGroupInput()
			tt.mutate(&in)
			_, err := newRoster().CreateGroup(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, chit.ErrValidation))
		})
	}
}

func TestTransitionGroup_FollowsLifecycle(t *testing.T) {
	// GIVEN: A PENDING group
	// WHEN: It is activated, then moved back to PENDING, then cancelled
	// THEN: Only forward moves are allowed

	r := newRoster()
	ctx := context.Background()
	g, err := r.CreateGroup(ctx, validGroupInput())
	require.NoError(t, err)

	g, err = r.TransitionGroup(ctx, g.ID, chit.GroupActive)
	require.NoError(t, err)
	assert.Equal(t, chit.GroupActive, g.Status)

	_, err = r.TransitionGroup(ctx, g.ID, chit.GroupPending)
	assert.True(t, errors.Is(err, chit.ErrValidation))

	_, err = r.TransitionGroup(ctx, g.ID, chit.GroupCancelled)
	require.NoError(t, err)

	_, err = r.TransitionGroup(ctx, g.ID, chit.GroupActive)
	assert.True(t, errors.Is(err, chit.ErrValidation))

	_, err = r.TransitionGroup(ctx, "grp-missing", chit.GroupActive)
	assert.True(t, chit.IsNotFound(err))
}

func TestListGroups_FiltersByStatus(t *testing.T) {
	r := newRoster()
	ctx := context.Background()

	a, err := r.CreateGroup(ctx, validGroupInput())
	require.NoError(t, err)
	_, err = r.CreateGroup(ctx, validGroupInput())
	require.NoError(t, err)
	_, err = r.TransitionGroup(ctx, a.ID, chit.GroupActive)
	require.NoError(t, err)

	all, err := r.ListGroups(ctx, chit.GroupFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active := chit.GroupActive
	only, err := r.ListGroups(ctx, chit.GroupFilter{Status: &active})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, a.ID, only[0].ID)
}

// =============================================================================
// MEMBERS AND TICKETS
// =============================================================================

func TestEnroll_TicketNumbersAreUniquePerGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.roster.CreateMember(ctx, "Late Joiner", "9800000000")
	require.NoError(t, err)

	_, err = f.roster.Enroll(ctx, chit.EnrollInput{GroupID: f.group.ID, MemberID: m.ID, TicketNumber: 4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, chit.ErrConflict))
	assert.Equal(t, "Ticket #4 is already taken", err.Error())
}

func TestEnroll_RejectsFullGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.roster.CreateMember(ctx, "Late Joiner", "")
	require.NoError(t, err)

	_, err = f.roster.Enroll(ctx, chit.EnrollInput{GroupID: f.group.ID, MemberID: m.ID, TicketNumber: 11})
	require.Error(t, err)
	assert.True(t, errors.Is(err, chit.ErrConflict))
	assert.Equal(t, "Chit group is full. Max 10 members allowed", err.Error())
}

func TestEnroll_SameMemberMayHoldSeveralTickets(t *testing.T) {
	r := newRoster()
	ctx := context.Background()
	g, err := r.CreateGroup(ctx, validGroupInput())
	require.NoError(t, err)
	m, err := r.CreateMember(ctx, "Two Tickets", "")
	require.NoError(t, err)

	for n := 1; n <= 2; n++ {
		_, err := r.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: n})
		require.NoError(t, err)
	}

	tickets, err := r.ListTickets(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, 1, tickets[0].TicketNumber)
	assert.Equal(t, 2, tickets[1].TicketNumber)
}

func TestEnroll_RejectsUnknownReferences(t *testing.T) {
	r := newRoster()
	ctx := context.Background()
	g, err := r.CreateGroup(ctx, validGroupInput())
	require.NoError(t, err)
	m, err := r.CreateMember(ctx, "Someone", "")
	require.NoError(t, err)

	_, err = r.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: "mem-missing", TicketNumber: 1})
	assert.True(t, chit.IsNotFound(err))

	_, err = r.Enroll(ctx, chit.EnrollInput{GroupID: "grp-missing", MemberID: m.ID, TicketNumber: 1})
	assert.True(t, chit.IsNotFound(err))

	_, err = r.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: 0})
	assert.True(t, errors.Is(err, chit.ErrValidation))
}

func TestMembers_CreateGetList(t *testing.T) {
	r := newRoster()
	ctx := context.Background()

	_, err := r.CreateMember(ctx, "", "")
	assert.True(t, errors.Is(err, chit.ErrValidation))

	b, err := r.CreateMember(ctx, "Bala", "9000000001")
	require.NoError(t, err)
	_, err = r.CreateMember(ctx, "Anu", "")
	require.NoError(t, err)

	got, err := r.GetMember(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "9000000001", got.Mobile)
	assert.True(t, got.Active)

	_, err = r.GetMember(ctx, "mem-missing")
	assert.True(t, chit.IsNotFound(err))

	list, err := r.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Anu", list[0].Name)
}

func TestDeactivateTicket(t *testing.T) {
	// GIVEN: A group with ticket #1 enrolled
	// WHEN: The ticket is deactivated, twice
	// THEN: It stays listed but inactive, and its number stays taken

	r := newRoster()
	ctx := context.Background()
	g, err := r.CreateGroup(ctx, validGroupInput())
	require.NoError(t, err)
	m, err := r.CreateMember(ctx, "Kala", "")
	require.NoError(t, err)
	tk, err := r.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: 1})
	require.NoError(t, err)

	got, err := r.DeactivateTicket(ctx, g.ID, tk.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	got, err = r.DeactivateTicket(ctx, g.ID, tk.ID)
	require.NoError(t, err, "deactivating twice is a no-op")
	assert.False(t, got.Active)

	tickets, err := r.ListTickets(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.False(t, tickets[0].Active)

	_, err = r.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: 1})
	assert.True(t, errors.Is(err, chit.ErrConflict))
}

func TestDeactivateTicket_RejectsBadReferences(t *testing.T) {
	r := newRoster()
	ctx := context.Background()
	g, err := r.CreateGroup(ctx, validGroupInput())
	require.NoError(t, err)
	other, err := r.CreateGroup(ctx, validGroupInput())
	require.NoError(t, err)
	m, err := r.CreateMember(ctx, "Kala", "")
	require.NoError(t, err)
	tk, err := r.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: 1})
	require.NoError(t, err)

	_, err = r.DeactivateTicket(ctx, g.ID, "tkt-missing")
	assert.True(t, chit.IsNotFound(err))

	_, err = r.DeactivateTicket(ctx, "grp-missing", tk.ID)
	assert.True(t, chit.IsNotFound(err))

	_, err = r.DeactivateTicket(ctx, other.ID, tk.ID)
	assert.True(t, errors.Is(err, chit.ErrValidation))

	got, err := r.ListTickets(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got[0].Active, "rejected deactivation must not write")
}

func TestDeactivateMember_BlocksNewEnrollment(t *testing.T) {
	// GIVEN: A member holding ticket #1
	// WHEN: The member is deactivated
	// THEN: They cannot be enrolled again, and the existing ticket is untouched

	r := newRoster()
	ctx := context.Background()
	g, err := r.CreateGroup(ctx, validGroupInput())
	require.NoError(t, err)
	m, err := r.CreateMember(ctx, "Kala", "")
	require.NoError(t, err)
	_, err = r.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: 1})
	require.NoError(t, err)

	got, err := r.DeactivateMember(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = r.Enroll(ctx, chit.EnrollInput{GroupID: g.ID, MemberID: m.ID, TicketNumber: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, chit.ErrValidation))
	assert.Equal(t, "This member is inactive", err.Error())

	tickets, err := r.ListTickets(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.True(t, tickets[0].Active)

	_, err = r.DeactivateMember(ctx, "mem-missing")
	assert.True(t, chit.IsNotFound(err))
}
