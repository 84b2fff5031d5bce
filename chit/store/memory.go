// Package store provides in-memory chit.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/chit-engine/chit"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a chit.TxStore held entirely in maps.
// WithTx holds the write lock for the whole unit of work and restores a
// snapshot if fn fails.
type Memory struct {
	mu sync.RWMutex
	s  *state
}

var _ chit.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{s: newState()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(chit.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.s.clone()
	if err := fn(m.s); err != nil {
		m.s = snapshot
		return err
	}
	return nil
}

func (m *Memory) SaveGroup(ctx context.Context, g chit.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.SaveGroup(ctx, g)
}

func (m *Memory) GetGroup(ctx context.Context, id chit.GroupID) (*chit.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.GetGroup(ctx, id)
}

func (m *Memory) ListGroups(ctx context.Context, filter chit.GroupFilter) ([]chit.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.ListGroups(ctx, filter)
}

func (m *Memory) UpdateGroupStatus(ctx context.Context, id chit.GroupID, status chit.GroupStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.UpdateGroupStatus(ctx, id, status)
}

func (m *Memory) SaveMember(ctx context.Context, mem chit.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.SaveMember(ctx, mem)
}

func (m *Memory) GetMember(ctx context.Context, id chit.MemberID) (*chit.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.GetMember(ctx, id)
}

func (m *Memory) ListMembers(ctx context.Context) ([]chit.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.ListMembers(ctx)
}

func (m *Memory) SaveTicket(ctx context.Context, t chit.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.SaveTicket(ctx, t)
}

func (m *Memory) GetTicket(ctx context.Context, id chit.TicketID) (*chit.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.GetTicket(ctx, id)
}

func (m *Memory) ListTickets(ctx context.Context, groupID chit.GroupID) ([]chit.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.ListTickets(ctx, groupID)
}

func (m *Memory) AppendAuction(ctx context.Context, a chit.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.AppendAuction(ctx, a)
}

func (m *Memory) GetAuction(ctx context.Context, id chit.AuctionID) (*chit.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.GetAuction(ctx, id)
}

func (m *Memory) AuctionForMonth(ctx context.Context, groupID chit.GroupID, month int) (*chit.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.AuctionForMonth(ctx, groupID, month)
}

func (m *Memory) AuctionWonBy(ctx context.Context, ticketID chit.TicketID) (*chit.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.AuctionWonBy(ctx, ticketID)
}

func (m *Memory) ListAuctions(ctx context.Context, groupID chit.GroupID) ([]chit.Auction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.ListAuctions(ctx, groupID)
}

func (m *Memory) AppendPayment(ctx context.Context, p chit.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.AppendPayment(ctx, p)
}

func (m *Memory) PaymentsFor(ctx context.Context, ticketID chit.TicketID, month int) ([]chit.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.PaymentsFor(ctx, ticketID, month)
}

func (m *Memory) ListPayments(ctx context.Context, filter chit.PaymentFilter) ([]chit.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.ListPayments(ctx, filter)
}

// =============================================================================
// STATE - Unlocked view, also handed to WithTx callbacks
// =============================================================================

type ticketKey struct {
	GroupID chit.GroupID
	Number  int
}

type monthKey struct {
	GroupID chit.GroupID
	Month   int
}

type paymentKey struct {
	TicketID chit.TicketID
	Month    int
}

type state struct {
	groups        map[chit.GroupID]chit.Group
	members       map[chit.MemberID]chit.Member
	tickets       map[chit.TicketID]chit.Ticket
	ticketNumbers map[ticketKey]chit.TicketID

	auctions map[chit.AuctionID]chit.Auction
	byMonth  map[monthKey]chit.AuctionID
	wonBy    map[chit.TicketID]chit.AuctionID

	payments      []chit.Payment // insertion order
	paymentsByKey map[paymentKey][]int
}

func newState() *state {
	return &state{
		groups:        make(map[chit.GroupID]chit.Group),
		members:       make(map[chit.MemberID]chit.Member),
		tickets:       make(map[chit.TicketID]chit.Ticket),
		ticketNumbers: make(map[ticketKey]chit.TicketID),
		auctions:      make(map[chit.AuctionID]chit.Auction),
		byMonth:       make(map[monthKey]chit.AuctionID),
		wonBy:         make(map[chit.TicketID]chit.AuctionID),
		paymentsByKey: make(map[paymentKey][]int),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.groups {
		c.groups[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.ticketNumbers {
		c.ticketNumbers[k] = v
	}
	for k, v := range s.auctions {
		c.auctions[k] = v
	}
	for k, v := range s.byMonth {
		c.byMonth[k] = v
	}
	for k, v := range s.wonBy {
		c.wonBy[k] = v
	}
	c.payments = append([]chit.Payment(nil), s.payments...)
	for k, v := range s.paymentsByKey {
		c.paymentsByKey[k] = append([]int(nil), v...)
	}
	return c
}

func (s *state) SaveGroup(_ context.Context, g chit.Group) error {
	s.groups[g.ID] = g
	return nil
}

func (s *state) GetGroup(_ context.Context, id chit.GroupID) (*chit.Group, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, chit.ErrGroupNotFound
	}
	return &g, nil
}

func (s *state) ListGroups(_ context.Context, filter chit.GroupFilter) ([]chit.Group, error) {
	var out []chit.Group
	for _, g := range s.groups {
		if filter.Status != nil && g.Status != *filter.Status {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *state) UpdateGroupStatus(_ context.Context, id chit.GroupID, status chit.GroupStatus) error {
	g, ok := s.groups[id]
	if !ok {
		return chit.ErrGroupNotFound
	}
	g.Status = status
	s.groups[id] = g
	return nil
}

func (s *state) SaveMember(_ context.Context, m chit.Member) error {
	s.members[m.ID] = m
	return nil
}

func (s *state) GetMember(_ context.Context, id chit.MemberID) (*chit.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, chit.ErrMemberNotFound
	}
	return &m, nil
}

func (s *state) ListMembers(_ context.Context) ([]chit.Member, error) {
	out := make([]chit.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *state) SaveTicket(_ context.Context, t chit.Ticket) error {
	k := ticketKey{GroupID: t.GroupID, Number: t.TicketNumber}
	if existing, ok := s.ticketNumbers[k]; ok && existing != t.ID {
		return chit.ErrTicketTaken
	}
	s.tickets[t.ID] = t
	s.ticketNumbers[k] = t.ID
	return nil
}

func (s *state) GetTicket(_ context.Context, id chit.TicketID) (*chit.Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, chit.ErrTicketNotFound
	}
	return &t, nil
}

func (s *state) ListTickets(_ context.Context, groupID chit.GroupID) ([]chit.Ticket, error) {
	var out []chit.Ticket
	for _, t := range s.tickets {
		if t.GroupID == groupID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNumber < out[j].TicketNumber })
	return out, nil
}

// AppendAuction enforces both uniqueness indexes before writing anything.
func (s *state) AppendAuction(_ context.Context, a chit.Auction) error {
	mk := monthKey{GroupID: a.GroupID, Month: a.MonthNumber}
	if _, ok := s.byMonth[mk]; ok {
		return chit.ErrMonthTaken
	}
	if _, ok := s.wonBy[a.WinnerTicketID]; ok {
		return chit.ErrAlreadyWon
	}
	s.auctions[a.ID] = a
	s.byMonth[mk] = a.ID
	s.wonBy[a.WinnerTicketID] = a.ID
	return nil
}

func (s *state) GetAuction(_ context.Context, id chit.AuctionID) (*chit.Auction, error) {
	a, ok := s.auctions[id]
	if !ok {
		return nil, chit.ErrAuctionNotFound
	}
	return &a, nil
}

func (s *state) AuctionForMonth(_ context.Context, groupID chit.GroupID, month int) (*chit.Auction, error) {
	id, ok := s.byMonth[monthKey{GroupID: groupID, Month: month}]
	if !ok {
		return nil, chit.ErrAuctionNotFound
	}
	a := s.auctions[id]
	return &a, nil
}

func (s *state) AuctionWonBy(_ context.Context, ticketID chit.TicketID) (*chit.Auction, error) {
	id, ok := s.wonBy[ticketID]
	if !ok {
		return nil, chit.ErrAuctionNotFound
	}
	a := s.auctions[id]
	return &a, nil
}

func (s *state) ListAuctions(_ context.Context, groupID chit.GroupID) ([]chit.Auction, error) {
	var out []chit.Auction
	for _, a := range s.auctions {
		if a.GroupID == groupID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthNumber < out[j].MonthNumber })
	return out, nil
}

func (s *state) AppendPayment(_ context.Context, p chit.Payment) error {
	k := paymentKey{TicketID: p.TicketID, Month: p.MonthNumber}
	s.payments = append(s.payments, p)
	s.paymentsByKey[k] = append(s.paymentsByKey[k], len(s.payments)-1)
	return nil
}

func (s *state) PaymentsFor(_ context.Context, ticketID chit.TicketID, month int) ([]chit.Payment, error) {
	idx := s.paymentsByKey[paymentKey{TicketID: ticketID, Month: month}]
	out := make([]chit.Payment, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.payments[i])
	}
	return out, nil
}

func (s *state) ListPayments(_ context.Context, filter chit.PaymentFilter) ([]chit.Payment, error) {
	var out []chit.Payment
	for _, p := range s.payments {
		if filter.GroupID != nil && p.GroupID != *filter.GroupID {
			continue
		}
		if filter.TicketID != nil && p.TicketID != *filter.TicketID {
			continue
		}
		if filter.MonthNumber != nil && p.MonthNumber != *filter.MonthNumber {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
