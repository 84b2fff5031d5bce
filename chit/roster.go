package chit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CreateGroupInput describes a new chit group.
type CreateGroupInput struct {
	Name             string
	TotalAmount      decimal.Decimal
	TotalMembers     int
	CommissionType   CommissionType
	CommissionValue  decimal.Decimal
	RoundOffValue    decimal.Decimal
	AuctionStartDate *time.Time
}

// EnrollInput puts a member into a group under a ticket number.
type EnrollInput struct {
	GroupID      GroupID
	MemberID     MemberID
	TicketNumber int
}

// Roster manages groups, members and tickets.
type Roster struct {
	Store TxStore
	Log   *slog.Logger
	Now   func() time.Time
}

// NewRoster creates a roster over the given store.
func NewRoster(store TxStore) *Roster {
	return &Roster{Store: store}
}

// CreateGroup validates the financial configuration and saves a PENDING group.
func (r *Roster) CreateGroup(ctx context.Context, in CreateGroupInput) (*Group, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationError(nil, "name is required")
	}
	if in.TotalMembers < 2 {
		return nil, validationError(map[string]any{"total_members": in.TotalMembers},
			"total_members must be at least 2")
	}
	// The calculator preconditions apply to the group too; a bid of the full
	// pool is the loosest valid bid.
	candidate := SettlementInput{
		TotalAmount:     in.TotalAmount,
		TotalMembers:    in.TotalMembers,
		OriginalBid:     in.TotalAmount,
		CommissionType:  in.CommissionType,
		CommissionValue: in.CommissionValue,
		RoundOffValue:   in.RoundOffValue,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	g := Group{
		ID:               GroupID(NewID("grp")),
		Name:             strings.TrimSpace(in.Name),
		TotalAmount:      in.TotalAmount,
		TotalMembers:     in.TotalMembers,
		DurationMonths:   in.TotalMembers,
		MonthlyAmount:    MonthlyAmount(in.TotalAmount, in.TotalMembers),
		CommissionType:   in.CommissionType,
		CommissionValue:  in.CommissionValue,
		RoundOffValue:    in.RoundOffValue,
		Status:           GroupPending,
		AuctionStartDate: in.AuctionStartDate,
		CreatedAt:        r.now(),
	}
	if err := r.Store.SaveGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to save group: %w", err)
	}
	r.logger().InfoContext(ctx, "group created", "group_id", g.ID, "total_amount", g.TotalAmount.String(),
		"members", g.TotalMembers)
	return &g, nil
}

func (r *Roster) GetGroup(ctx context.Context, id GroupID) (*Group, error) {
	return loadGroup(ctx, r.Store, id)
}

func (r *Roster) ListGroups(ctx context.Context, filter GroupFilter) ([]Group, error) {
	return r.Store.ListGroups(ctx, filter)
}

// TransitionGroup moves a group to a new status if the lifecycle allows it.
func (r *Roster) TransitionGroup(ctx context.Context, id GroupID, next GroupStatus) (*Group, error) {
	var out *Group
	err := r.Store.WithTx(ctx, func(s Store) error {
		g, err := loadGroup(ctx, s, id)
		if err != nil {
			return err
		}
		if !g.Status.CanTransitionTo(next) {
			return validationError(map[string]any{"group_id": id, "from": g.Status, "to": next},
				"Cannot move chit group from %s to %s", g.Status, next)
		}
		if err := s.UpdateGroupStatus(ctx, id, next); err != nil {
			return fmt.Errorf("failed to update group status: %w", err)
		}
		g.Status = next
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger().InfoContext(ctx, "group status changed", "group_id", id, "status", next)
	return out, nil
}

// CreateMember saves a new active member.
func (r *Roster) CreateMember(ctx context.Context, name, mobile string) (*Member, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationError(nil, "name is required")
	}
	m := Member{
		ID:        MemberID(NewID("mem")),
		Name:      strings.TrimSpace(name),
		Mobile:    strings.TrimSpace(mobile),
		Active:    true,
		CreatedAt: r.now(),
	}
	if err := r.Store.SaveMember(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	return &m, nil
}

func (r *Roster) GetMember(ctx context.Context, id MemberID) (*Member, error) {
	m, err := r.Store.GetMember(ctx, id)
	if errors.Is(err, ErrMemberNotFound) {
		return nil, notFoundError("member", id)
	}
	return m, err
}

func (r *Roster) ListMembers(ctx context.Context) ([]Member, error) {
	return r.Store.ListMembers(ctx)
}

// Enroll issues a ticket. The group may hold at most TotalMembers tickets and
// ticket numbers are unique within it.
func (r *Roster) Enroll(ctx context.Context, in EnrollInput) (*Ticket, error) {
	if in.TicketNumber < 1 {
		return nil, validationError(map[string]any{"ticket_number": in.TicketNumber},
			"ticket_number must be at least 1")
	}

	var t Ticket
	err := r.Store.WithTx(ctx, func(s Store) error {
		m, err := s.GetMember(ctx, in.MemberID)
		if errors.Is(err, ErrMemberNotFound) {
			return notFoundError("member", in.MemberID)
		} else if err != nil {
			return fmt.Errorf("failed to load member: %w", err)
		}
		if !m.Active {
			return validationError(map[string]any{"member_id": in.MemberID}, "This member is inactive")
		}
		g, err := loadGroup(ctx, s, in.GroupID)
		if err != nil {
			return err
		}

		tickets, err := s.ListTickets(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("failed to load tickets: %w", err)
		}
		for _, existing := range tickets {
			if existing.TicketNumber == in.TicketNumber {
				return newError(KindConflict, map[string]any{"group_id": g.ID, "ticket_number": in.TicketNumber},
					"Ticket #%d is already taken", in.TicketNumber)
			}
		}
		if len(tickets) >= g.TotalMembers {
			return newError(KindConflict, map[string]any{"group_id": g.ID, "total_members": g.TotalMembers},
				"Chit group is full. Max %d members allowed", g.TotalMembers)
		}

		t = Ticket{
			ID:           TicketID(NewID("tkt")),
			GroupID:      g.ID,
			TicketNumber: in.TicketNumber,
			MemberID:     in.MemberID,
			Active:       true,
			CreatedAt:    r.now(),
		}
		if err := s.SaveTicket(ctx, t); err != nil {
			if errors.Is(err, ErrTicketTaken) {
				return newError(KindConflict, map[string]any{"group_id": g.ID, "ticket_number": in.TicketNumber},
					"Ticket #%d is already taken", in.TicketNumber)
			}
			return fmt.Errorf("failed to save ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Roster) ListTickets(ctx context.Context, groupID GroupID) ([]Ticket, error) {
	if _, err := loadGroup(ctx, r.Store, groupID); err != nil {
		return nil, err
	}
	return r.Store.ListTickets(ctx, groupID)
}

// DeactivateTicket takes a ticket out of play. It can no longer win an
// auction or record payments. Its number stays taken and its history stays
// in the ledgers. Deactivating an inactive ticket is a no-op.
func (r *Roster) DeactivateTicket(ctx context.Context, groupID GroupID, id TicketID) (*Ticket, error) {
	var t *Ticket
	err := r.Store.WithTx(ctx, func(s Store) error {
		if _, err := loadGroup(ctx, s, groupID); err != nil {
			return err
		}
		var err error
		t, err = s.GetTicket(ctx, id)
		if errors.Is(err, ErrTicketNotFound) {
			return notFoundError("ticket", id)
		} else if err != nil {
			return fmt.Errorf("failed to load ticket: %w", err)
		}
		if t.GroupID != groupID {
			return validationError(map[string]any{"group_id": groupID, "ticket_id": id},
				"Ticket does not belong to this chit group")
		}
		if !t.Active {
			return nil
		}
		t.Active = false
		if err := s.SaveTicket(ctx, *t); err != nil {
			return fmt.Errorf("failed to save ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger().InfoContext(ctx, "ticket deactivated", "group_id", groupID, "ticket_id", id)
	return t, nil
}

// DeactivateMember marks a member inactive so they cannot be enrolled again.
// Tickets they already hold are left as they are.
func (r *Roster) DeactivateMember(ctx context.Context, id MemberID) (*Member, error) {
	var m *Member
	err := r.Store.WithTx(ctx, func(s Store) error {
		var err error
		m, err = s.GetMember(ctx, id)
		if errors.Is(err, ErrMemberNotFound) {
			return notFoundError("member", id)
		} else if err != nil {
			return fmt.Errorf("failed to load member: %w", err)
		}
		if !m.Active {
			return nil
		}
		m.Active = false
		if err := s.SaveMember(ctx, *m); err != nil {
			return fmt.Errorf("failed to save member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger().InfoContext(ctx, "member deactivated", "member_id", id)
	return m, nil
}

func (r *Roster) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func (r *Roster) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
