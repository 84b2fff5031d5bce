/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  chit domain types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are decimal.Decimal on both sides. Responses encode them as JSON
  strings ("465.5"); requests accept either strings or numbers.

TYPES:
  Groups:   GroupDTO, CreateGroupRequest, TransitionGroupRequest
  Members:  MemberDTO, CreateMemberRequest
  Tickets:  TicketDTO, EnrollRequest
  Auctions: AuctionDTO, SettlementDTO, SettleAuctionRequest
  Payments: PaymentDTO, PaymentReceiptDTO, RecordPaymentRequest
  Reports:  MonthStatementDTO, TicketPositionDTO
  Errors:   ErrorResponse

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/chit-engine/chit"
)

const dateLayout = "2006-01-02"

// =============================================================================
// GROUPS
// =============================================================================

type GroupDTO struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TotalMembers     int             `json:"total_members"`
	DurationMonths   int             `json:"duration_months"`
	MonthlyAmount    decimal.Decimal `json:"monthly_amount"`
	CommissionType   string          `json:"commission_type"`
	CommissionValue  decimal.Decimal `json:"commission_value"`
	RoundOffValue    decimal.Decimal `json:"round_off_value"`
	Status           string          `json:"status"`
	AuctionStartDate string          `json:"auction_start_date,omitempty"`
	CreatedAt        string          `json:"created_at"`
}

// CreateGroupRequest is the request to create a chit group.
type CreateGroupRequest struct {
	Name             string          `json:"name"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TotalMembers     int             `json:"total_members"`
	CommissionType   string          `json:"commission_type"`
	CommissionValue  decimal.Decimal `json:"commission_value"`
	RoundOffValue    decimal.Decimal `json:"round_off_value"`
	AuctionStartDate string          `json:"auction_start_date,omitempty"`
}

type TransitionGroupRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// MEMBERS AND TICKETS
// =============================================================================

type MemberDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Mobile    string `json:"mobile,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type CreateMemberRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

type TicketDTO struct {
	ID           string `json:"id"`
	GroupID      string `json:"group_id"`
	TicketNumber int    `json:"ticket_number"`
	MemberID     string `json:"member_id"`
	Active       bool   `json:"active"`
}

type EnrollRequest struct {
	MemberID     string `json:"member_id"`
	TicketNumber int    `json:"ticket_number"`
}

// =============================================================================
// AUCTIONS
// =============================================================================

// SettlementDTO is the full calculator output.
type SettlementDTO struct {
	WinningAmount     decimal.Decimal `json:"winning_amount"`
	Commission        decimal.Decimal `json:"commission"`
	CarryPrevious     decimal.Decimal `json:"carry_previous"`
	DividendPool      decimal.Decimal `json:"dividend_pool"`
	RawPerMember      decimal.Decimal `json:"raw_per_member"`
	PerMemberDividend decimal.Decimal `json:"per_member_dividend"`
	RoundoffDividend  decimal.Decimal `json:"roundoff_dividend"`
	CarryNext         decimal.Decimal `json:"carry_next"`
	MonthlyAmount     decimal.Decimal `json:"monthly_amount"`
	AmountToCollect   decimal.Decimal `json:"amount_to_collect"`
}

type AuctionDTO struct {
	ID             string          `json:"id"`
	GroupID        string          `json:"group_id"`
	MonthNumber    int             `json:"month_number"`
	WinnerTicketID string          `json:"winner_ticket_id"`
	OriginalBid    decimal.Decimal `json:"original_bid"`
	Settlement     SettlementDTO   `json:"settlement"`
	CreatedAt      string          `json:"created_at"`
}

// SettleAuctionRequest posts (or previews) an auction for a group.
type SettleAuctionRequest struct {
	MonthNumber    int             `json:"month_number"`
	WinnerTicketID string          `json:"winner_ticket_id"`
	OriginalBid    decimal.Decimal `json:"original_bid"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentDTO struct {
	ID            string          `json:"id"`
	GroupID       string          `json:"group_id"`
	TicketID      string          `json:"ticket_id"`
	MonthNumber   int             `json:"month_number"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentMethod string          `json:"payment_method"`
	UPIID         string          `json:"upi_id,omitempty"`
	PaymentDate   string          `json:"payment_date"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

// PaymentReceiptDTO is returned by POST /api/payments.
type PaymentReceiptDTO struct {
	Payment      PaymentDTO      `json:"payment"`
	TicketNumber int             `json:"ticket_number"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	MonthlyDue   decimal.Decimal `json:"monthly_due"`
	Remaining    decimal.Decimal `json:"remaining"`
}

type RecordPaymentRequest struct {
	GroupID       string          `json:"group_id"`
	TicketID      string          `json:"ticket_id"`
	MonthNumber   int             `json:"month_number"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentMethod string          `json:"payment_method"`
	UPIID         string          `json:"upi_id,omitempty"`
	PaymentDate   string          `json:"payment_date,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

type TicketPositionDTO struct {
	TicketID     string          `json:"ticket_id"`
	TicketNumber int             `json:"ticket_number"`
	MemberID     string          `json:"member_id"`
	State        string          `json:"state"`
	Due          decimal.Decimal `json:"due"`
	Paid         decimal.Decimal `json:"paid"`
	Remaining    decimal.Decimal `json:"remaining"`
}

type MonthStatementDTO struct {
	GroupID          string              `json:"group_id"`
	MonthNumber      int                 `json:"month_number"`
	AuctionID        string              `json:"auction_id"`
	WinnerTicketID   string              `json:"winner_ticket_id"`
	AmountToCollect  decimal.Decimal     `json:"amount_to_collect"`
	ExpectedTotal    decimal.Decimal     `json:"expected_total"`
	CollectedTotal   decimal.Decimal     `json:"collected_total"`
	OutstandingTotal decimal.Decimal     `json:"outstanding_total"`
	Tickets          []TicketPositionDTO `json:"tickets"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error ErrorDTO `json:"error"`
}

// ErrorDTO relays a chit rejection verbatim.
type ErrorDTO struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toGroupDTO(g chit.Group) GroupDTO {
	dto := GroupDTO{
		ID:              string(g.ID),
		Name:            g.Name,
		TotalAmount:     g.TotalAmount,
		TotalMembers:    g.TotalMembers,
		DurationMonths:  g.DurationMonths,
		MonthlyAmount:   g.MonthlyAmount,
		CommissionType:  string(g.CommissionType),
		CommissionValue: g.CommissionValue,
		RoundOffValue:   g.RoundOffValue,
		Status:          string(g.Status),
		CreatedAt:       g.CreatedAt.Format(time.RFC3339),
	}
	if g.AuctionStartDate != nil {
		dto.AuctionStartDate = g.AuctionStartDate.Format(dateLayout)
	}
	return dto
}

func toMemberDTO(m chit.Member) MemberDTO {
	return MemberDTO{
		ID:        string(m.ID),
		Name:      m.Name,
		Mobile:    m.Mobile,
		Active:    m.Active,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func toTicketDTO(t chit.Ticket) TicketDTO {
	return TicketDTO{
		ID:           string(t.ID),
		GroupID:      string(t.GroupID),
		TicketNumber: t.TicketNumber,
		MemberID:     string(t.MemberID),
		Active:       t.Active,
	}
}

func toSettlementDTO(s chit.Settlement) SettlementDTO {
	return SettlementDTO{
		WinningAmount:     s.WinningAmount,
		Commission:        s.Commission,
		CarryPrevious:     s.CarryPrevious,
		DividendPool:      s.RawDividend,
		RawPerMember:      s.RawPerMember,
		PerMemberDividend: s.PerMemberDividend,
		RoundoffDividend:  s.RoundoffDividend,
		CarryNext:         s.CarryNext,
		MonthlyAmount:     s.MonthlyAmount,
		AmountToCollect:   s.AmountToCollect,
	}
}

func toAuctionDTO(a chit.Auction) AuctionDTO {
	return AuctionDTO{
		ID:             string(a.ID),
		GroupID:        string(a.GroupID),
		MonthNumber:    a.MonthNumber,
		WinnerTicketID: string(a.WinnerTicketID),
		OriginalBid:    a.OriginalBid,
		Settlement:     toSettlementDTO(a.Settlement),
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTO(p chit.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            string(p.ID),
		GroupID:       string(p.GroupID),
		TicketID:      string(p.TicketID),
		MonthNumber:   p.MonthNumber,
		AmountPaid:    p.AmountPaid,
		PaymentMethod: string(p.Method),
		UPIID:         p.UPIID,
		PaymentDate:   p.PaymentDate.Format(dateLayout),
		Status:        string(p.Status),
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

func toStatementDTO(st chit.MonthStatement) MonthStatementDTO {
	dto := MonthStatementDTO{
		GroupID:          string(st.GroupID),
		MonthNumber:      st.MonthNumber,
		AuctionID:        string(st.AuctionID),
		WinnerTicketID:   string(st.WinnerTicketID),
		AmountToCollect:  st.AmountToCollect,
		ExpectedTotal:    st.ExpectedTotal,
		CollectedTotal:   st.CollectedTotal,
		OutstandingTotal: st.OutstandingTotal,
		Tickets:          make([]TicketPositionDTO, len(st.Tickets)),
	}
	for i, p := range st.Tickets {
		dto.Tickets[i] = TicketPositionDTO{
			TicketID:     string(p.TicketID),
			TicketNumber: p.TicketNumber,
			MemberID:     string(p.MemberID),
			State:        string(p.State),
			Due:          p.Due,
			Paid:         p.Paid,
			Remaining:    p.Remaining,
		}
	}
	return dto
}
