package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/chit-engine/chit"
)

// Routing keys.
const (
	KeyAuctionSettled  = "auction.settled"
	KeyPaymentRecorded = "payment.recorded"
)

// Envelope wraps every event. EventID lets consumers drop duplicates.
type Envelope struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// AuctionSettledMessage is published once an auction is committed.
type AuctionSettledMessage struct {
	AuctionID         chit.AuctionID   `json:"auction_id"`
	GroupID           chit.GroupID     `json:"group_id"`
	GroupStatus       chit.GroupStatus `json:"group_status"`
	MonthNumber       int              `json:"month_number"`
	WinnerTicketID    chit.TicketID    `json:"winner_ticket_id"`
	OriginalBid       decimal.Decimal  `json:"original_bid"`
	WinningAmount     decimal.Decimal  `json:"winning_amount"`
	PerMemberDividend decimal.Decimal  `json:"per_member_dividend"`
	CarryNext         decimal.Decimal  `json:"carry_next"`
	AmountToCollect   decimal.Decimal  `json:"amount_to_collect"`
}

// PaymentRecordedMessage is published once a payment is committed.
type PaymentRecordedMessage struct {
	PaymentID   chit.PaymentID     `json:"payment_id"`
	GroupID     chit.GroupID       `json:"group_id"`
	TicketID    chit.TicketID      `json:"ticket_id"`
	MonthNumber int                `json:"month_number"`
	AmountPaid  decimal.Decimal    `json:"amount_paid"`
	Method      chit.PaymentMethod `json:"payment_method"`
	Status      chit.PaymentStatus `json:"status"`
	TotalPaid   decimal.Decimal    `json:"total_paid"`
	Remaining   decimal.Decimal    `json:"remaining"`
}

func NewAuctionSettledMessage(g chit.Group, a chit.Auction) AuctionSettledMessage {
	return AuctionSettledMessage{
		AuctionID:         a.ID,
		GroupID:           a.GroupID,
		GroupStatus:       g.Status,
		MonthNumber:       a.MonthNumber,
		WinnerTicketID:    a.WinnerTicketID,
		OriginalBid:       a.OriginalBid,
		WinningAmount:     a.Settlement.WinningAmount,
		PerMemberDividend: a.Settlement.PerMemberDividend,
		CarryNext:         a.Settlement.CarryNext,
		AmountToCollect:   a.Settlement.AmountToCollect,
	}
}

func NewPaymentRecordedMessage(r chit.PaymentReceipt) PaymentRecordedMessage {
	return PaymentRecordedMessage{
		PaymentID:   r.Payment.ID,
		GroupID:     r.Payment.GroupID,
		TicketID:    r.Payment.TicketID,
		MonthNumber: r.Payment.MonthNumber,
		AmountPaid:  r.Payment.AmountPaid,
		Method:      r.Payment.Method,
		Status:      r.Payment.Status,
		TotalPaid:   r.TotalPaid,
		Remaining:   r.Remaining,
	}
}

// encode wraps data in an Envelope and marshals it.
func encode(eventType string, at time.Time, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: at,
		Data:       raw,
	})
}

// DecodeEnvelope parses an event body.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
