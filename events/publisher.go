/*
publisher.go - Domain events for committed ledger changes

PURPOSE:
  Publisher is a chit.Observer that turns committed auctions and payments
  into JSON events and hands them to a Sender:

    AuctionService.Settle ──▶ auction.settled
    PaymentReconciler.Record ──▶ payment.recorded

  Events are sent after the unit of work commits. A failed send is
  returned to the service, which logs it; the ledger is never rolled back.

SENDERS:
  AMQPSender: RabbitMQ topic exchange (amqp.go)
  LogSender:  Writes the event to the log when no broker is configured
*/
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/warp/chit-engine/chit"
)

// Sender delivers one encoded event.
type Sender interface {
	Send(ctx context.Context, routingKey string, body []byte) error
}

type Publisher struct {
	sender Sender
	now    func() time.Time
}

var _ chit.Observer = (*Publisher)(nil)

func NewPublisher(sender Sender) *Publisher {
	return &Publisher{sender: sender, now: func() time.Time { return time.Now().UTC() }}
}

func (p *Publisher) AuctionSettled(ctx context.Context, g chit.Group, a chit.Auction) error {
	return p.publish(ctx, KeyAuctionSettled, NewAuctionSettledMessage(g, a))
}

func (p *Publisher) PaymentRecorded(ctx context.Context, r chit.PaymentReceipt) error {
	return p.publish(ctx, KeyPaymentRecorded, NewPaymentRecordedMessage(r))
}

// Rejected publishes nothing; rejections leave the ledger unchanged.
func (p *Publisher) Rejected(context.Context, string, error) {}

func (p *Publisher) publish(ctx context.Context, key string, data any) error {
	body, err := encode(key, p.now(), data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := p.sender.Send(ctx, key, body); err != nil {
		return fmt.Errorf("send %s: %w", key, err)
	}
	return nil
}

// LogSender writes events to a logger.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(ctx context.Context, routingKey string, body []byte) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "event", "routing_key", routingKey, "body", string(body))
	return nil
}
