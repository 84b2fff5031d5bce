package chit

import "context"

// Observer is told about committed ledger changes and rejected operations.
// Calls happen after the unit of work finishes; an Observer cannot veto or
// roll anything back, and its failures are only logged.
type Observer interface {
	AuctionSettled(ctx context.Context, g Group, a Auction) error
	PaymentRecorded(ctx context.Context, r PaymentReceipt) error
	Rejected(ctx context.Context, op string, err error)
}

// Observers fans out to several observers, returning the first error.
type Observers []Observer

func (obs Observers) AuctionSettled(ctx context.Context, g Group, a Auction) error {
	var first error
	for _, o := range obs {
		if err := o.AuctionSettled(ctx, g, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (obs Observers) PaymentRecorded(ctx context.Context, r PaymentReceipt) error {
	var first error
	for _, o := range obs {
		if err := o.PaymentRecorded(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (obs Observers) Rejected(ctx context.Context, op string, err error) {
	for _, o := range obs {
		o.Rejected(ctx, op, err)
	}
}
