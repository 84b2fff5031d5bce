/*
settlement.go - Monthly auction settlement calculator

PURPOSE:
  Turns one month's winning bid into the numbers every other screen reads:
  the commission, the winner's payout, the per-member dividend, the
  remainder carried to next month, and what each non-winner owes.

ALGORITHM:
  commission       = bid * commission_value / 100     (PERCENT)
                   = commission_value                 (FIXED)
  raw_dividend     = bid - commission + carry_previous
  per_member       = floor(raw_dividend / members / round_off) * round_off
  roundoff_div     = per_member * members
  carry_next       = raw_dividend - roundoff_div
  winning_amount   = total_amount - bid
  amount_to_collect = monthly_amount - per_member

  Commission comes out of the dividend pool, not out of the winner's payout.

PRECISION:
  Everything is decimal. The floor is computed with an integer quotient over
  members * round_off, so it is exact for any input scale: no value that is
  "almost" a multiple ever rounds up.

EXAMPLE:
  s, err := chit.Calculate(chit.SettlementInput{
      TotalAmount:     chit.Rupees(100000),
      TotalMembers:    10,
      OriginalBid:     chit.Rupees(6430),
      CommissionType:  chit.CommissionPercent,
      CommissionValue: chit.Rupees(15),
      RoundOffValue:   chit.Rupees(50),
  })
  // s.PerMemberDividend == 500, s.CarryNext == 465.5, s.AmountToCollect == 9500
*/
package chit

import (
	"github.com/shopspring/decimal"
)

// SettlementInput is everything the calculator needs. No I/O happens past here.
type SettlementInput struct {
	TotalAmount     decimal.Decimal
	TotalMembers    int
	OriginalBid     decimal.Decimal
	CommissionType  CommissionType
	CommissionValue decimal.Decimal
	RoundOffValue   decimal.Decimal
	CarryPrevious   decimal.Decimal
}

// InputFor builds a calculator input from a group's configuration.
func InputFor(g *Group, bid, carryPrevious decimal.Decimal) SettlementInput {
	return SettlementInput{
		TotalAmount:     g.TotalAmount,
		TotalMembers:    g.TotalMembers,
		OriginalBid:     bid,
		CommissionType:  g.CommissionType,
		CommissionValue: g.CommissionValue,
		RoundOffValue:   g.RoundOffValue,
		CarryPrevious:   carryPrevious,
	}
}

// Settlement is the computed bundle persisted on an Auction.
type Settlement struct {
	WinningAmount     decimal.Decimal
	Commission        decimal.Decimal
	CarryPrevious     decimal.Decimal
	RawDividend       decimal.Decimal
	RawPerMember      decimal.Decimal // informational, never used for rounding
	PerMemberDividend decimal.Decimal
	RoundoffDividend  decimal.Decimal
	CarryNext         decimal.Decimal
	MonthlyAmount     decimal.Decimal
	AmountToCollect   decimal.Decimal
}

// Validate checks the calculator preconditions.
func (in SettlementInput) Validate() error {
	switch {
	case in.TotalMembers <= 0:
		return validationError(map[string]any{"total_members": in.TotalMembers},
			"total_members must be greater than 0")
	case !in.TotalAmount.IsPositive():
		return validationError(map[string]any{"total_amount": in.TotalAmount.String()},
			"total_amount must be greater than 0")
	case !in.RoundOffValue.IsPositive():
		return validationError(map[string]any{"round_off_value": in.RoundOffValue.String()},
			"round_off_value must be greater than 0")
	case in.CommissionValue.IsNegative():
		return validationError(map[string]any{"commission_value": in.CommissionValue.String()},
			"commission_value cannot be negative")
	case !in.CommissionType.Valid():
		return validationError(map[string]any{"commission_type": string(in.CommissionType)},
			"commission_type must be PERCENT or FIXED")
	case !in.OriginalBid.IsPositive():
		return validationError(map[string]any{"original_bid": in.OriginalBid.String()},
			"original_bid must be greater than 0")
	case in.OriginalBid.GreaterThan(in.TotalAmount):
		return validationError(map[string]any{
			"original_bid": in.OriginalBid.String(),
			"total_amount": in.TotalAmount.String(),
		}, "original_bid cannot exceed total_amount %s", in.TotalAmount)
	}
	return nil
}

// Calculate settles one month. It is a pure function of its input.
func Calculate(in SettlementInput) (Settlement, error) {
	if err := in.Validate(); err != nil {
		return Settlement{}, err
	}

	members := decimal.NewFromInt(int64(in.TotalMembers))

	commission := in.CommissionValue
	if in.CommissionType == CommissionPercent {
		commission = in.OriginalBid.Mul(in.CommissionValue).Shift(-2)
	}

	rawDividend := in.OriginalBid.Sub(commission).Add(in.CarryPrevious)
	perMember := floorPerMember(rawDividend, members, in.RoundOffValue)
	roundoff := perMember.Mul(members)
	monthly := MonthlyAmount(in.TotalAmount, in.TotalMembers)

	return Settlement{
		WinningAmount:     in.TotalAmount.Sub(in.OriginalBid),
		Commission:        commission,
		CarryPrevious:     in.CarryPrevious,
		RawDividend:       rawDividend,
		RawPerMember:      rawDividend.Div(members),
		PerMemberDividend: perMember,
		RoundoffDividend:  roundoff,
		CarryNext:         rawDividend.Sub(roundoff),
		MonthlyAmount:     monthly,
		AmountToCollect:   monthly.Sub(perMember),
	}, nil
}

// floorPerMember returns floor(pool / members / unit) * unit.
// QuoRem truncates toward zero, so a negative remainder means one step down.
func floorPerMember(pool, members, unit decimal.Decimal) decimal.Decimal {
	q, r := pool.QuoRem(members.Mul(unit), 0)
	if r.IsNegative() {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q.Mul(unit)
}
