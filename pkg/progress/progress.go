// Package progress computes how far a round is toward its funding goal.
//
// Compute is the single arbiter of round success: the read API and the
// nightly reconciliation both call it, so they can never disagree. It does
// no I/O and keeps no state.
package progress

import (
	"github.com/amirasaad/presale/pkg/domain/presale"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary is the derived funding state of a round.
type Summary struct {
	TotalSlots      int             `json:"totalSlots"`
	ConfirmedSlots  int             `json:"confirmedSlots"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ConfirmedAmount decimal.Decimal `json:"confirmedAmount"`
	// Percent is an integer in [0,100].
	Percent int `json:"percent"`
}

// Compute sums slots and amounts over reservations. Totals include every
// reservation; confirmed figures include only confirmed and assigned ones.
func Compute(round *presale.Round, reservations []*presale.Reservation) Summary {
	s := Summary{
		TotalAmount:     decimal.Zero,
		ConfirmedAmount: decimal.Zero,
	}
	for _, r := range reservations {
		if r == nil {
			continue
		}
		s.TotalSlots += r.Slots
		s.TotalAmount = s.TotalAmount.Add(r.Amount)
		if r.Status.IsSecured() {
			s.ConfirmedSlots += r.Slots
			s.ConfirmedAmount = s.ConfirmedAmount.Add(r.Amount)
		}
	}
	s.Percent = percentOf(s.securedMetric(round.GoalType), round.GoalValue)
	return s
}

// MeetsGoal reports whether the secured metric reached the full goal.
func (s Summary) MeetsGoal(round *presale.Round) bool {
	return s.securedMetric(round.GoalType).GreaterThanOrEqual(round.GoalValue)
}

// MeetsThreshold reports whether Percent clears the round's partial threshold.
func (s Summary) MeetsThreshold(round *presale.Round) bool {
	return s.Percent >= ThresholdPercent(round.PartialThreshold)
}

func (s Summary) securedMetric(goal presale.GoalType) decimal.Decimal {
	if goal == presale.GoalAmount {
		return s.ConfirmedAmount
	}
	return decimal.NewFromInt(int64(s.ConfirmedSlots))
}

// ThresholdPercent converts a fractional threshold into a whole percent,
// rounding the same way Compute rounds Percent.
func ThresholdPercent(fraction float64) int {
	return int(decimal.NewFromFloat(fraction).Mul(hundred).Round(0).IntPart())
}

func percentOf(value, goal decimal.Decimal) int {
	if !goal.IsPositive() {
		return 0
	}
	p := value.Div(goal).Mul(hundred).Round(0).IntPart()
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}
