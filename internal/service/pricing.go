package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	nanosPerHour = decimal.NewFromInt(int64(time.Hour))
	minimumHours = decimal.NewFromInt(1)
)

// PricingCalculator derives amounts from hourly rates and intervals.
type PricingCalculator struct{}

// NewPricingCalculator creates a new PricingCalculator.
func NewPricingCalculator() *PricingCalculator {
	return &PricingCalculator{}
}

// Hours returns the length of [start, end) in fractional hours.
func Hours(start, end time.Time) decimal.Decimal {
	return decimal.NewFromInt(end.Sub(start).Nanoseconds()).Div(nanosPerHour)
}

// ComputeAmount prices the interval at the combined hourly rate, rounded
// half-up to cents.
func (p *PricingCalculator) ComputeAmount(start, end time.Time, baseRate, premiumRate decimal.Decimal) (decimal.Decimal, error) {
	if !end.After(start) {
		return decimal.Zero, ErrInvalidInterval
	}
	return p.price(Hours(start, end), baseRate, premiumRate)
}

// EstimateAmount is ComputeAmount with a one hour minimum charge.
func (p *PricingCalculator) EstimateAmount(start, end time.Time, baseRate, premiumRate decimal.Decimal) (decimal.Decimal, error) {
	hours := minimumHours
	if end.After(start) {
		hours = decimal.Max(Hours(start, end), minimumHours)
	}
	return p.price(hours, baseRate, premiumRate)
}

func (p *PricingCalculator) price(hours, baseRate, premiumRate decimal.Decimal) (decimal.Decimal, error) {
	if baseRate.IsNegative() || premiumRate.IsNegative() {
		return decimal.Zero, ErrInvalidRate
	}

	// Round is half away from zero, which is half-up for positive amounts.
	amount := hours.Mul(baseRate.Add(premiumRate)).Round(2)
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %s for %s hours", ErrInvariantViolation, amount, hours)
	}

	return amount, nil
}
