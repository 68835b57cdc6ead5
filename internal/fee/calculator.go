// Package fee computes the platform fee retained on delivery payments.
package fee

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"wallet_ledger/internal/domain"
)

// Breakdown splits a gross amount into the platform fee and the recipient's share
type Breakdown struct {
	Gross int64 `json:"amount"`
	Fee   int64 `json:"serviceFee"`
	Net   int64 `json:"recipientAmount"`
}

// NoCap leaves the fee without an upper bound
const NoCap int64 = math.MaxInt64

// ComputeFee returns clamp(floor(gross*rate), minFee, maxFee) and gross minus that fee.
// Pass NoCap as maxFee for an uncapped fee; a maxFee of 0 waives the fee. The fee
// never exceeds gross.
func ComputeFee(gross int64, rate decimal.Decimal, minFee, maxFee int64) (Breakdown, error) {
	if gross <= 0 {
		return Breakdown{}, domain.ErrInvalidAmount
	}
	if err := validatePolicy(rate, minFee, maxFee); err != nil {
		return Breakdown{}, err
	}

	fee := decimal.NewFromInt(gross).Mul(rate).Floor().IntPart()
	if fee < minFee {
		fee = minFee
	}
	if fee > maxFee {
		fee = maxFee
	}
	if fee > gross {
		fee = gross
	}
	return Breakdown{Gross: gross, Fee: fee, Net: gross - fee}, nil
}

func validatePolicy(rate decimal.Decimal, minFee, maxFee int64) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee rate %s outside [0,1]", rate.String())
	}
	if minFee < 0 || maxFee < 0 {
		return fmt.Errorf("fee bounds must be non-negative (min=%d max=%d)", minFee, maxFee)
	}
	if maxFee < minFee {
		return fmt.Errorf("max fee %d below min fee %d", maxFee, minFee)
	}
	return nil
}

// Calculator applies the single platform-wide fee policy
type Calculator struct {
	rate   decimal.Decimal
	minFee int64
	maxFee int64
}

// NewCalculator parses rate (e.g. "0.175") and validates the bounds
func NewCalculator(rate string, minFee, maxFee int64) (*Calculator, error) {
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parse fee rate %q: %w", rate, err)
	}
	if err := validatePolicy(r, minFee, maxFee); err != nil {
		return nil, err
	}
	return &Calculator{rate: r, minFee: minFee, maxFee: maxFee}, nil
}

// Compute applies the configured policy to gross
func (c *Calculator) Compute(gross int64) (Breakdown, error) {
	return ComputeFee(gross, c.rate, c.minFee, c.maxFee)
}

// Rate returns the configured rate as a decimal string
func (c *Calculator) Rate() string {
	return c.rate.String()
}

// Percentage renders the rate for display, e.g. "17.5%"
func (c *Calculator) Percentage() string {
	return c.rate.Shift(2).String() + "%"
}
