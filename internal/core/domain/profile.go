package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// SplitSumTolerance is the allowed deviation of a revenue profile's
// percentage sum from 100.
const SplitSumTolerance = 0.01

// RevenueProfile is a named five-way percentage split of a transaction's
// pre-tax amount. Profiles are immutable once referenced by a committed
// ledger entry; edits create a new profile row.
type RevenueProfile struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ValidPct     float64   `json:"valid_pct"`
	VendorPct    float64   `json:"vendor_pct"`
	PoolPct      float64   `json:"pool_pct"`
	PromoterPct  float64   `json:"promoter_pct"`
	ExecutivePct float64   `json:"executive_pct"`
	CreatedAt    time.Time `json:"created_at"`
}

// SumPct returns the sum of the five split percentages.
func (p *RevenueProfile) SumPct() float64 {
	return p.ValidPct + p.VendorPct + p.PoolPct + p.PromoterPct + p.ExecutivePct
}

// Validate enforces the split invariants: non-negative percentages summing
// to 100 within SplitSumTolerance.
func (p *RevenueProfile) Validate() error {
	for _, pct := range []float64{p.ValidPct, p.VendorPct, p.PoolPct, p.PromoterPct, p.ExecutivePct} {
		if pct < 0 {
			return fmt.Errorf("revenue profile %q: negative percentage %.2f", p.Name, pct)
		}
	}
	if sum := p.SumPct(); math.Abs(sum-100) > SplitSumTolerance {
		return fmt.Errorf("revenue profile %q: percentages sum to %.2f, expected 100", p.Name, sum)
	}
	return nil
}

// TaxProfile is a named set of tax percentages. State and local tax apply to
// every taxable item; alcohol and food taxes apply per item flag. Categories
// are computed independently and summed, never compounded.
type TaxProfile struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	StateTaxPct   float64   `json:"state_tax_pct"`
	LocalTaxPct   float64   `json:"local_tax_pct"`
	AlcoholTaxPct float64   `json:"alcohol_tax_pct"`
	FoodTaxPct    float64   `json:"food_tax_pct"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks each percentage is within [0,100].
func (p *TaxProfile) Validate() error {
	for name, pct := range map[string]float64{
		"state":   p.StateTaxPct,
		"local":   p.LocalTaxPct,
		"alcohol": p.AlcoholTaxPct,
		"food":    p.FoodTaxPct,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("tax profile %q: %s tax %.2f out of range [0,100]", p.Name, name, pct)
		}
	}
	return nil
}

// ItemFlags marks the tax categories an item belongs to.
type ItemFlags struct {
	IsAlcohol bool `json:"is_alcohol"`
	IsFood    bool `json:"is_food"`
}
