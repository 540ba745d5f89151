package service

import (
	"math"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/pkg/apperror"
)

// SplitCalculatorImpl implements ports.SplitCalculator. All arithmetic is
// integer minor-currency units; percentages are converted to basis points
// once and every share is rounded half-up independently. The rounding
// residual is assigned to the pool party so the shares always sum exactly
// to the item amount.
type SplitCalculatorImpl struct{}

// NewSplitCalculator creates a new SplitCalculatorImpl.
func NewSplitCalculator() *SplitCalculatorImpl {
	return &SplitCalculatorImpl{}
}

// pctToBp converts a percentage to basis points.
func pctToBp(pct float64) int64 {
	return int64(math.Round(pct * 100))
}

// bpShare computes amount*bp/10000 rounded half-up.
func bpShare(amountCents, bp int64) int64 {
	return (amountCents*bp + 5000) / 10000
}

// Compute derives the tax total and five-way revenue split for a charge.
// Tax categories are computed independently on the item amount and summed,
// never compounded. A nil tax profile means no tax; a nil revenue profile
// sends the full amount to the pool for manual reconciliation.
func (c *SplitCalculatorImpl) Compute(itemAmountCents int64, tax *domain.TaxProfile, rev *domain.RevenueProfile, flags domain.ItemFlags, platformFeeCents int64) (*ports.Settlement, error) {
	if itemAmountCents <= 0 || platformFeeCents < 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	var taxCents int64
	if tax != nil {
		if err := tax.Validate(); err != nil {
			return nil, apperror.ErrInvalidTaxProfile(err.Error())
		}
		taxCents = bpShare(itemAmountCents, pctToBp(tax.StateTaxPct+tax.LocalTaxPct))
		if flags.IsAlcohol {
			taxCents += bpShare(itemAmountCents, pctToBp(tax.AlcoholTaxPct))
		}
		if flags.IsFood {
			taxCents += bpShare(itemAmountCents, pctToBp(tax.FoodTaxPct))
		}
	}

	split := domain.SplitBreakdown{PoolCents: itemAmountCents}
	if rev != nil {
		if err := rev.Validate(); err != nil {
			return nil, apperror.ErrSplitInvariant(rev.SumPct())
		}
		split = domain.SplitBreakdown{
			ValidCents:     bpShare(itemAmountCents, pctToBp(rev.ValidPct)),
			VendorCents:    bpShare(itemAmountCents, pctToBp(rev.VendorPct)),
			PoolCents:      bpShare(itemAmountCents, pctToBp(rev.PoolPct)),
			PromoterCents:  bpShare(itemAmountCents, pctToBp(rev.PromoterPct)),
			ExecutiveCents: bpShare(itemAmountCents, pctToBp(rev.ExecutivePct)),
		}
		// Zero-leakage: the rounding residual lands in the pool share.
		split.PoolCents += itemAmountCents - split.Total()
	}

	return &ports.Settlement{
		TaxCents:         taxCents,
		PlatformFeeCents: platformFeeCents,
		Split:            split,
	}, nil
}
