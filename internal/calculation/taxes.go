package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/domain"
)

// TaxStrategy converts a gross annual amount to net. The strategy is a
// value selected per country configuration; for every strategy and every
// non-negative gross, net <= gross and net is non-decreasing in gross.
type TaxStrategy interface {
	// NetAmount returns the net amount after income tax and pensioner
	// social contributions.
	NetAmount(gross decimal.Decimal) decimal.Decimal

	// EffectiveRate returns 1 - net/gross, or zero for zero gross.
	EffectiveRate(gross decimal.Decimal) decimal.Decimal

	// Name identifies the strategy in the reasoning trace.
	Name() string
}

// NewTaxStrategy builds the strategy a country's tax rules call for:
// progressive brackets when a schedule is present, otherwise the flat
// simplified rate (zero when absent).
func NewTaxStrategy(rules domain.TaxRules) TaxStrategy {
	if len(rules.Brackets) > 0 {
		b := BracketTax{Brackets: rules.Brackets}
		if rules.BasicAllowance != nil {
			b.Allowance = *rules.BasicAllowance
		}
		if rules.SocialContributionRate != nil {
			b.SocialContributionRate = *rules.SocialContributionRate
		}
		return b
	}

	rate := decimal.Zero
	if rules.SimplifiedNetRate != nil {
		rate = *rules.SimplifiedNetRate
		// Out-of-range rates are a data error; clamp rather than produce
		// a negative or amplified net.
		if rate.IsNegative() {
			rate = decimal.Zero
		} else if rate.GreaterThan(one) {
			rate = one
		}
	}
	return FlatRateTax{Rate: rate}
}

// FlatRateTax applies one effective rate to the whole amount:
// net = gross × (1 − rate).
type FlatRateTax struct {
	Rate decimal.Decimal
}

func (f FlatRateTax) Name() string { return "flat_rate" }

func (f FlatRateTax) NetAmount(gross decimal.Decimal) decimal.Decimal {
	if gross.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return gross.Mul(one.Sub(f.Rate))
}

func (f FlatRateTax) EffectiveRate(gross decimal.Decimal) decimal.Decimal {
	if gross.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return f.Rate
}

// BracketTax applies a progressive marginal schedule to the amount above
// the basic allowance, plus a flat social-contribution rate on the full
// gross. The last bracket may leave Upper nil for an unbounded top band.
type BracketTax struct {
	Allowance              decimal.Decimal
	SocialContributionRate decimal.Decimal
	Brackets               []domain.TaxBracket
}

func (b BracketTax) Name() string { return "bracket" }

func (b BracketTax) NetAmount(gross decimal.Decimal) decimal.Decimal {
	if gross.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	tax := b.incomeTax(gross.Sub(b.Allowance))
	social := gross.Mul(b.SocialContributionRate)
	net := gross.Sub(tax).Sub(social)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

func (b BracketTax) EffectiveRate(gross decimal.Decimal) decimal.Decimal {
	if gross.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return one.Sub(b.NetAmount(gross).Div(gross))
}

// incomeTax walks the brackets marginally: each band's width times its
// rate, up to the taxable amount.
func (b BracketTax) incomeTax(taxable decimal.Decimal) decimal.Decimal {
	if taxable.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	tax := decimal.Zero
	lower := decimal.Zero
	for _, bracket := range b.Brackets {
		if taxable.LessThanOrEqual(lower) {
			break
		}
		upper := taxable
		if bracket.Upper != nil && bracket.Upper.LessThan(upper) {
			upper = *bracket.Upper
		}
		band := upper.Sub(lower)
		if band.GreaterThan(decimal.Zero) {
			tax = tax.Add(band.Mul(bracket.Rate))
		}
		if bracket.Upper == nil {
			break
		}
		lower = *bracket.Upper
	}
	return tax
}
