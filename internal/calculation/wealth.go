package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/lifetable"
)

// survivorshipEpsilon terminates the pension-wealth sum once the
// conditional survival probability is effectively zero.
var survivorshipEpsilon = decimal.New(1, -9)

// AnnuityFactor is the survival-weighted present value of a unit annual
// benefit, plus how it was obtained.
type AnnuityFactor struct {
	Value decimal.Decimal

	// Fallback is true when no life table covered the country/sex and the
	// closed-form approximation was used instead. Callers must surface
	// this as a warning, never as a silent substitution.
	Fallback bool

	// YearsSummed is the number of terms of the survival-weighted sum
	// (zero for the fallback path).
	YearsSummed int
}

// WealthCalculator computes pension wealth: the survival-weighted present
// value of a benefit stream, expressed as a multiple of the average wage.
type WealthCalculator struct {
	Tables lifetable.Provider

	// MaxAge bounds the summation when the table extends further.
	MaxAge int
}

// NewWealthCalculator builds a calculator over the given provider. A nil
// provider behaves as "no data anywhere" and always falls back.
func NewWealthCalculator(tables lifetable.Provider, maxAge int) *WealthCalculator {
	if tables == nil {
		tables = lifetable.Unavailable{}
	}
	return &WealthCalculator{Tables: tables, MaxAge: maxAge}
}

// Factor computes the annuity factor for retirement at the given age:
//
//	Σ_{t=0}^{T} S(age+t)/S(age) × ((1+g)/(1+r))^t
//
// where g is the real indexation rate and r the real discount rate. The
// sum terminates when survivorship drops effectively to zero or the table
// (or MaxAge) runs out. When no survivorship data exists the closed-form
// level annuity over fallbackLifeExpectancy is used and flagged.
func (wc *WealthCalculator) Factor(country string, sex domain.Sex, retirementAge int, indexation, discount, fallbackLifeExpectancy decimal.Decimal) AnnuityFactor {
	base, ok := wc.Tables.Survivorship(country, sex, retirementAge)
	if !ok || base.LessThanOrEqual(decimal.Zero) {
		le := fallbackLifeExpectancy
		if ex, ok := wc.Tables.RemainingLifeExpectancy(country, sex, retirementAge); ok {
			le = ex
		}
		return AnnuityFactor{
			Value:    closedFormAnnuity(le, indexation, discount),
			Fallback: true,
		}
	}

	// Per-year compounding of (1+g)/(1+r), kept in decimal by iterative
	// multiplication rather than fractional powers.
	ratio := one.Add(indexation).Div(one.Add(discount))

	factor := decimal.Zero
	weight := one // ratio^t
	years := 0
	for t := 0; retirementAge+t <= wc.MaxAge; t++ {
		lx, ok := wc.Tables.Survivorship(country, sex, retirementAge+t)
		if !ok {
			break // table exhausted
		}
		conditional := lx.Div(base)
		if conditional.LessThan(survivorshipEpsilon) {
			break
		}
		factor = factor.Add(conditional.Mul(weight))
		weight = weight.Mul(ratio)
		years++
	}

	return AnnuityFactor{Value: factor, YearsSummed: years}
}

// closedFormAnnuity is the level-annuity approximation used when
// mortality data is unavailable:
//
//	(1 − (1+d)^(−LE)) / d   with d = (1+r)/(1+g) − 1
//
// reducing to LE when d is zero. It ignores mortality inside the
// expectancy window and therefore overstates the factor slightly.
func closedFormAnnuity(lifeExpectancy, indexation, discount decimal.Decimal) decimal.Decimal {
	d := one.Add(discount).Div(one.Add(indexation)).Sub(one)
	if d.Abs().LessThan(survivorshipEpsilon) {
		return lifeExpectancy
	}
	discounted := powDecimal(one.Add(d), lifeExpectancy.Neg())
	return one.Sub(discounted).Div(d)
}

// PensionWealth expresses the present value of an annual benefit as a
// multiple of the average wage.
func PensionWealth(annualBenefit, averageWage decimal.Decimal, factor AnnuityFactor) decimal.Decimal {
	if averageWage.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return annualBenefit.Div(averageWage).Mul(factor.Value)
}
