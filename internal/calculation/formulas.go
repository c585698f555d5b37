package calculation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/domain"
)

var one = decimal.NewFromInt(1)

// schemeAmount is the result of one scheme-type formula before
// aggregation: the gross annual amount plus any clamp notes destined for
// the reasoning trace.
type schemeAmount struct {
	Gross decimal.Decimal
	Notes []string
}

// computeScheme dispatches to the formula for the scheme's type. The
// switch is exhaustive over the closed SchemeType set; an unknown type is
// a ConfigurationError (defensive, upstream validation already rejects it).
//
// wage is the resolved individual annual wage in national currency.
func computeScheme(s domain.SchemeComponent, profile domain.PersonProfile, wage, averageWage decimal.Decimal, asmp domain.GlobalAssumptions) (schemeAmount, error) {
	var (
		gross decimal.Decimal
		err   error
	)

	switch s.Type {
	case domain.SchemeDB:
		gross, err = computeDB(s, profile, wage, averageWage)
	case domain.SchemePoints:
		gross, err = computePoints(s, profile, wage, averageWage)
	case domain.SchemeNDC:
		gross, err = computeNDC(s, profile, wage, averageWage, asmp)
	case domain.SchemeDC:
		gross, err = computeDC(s, profile, wage, averageWage, asmp)
	case domain.SchemeBasic:
		gross, err = computeBasic(s, averageWage)
	case domain.SchemeTargeted:
		gross, err = computeTargeted(s, wage, averageWage)
	case domain.SchemeMinimum:
		// The minimum guarantee is never a standalone benefit; its floor
		// level is resolved by the aggregator.
		gross = minimumFloor(s, averageWage)
	default:
		return schemeAmount{}, &domain.ConfigurationError{
			SchemeID: s.ID,
			Field:    "type",
			Reason:   fmt.Sprintf("unsupported scheme type %q", s.Type),
		}
	}
	if err != nil {
		return schemeAmount{}, err
	}

	if gross.IsNegative() {
		gross = decimal.Zero
	}
	return applyBenefitBounds(s, gross, averageWage), nil
}

// computeDB applies the defined-benefit accrual formula:
//
//	accrual_rate × min(service_years, max_accrual_years) × reference_wage
//
// Service years beyond the accrual cap are clamped silently. The
// reference wage is the current individual wage (career-average wages
// valorized to wage growth are equivalent to the final wage for a
// full-career worker), capped at the contribution ceiling when one is set.
func computeDB(s domain.SchemeComponent, profile domain.PersonProfile, wage, averageWage decimal.Decimal) (decimal.Decimal, error) {
	if s.Benefits.AccrualRate == nil {
		return decimal.Zero, &domain.ConfigurationError{
			SchemeID: s.ID, Field: "accrual_rate", Reason: "required for DB schemes",
		}
	}

	years := profile.ServiceYears
	if max := s.Benefits.MaxAccrualYears; max != nil && years.GreaterThan(*max) {
		years = *max
	}

	refWage := wage
	if s.Contributions != nil && s.Contributions.CeilingAWMultiple != nil {
		ceiling := s.Contributions.CeilingAWMultiple.Mul(averageWage)
		if refWage.GreaterThan(ceiling) {
			refWage = ceiling
		}
	}

	return s.Benefits.AccrualRate.Mul(years).Mul(refWage), nil
}

// computePoints values the points earned over the career:
//
//	(wage / AW) × points_per_year × service_years × point_value
//
// points_per_year defaults to one point per year at the average wage.
func computePoints(s domain.SchemeComponent, profile domain.PersonProfile, wage, averageWage decimal.Decimal) (decimal.Decimal, error) {
	pointValue, err := resolvePointValue(s, averageWage)
	if err != nil {
		return decimal.Zero, err
	}

	perYear := one
	if s.Benefits.PointsPerYear != nil {
		perYear = *s.Benefits.PointsPerYear
	}

	if averageWage.IsZero() {
		return decimal.Zero, &domain.ComputationError{SchemeID: s.ID, Reason: "average wage is zero"}
	}

	points := wage.Div(averageWage).Mul(perYear).Mul(profile.ServiceYears)
	return points.Mul(pointValue), nil
}

func resolvePointValue(s domain.SchemeComponent, averageWage decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case s.Benefits.PointValue != nil:
		return *s.Benefits.PointValue, nil
	case s.Benefits.PointValueAWMultiple != nil:
		return s.Benefits.PointValueAWMultiple.Mul(averageWage), nil
	default:
		return decimal.Zero, &domain.ConfigurationError{
			SchemeID: s.ID, Field: "point_value", Reason: "required for points schemes",
		}
	}
}

// computeNDC divides the notional account by the annuity divisor at NRA.
// The balance comes from the profile override when present, otherwise
// from contributions compounded at the notional interest rate (real wage
// growth when unset) over the contribution years.
func computeNDC(s domain.SchemeComponent, profile domain.PersonProfile, wage, averageWage decimal.Decimal, asmp domain.GlobalAssumptions) (decimal.Decimal, error) {
	divisor := s.Benefits.AnnuityDivisorAtNRA
	if divisor == nil || divisor.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, &domain.ComputationError{
			SchemeID: s.ID, Reason: "annuity divisor at NRA is zero or undefined",
		}
	}

	balance := decimal.Zero
	if profile.NotionalBalance != nil {
		balance = *profile.NotionalBalance
	} else {
		rate := asmp.RealWageGrowth
		if s.Benefits.NotionalInterestRate != nil {
			rate = *s.Benefits.NotionalInterestRate
		}
		balance = accumulatedFund(s, profile, wage, averageWage, rate, asmp.ContributionDensity)
	}

	return balance.Div(*divisor), nil
}

// computeDC divides the accumulated fund by the annuity divisor at NRA.
// Zero contributions produce a zero fund, not an error.
func computeDC(s domain.SchemeComponent, profile domain.PersonProfile, wage, averageWage decimal.Decimal, asmp domain.GlobalAssumptions) (decimal.Decimal, error) {
	divisor := s.Benefits.AnnuityDivisorAtNRA
	if divisor == nil || divisor.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, &domain.ComputationError{
			SchemeID: s.ID, Reason: "annuity divisor at NRA is zero or undefined",
		}
	}

	fund := decimal.Zero
	if profile.DCBalance != nil {
		fund = *profile.DCBalance
	} else {
		fund = accumulatedFund(s, profile, wage, averageWage, asmp.DCRealReturn, asmp.ContributionDensity)
	}

	return fund.Div(*divisor), nil
}

// accumulatedFund is the future value of yearly contributions of
// rate × base × density compounded at the given return over the
// contribution years, where base is the wage clamped to the scheme's
// contribution floor and ceiling.
func accumulatedFund(s domain.SchemeComponent, profile domain.PersonProfile, wage, averageWage, annualReturn, density decimal.Decimal) decimal.Decimal {
	contribRate := s.Contributions.CombinedRate()
	if contribRate.IsZero() {
		return decimal.Zero
	}
	yearly := contribRate.Mul(contributionBase(s, wage, averageWage)).Mul(density)
	return yearly.Mul(fvFactor(annualReturn, profile.EffectiveContributionYears()))
}

// contributionBase clamps the wage contributions are levied on to the
// scheme's contribution floor and ceiling, both average-wage multiples.
func contributionBase(s domain.SchemeComponent, wage, averageWage decimal.Decimal) decimal.Decimal {
	base := wage
	if s.Contributions == nil {
		return base
	}
	if f := s.Contributions.FloorAWMultiple; f != nil {
		if floor := f.Mul(averageWage); base.LessThan(floor) {
			base = floor
		}
	}
	if c := s.Contributions.CeilingAWMultiple; c != nil {
		if ceiling := c.Mul(averageWage); base.GreaterThan(ceiling) {
			base = ceiling
		}
	}
	return base
}

// computeBasic pays the flat rate, as an average-wage multiple or an
// absolute amount; independent of wage and service.
func computeBasic(s domain.SchemeComponent, averageWage decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case s.Benefits.FlatRateAWMultiple != nil:
		return s.Benefits.FlatRateAWMultiple.Mul(averageWage), nil
	case s.Benefits.FlatRateAbsolute != nil:
		return *s.Benefits.FlatRateAbsolute, nil
	default:
		return decimal.Zero, &domain.ConfigurationError{
			SchemeID: s.ID, Field: "flat_rate", Reason: "basic schemes need flat_rate_aw_multiple or flat_rate_absolute",
		}
	}
}

// computeTargeted applies the means-tested phase-out:
//
//	max(0, max_benefit − taper_rate × max(0, wage − income_threshold))
//
// The taper defaults to 0.5 and the threshold to zero income, the
// conventional social-assistance phase-out.
func computeTargeted(s domain.SchemeComponent, wage, averageWage decimal.Decimal) (decimal.Decimal, error) {
	if s.Benefits.MaximumBenefitAWMultiple == nil {
		return decimal.Zero, &domain.ConfigurationError{
			SchemeID: s.ID, Field: "maximum_benefit_aw_multiple", Reason: "required for targeted schemes",
		}
	}
	maxBenefit := s.Benefits.MaximumBenefitAWMultiple.Mul(averageWage)

	taper := decimal.NewFromFloat(0.5)
	if s.Benefits.TaperRate != nil {
		taper = *s.Benefits.TaperRate
	}

	threshold := decimal.Zero
	if s.Benefits.IncomeThresholdAWMultiple != nil {
		threshold = s.Benefits.IncomeThresholdAWMultiple.Mul(averageWage)
	}

	excess := wage.Sub(threshold)
	if excess.IsNegative() {
		excess = decimal.Zero
	}

	benefit := maxBenefit.Sub(taper.Mul(excess))
	if benefit.IsNegative() {
		return decimal.Zero, nil
	}
	return benefit, nil
}

// minimumFloor resolves the guarantee level of a minimum scheme.
func minimumFloor(s domain.SchemeComponent, averageWage decimal.Decimal) decimal.Decimal {
	if s.Benefits.MinimumBenefitAWMultiple != nil {
		return s.Benefits.MinimumBenefitAWMultiple.Mul(averageWage)
	}
	if s.Benefits.FlatRateAbsolute != nil {
		return *s.Benefits.FlatRateAbsolute
	}
	return decimal.Zero
}

// applyBenefitBounds clamps one component to its own min/max bounds and
// records what happened for the trace.
func applyBenefitBounds(s domain.SchemeComponent, gross, averageWage decimal.Decimal) schemeAmount {
	amount := schemeAmount{Gross: gross}

	// The minimum scheme's own multiple is its floor level, not a bound.
	if s.Type == domain.SchemeMinimum {
		return amount
	}

	if m := s.Benefits.MinimumBenefitAWMultiple; m != nil {
		floor := m.Mul(averageWage)
		if amount.Gross.LessThan(floor) {
			amount.Notes = append(amount.Notes,
				fmt.Sprintf("raised to scheme minimum %s", floor.StringFixed(2)))
			amount.Gross = floor
		}
	}
	if m := s.Benefits.MaximumBenefitAWMultiple; m != nil && s.Type != domain.SchemeTargeted {
		cap := m.Mul(averageWage)
		if amount.Gross.GreaterThan(cap) {
			amount.Notes = append(amount.Notes,
				fmt.Sprintf("capped at scheme maximum %s", cap.StringFixed(2)))
			amount.Gross = cap
		}
	}
	return amount
}

// fvFactor is the future value of a unit annuity over the given years at
// the given rate: ((1+r)^n − 1)/r, or n when r is zero.
func fvFactor(rate, years decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return years
	}
	compounded := powDecimal(one.Add(rate), years)
	return compounded.Sub(one).Div(rate)
}

// powDecimal raises base to a possibly fractional exponent. Integer
// exponents stay in decimal arithmetic; fractional ones route through
// float64, which is plenty for rate compounding.
func powDecimal(base, exp decimal.Decimal) decimal.Decimal {
	if exp.IsInteger() {
		return base.Pow(exp)
	}
	b, _ := base.Float64()
	e, _ := exp.Float64()
	return decimal.NewFromFloat(math.Pow(b, e))
}
