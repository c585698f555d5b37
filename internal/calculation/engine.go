// Package calculation implements the pension entitlement engine: a pure,
// synchronous pipeline from a worker profile and a validated country
// parameter set to gross/net benefits, replacement rates, pension levels,
// and survival-weighted pension wealth.
package calculation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/lifetable"
)

// earlyReductionPerMonth is the benefit reduction applied per month of
// claiming before the normal retirement age (0.5%/month).
var earlyReductionPerMonth = decimal.NewFromFloat(0.005)

// Engine computes one PensionResult per (profile, earnings multiple)
// call. It holds only immutable inputs and stateless collaborators, so a
// single Engine value is safe for concurrent use; looping over countries,
// multiples, or sexes belongs to the batch orchestrator, not here.
type Engine struct {
	Params      *domain.CountryParameterSet
	Assumptions domain.GlobalAssumptions
	AverageWage decimal.Decimal
	Tax         TaxStrategy
	Wealth      *WealthCalculator
	Logger      Logger
}

// NewEngine wires an engine for one country. The average wage must already
// be resolved to an annual amount in national currency; the tax strategy
// is derived from the country's tax rules.
func NewEngine(params *domain.CountryParameterSet, asmp domain.GlobalAssumptions, averageWage decimal.Decimal, tables lifetable.Provider) *Engine {
	return &Engine{
		Params:      params,
		Assumptions: asmp,
		AverageWage: averageWage,
		Tax:         NewTaxStrategy(params.Taxes),
		Wealth:      NewWealthCalculator(tables, asmp.MaxAge),
		Logger:      NopLogger{},
	}
}

// SetLogger installs a logger; nil restores the no-op default.
func (e *Engine) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	e.Logger = l
}

// CalculateMultiple evaluates the profile at one of the standard earnings
// multiples: the profile's wage is replaced by multiple × AW.
func (e *Engine) CalculateMultiple(profile domain.PersonProfile, multiple decimal.Decimal) (*domain.PensionResult, error) {
	profile.Wage = multiple
	profile.WageUnit = domain.WageAWMultiple
	return e.Calculate(profile)
}

// CalculateStandardMultiples evaluates the profile at every multiple of
// the fixed ordered set {0.5, 0.75, 1.0, 1.5, 2.0, 2.5}.
func (e *Engine) CalculateStandardMultiples(profile domain.PersonProfile) ([]*domain.PensionResult, error) {
	results := make([]*domain.PensionResult, 0, 6)
	for _, m := range domain.StandardMultiples() {
		r, err := e.CalculateMultiple(profile, m)
		if err != nil {
			return nil, fmt.Errorf("multiple %s: %w", m, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// Calculate runs the strictly ordered pipeline for one profile:
// eligibility, per-scheme dispatch, aggregation, tax conversion, wealth.
// Scheme-scoped failures degrade to zero contributions with warnings; the
// only hard failure is a configuration error that leaves no scheme able
// to produce a usable result.
func (e *Engine) Calculate(profile domain.PersonProfile) (*domain.PensionResult, error) {
	wage := profile.ResolveWage(e.AverageWage)
	if wage.IsNegative() {
		return nil, fmt.Errorf("resolved individual wage is negative: %s", wage)
	}

	multiple := decimal.Zero
	if e.AverageWage.GreaterThan(decimal.Zero) {
		multiple = wage.Div(e.AverageWage)
	}

	result := &domain.PensionResult{
		EarningsMultiple: multiple,
		IndividualWage:   wage,
		AverageWage:      e.AverageWage,
		Breakdown:        map[string]decimal.Decimal{},
	}
	result.Trace = append(result.Trace, domain.ReasoningStep{
		Label:   "Reference wage",
		Formula: fmt.Sprintf("%s x AW (%s)", multiple.StringFixed(2), e.AverageWage.StringFixed(0)),
		Value:   fmt.Sprintf("%s %s", e.Params.Metadata.CurrencyCode, wage.StringFixed(0)),
	})

	// Stage 1: eligibility.
	elig := ResolveEligibility(e.Params, profile)
	result.Eligibility = elig.Outcome
	result.Trace = append(result.Trace, elig.Steps...)
	result.Warnings = append(result.Warnings, elig.Warnings...)

	if elig.Excluded || len(elig.Payable) == 0 {
		// Zero benefit; no scheme dispatch is attempted.
		e.Logger.Infof("%s: no payable schemes for worker type %q",
			e.Params.Metadata.ISO3, profile.WorkerTypeID)
		return result, nil
	}

	// Stage 2: per-scheme dispatch.
	amounts := make(map[string]schemeAmount, len(elig.Payable))
	configFailures := 0
	for _, s := range elig.Payable {
		amount, err := computeScheme(s, profile, wage, e.AverageWage, e.Assumptions)
		if err != nil {
			var confErr *domain.ConfigurationError
			if errors.As(err, &confErr) {
				configFailures++
			}
			e.Logger.Warnf("%s: scheme %s failed: %v", e.Params.Metadata.ISO3, s.ID, err)
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:    domain.WarnSchemeFailed,
				Message: err.Error(),
			})
			result.Trace = append(result.Trace, domain.ReasoningStep{
				Label:   "Scheme: " + s.ID,
				Formula: string(s.Type) + " formula",
				Value:   "FAILED - " + err.Error(),
			})
			amounts[s.ID] = schemeAmount{Gross: decimal.Zero}
			continue
		}
		amounts[s.ID] = amount
	}
	if configFailures == len(elig.Payable) {
		return nil, fmt.Errorf("no scheme produced a usable result for %s: %d configuration error(s)",
			e.Params.Metadata.ISO3, configFailures)
	}

	// Stage 3: aggregation (floor top-up, country cap).
	agg := aggregate(elig.Payable, amounts, e.Params, e.Params.Metadata.CurrencyCode, e.AverageWage)
	gross := agg.Total
	result.Breakdown = agg.Breakdown
	result.Trace = append(result.Trace, agg.Steps...)
	result.Warnings = append(result.Warnings, agg.Warnings...)

	// Early claiming reduction.
	if elig.EarlyRetirement && gross.GreaterThan(decimal.Zero) {
		multiplier := one.Sub(earlyReductionPerMonth.Mul(elig.MonthsEarly))
		if multiplier.IsNegative() {
			multiplier = decimal.Zero
		}
		gross = gross.Mul(multiplier)
		result.Trace = append(result.Trace, domain.ReasoningStep{
			Label:   "Early retirement adjustment",
			Formula: fmt.Sprintf("1 - 0.5%%/month x %s months early", elig.MonthsEarly.StringFixed(1)),
			Value:   multiplier.StringFixed(4),
		})
		result.Warnings = append(result.Warnings, domain.Warning{
			Code:    domain.WarnEarlyRetirement,
			Message: fmt.Sprintf("benefit reduced by factor %s for claiming %s months before NRA", multiplier.StringFixed(4), elig.MonthsEarly.StringFixed(1)),
		})
	}
	result.GrossBenefit = gross

	// Stage 4: gross-to-net conversion.
	net := e.Tax.NetAmount(gross)
	result.NetBenefit = net
	result.Trace = append(result.Trace, domain.ReasoningStep{
		Label:   "Net pension",
		Formula: fmt.Sprintf("%s tax strategy (effective rate %s)", e.Tax.Name(), e.Tax.EffectiveRate(gross).StringFixed(4)),
		Value:   fmt.Sprintf("%s %s/yr", e.Params.Metadata.CurrencyCode, net.StringFixed(0)),
	})

	// Rates and levels.
	if wage.GreaterThan(decimal.Zero) {
		result.GrossReplacementRate = gross.Div(wage)
		result.NetReplacementRate = net.Div(wage)
	}
	if e.AverageWage.GreaterThan(decimal.Zero) {
		result.GrossPensionLevel = gross.Div(e.AverageWage)
		result.NetPensionLevel = net.Div(e.AverageWage)
	}

	// Stage 5: pension wealth.
	retirementAge := retirementAgeFor(elig.Outcome, profile)
	factor := e.Wealth.Factor(
		e.Params.Metadata.ISO3, profile.Sex, retirementAge,
		e.Assumptions.IndexationRate, e.Assumptions.DiscountRate,
		e.Assumptions.LifeExpectancyAtRetirement(profile.Sex),
	)
	if factor.Fallback {
		result.Warnings = append(result.Warnings, domain.Warning{
			Code: domain.WarnFallbackMortality,
			Message: fmt.Sprintf("no life table for %s/%s; simplified annuity factor %s substituted",
				e.Params.Metadata.ISO3, profile.Sex, factor.Value.StringFixed(4)),
		})
	}
	result.GrossPensionWealth = PensionWealth(gross, e.AverageWage, factor)
	result.NetPensionWealth = PensionWealth(net, e.AverageWage, factor)
	result.Trace = append(result.Trace, domain.ReasoningStep{
		Label:   "Pension wealth",
		Formula: fmt.Sprintf("annuity factor %s x pension level", factor.Value.StringFixed(4)),
		Value:   fmt.Sprintf("gross %s x AW, net %s x AW", result.GrossPensionWealth.StringFixed(2), result.NetPensionWealth.StringFixed(2)),
	})

	return result, nil
}

// retirementAgeFor picks the age the benefit stream starts: the normal
// retirement age, or the profile's age when already past it.
func retirementAgeFor(outcome domain.EligibilityOutcome, profile domain.PersonProfile) int {
	age := outcome.NormalRetirementAge
	if profile.Age.GreaterThan(age) {
		age = profile.Age
	}
	return int(age.IntPart())
}
