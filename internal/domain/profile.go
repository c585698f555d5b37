package domain

import (
	"github.com/shopspring/decimal"
)

// Sex selects sex-specific retirement ages and life tables.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// WageUnit says how PersonProfile.Wage is expressed.
type WageUnit string

const (
	// WageCurrency means the wage is an absolute annual amount in the
	// country's national currency.
	WageCurrency WageUnit = "currency"
	// WageAWMultiple means the wage is a multiple of the national
	// average wage.
	WageAWMultiple WageUnit = "aw_multiple"
)

// PersonProfile describes the worker whose entitlement is being computed.
// It is an immutable input; the engine never mutates it.
type PersonProfile struct {
	Sex          Sex             `yaml:"sex" json:"sex"`
	Age          decimal.Decimal `yaml:"age" json:"age"`
	ServiceYears decimal.Decimal `yaml:"service_years" json:"service_years"`
	Wage         decimal.Decimal `yaml:"wage" json:"wage"`
	WageUnit     WageUnit        `yaml:"wage_unit" json:"wage_unit"`
	WorkerTypeID string          `yaml:"worker_type_id" json:"worker_type_id"`

	// Optional overrides. When set, they replace the values the engine
	// would otherwise derive from the career assumptions.
	ContributionYears *decimal.Decimal `yaml:"contribution_years,omitempty" json:"contribution_years,omitempty"`
	DCBalance         *decimal.Decimal `yaml:"dc_balance,omitempty" json:"dc_balance,omitempty"`
	NotionalBalance   *decimal.Decimal `yaml:"notional_balance,omitempty" json:"notional_balance,omitempty"`
}

// EffectiveContributionYears returns the explicit contribution-year
// override when present, otherwise the service years.
func (p PersonProfile) EffectiveContributionYears() decimal.Decimal {
	if p.ContributionYears != nil {
		return *p.ContributionYears
	}
	return p.ServiceYears
}

// ResolveWage converts the profile wage to an absolute annual amount in
// national currency, given the national average wage.
func (p PersonProfile) ResolveWage(averageWage decimal.Decimal) decimal.Decimal {
	if p.WageUnit == WageAWMultiple {
		return p.Wage.Mul(averageWage)
	}
	return p.Wage
}
