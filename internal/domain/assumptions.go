package domain

import (
	"github.com/shopspring/decimal"
)

// GlobalAssumptions contains the economy-wide modeling parameters shared
// by every computation. They are always passed explicitly; there is no
// process-wide configuration.
type GlobalAssumptions struct {
	EntryAge            int             `yaml:"entry_age" json:"entry_age"`
	CareerLength        int             `yaml:"career_length" json:"career_length"`
	ContributionDensity decimal.Decimal `yaml:"contribution_density" json:"contribution_density"`
	RealWageGrowth      decimal.Decimal `yaml:"real_wage_growth" json:"real_wage_growth"`
	Inflation           decimal.Decimal `yaml:"inflation" json:"inflation"`
	DiscountRate        decimal.Decimal `yaml:"discount_rate" json:"discount_rate"`
	DCRealReturn        decimal.Decimal `yaml:"dc_real_return" json:"dc_real_return"`
	IndexationRate      decimal.Decimal `yaml:"indexation_rate" json:"indexation_rate"`

	// Fallbacks used when no life table is available for a country/sex.
	LifeExpectancyMale   decimal.Decimal `yaml:"life_expectancy_male" json:"life_expectancy_male"`
	LifeExpectancyFemale decimal.Decimal `yaml:"life_expectancy_female" json:"life_expectancy_female"`

	// MaxAge bounds the survival-weighted pension-wealth sum.
	MaxAge int `yaml:"max_age" json:"max_age"`

	// LifeTableYear selects the life-table vintage.
	LifeTableYear int `yaml:"life_table_year" json:"life_table_year"`
}

// DefaultAssumptions returns the baseline assumption set: full-career
// average worker, 2% real wage growth and discount rate, 3% DC net return,
// CPI-indexed benefits (zero real indexation).
func DefaultAssumptions() GlobalAssumptions {
	return GlobalAssumptions{
		EntryAge:             20,
		CareerLength:         40,
		ContributionDensity:  decimal.NewFromInt(1),
		RealWageGrowth:       decimal.NewFromFloat(0.02),
		Inflation:            decimal.NewFromFloat(0.02),
		DiscountRate:         decimal.NewFromFloat(0.02),
		DCRealReturn:         decimal.NewFromFloat(0.03),
		IndexationRate:       decimal.Zero,
		LifeExpectancyMale:   decimal.NewFromInt(20),
		LifeExpectancyFemale: decimal.NewFromInt(25),
		MaxAge:               110,
		LifeTableYear:        2020,
	}
}

// LifeExpectancyAtRetirement returns the fallback remaining life
// expectancy for the given sex.
func (a GlobalAssumptions) LifeExpectancyAtRetirement(sex Sex) decimal.Decimal {
	if sex == Female {
		return a.LifeExpectancyFemale
	}
	return a.LifeExpectancyMale
}

// StandardMultiples is the fixed ordered set of earnings multiples at
// which entitlements are evaluated.
func StandardMultiples() []decimal.Decimal {
	return []decimal.Decimal{
		decimal.NewFromFloat(0.5),
		decimal.NewFromFloat(0.75),
		decimal.NewFromInt(1),
		decimal.NewFromFloat(1.5),
		decimal.NewFromInt(2),
		decimal.NewFromFloat(2.5),
	}
}
