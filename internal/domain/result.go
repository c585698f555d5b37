package domain

import (
	"github.com/shopspring/decimal"
)

// WarningCode classifies the non-fatal problems a computation can report.
type WarningCode string

const (
	WarnWorkerTypeExcluded WarningCode = "worker_type_excluded"
	WarnWorkerTypeUnknown  WarningCode = "worker_type_unknown"
	WarnNoEligibleSchemes  WarningCode = "no_eligible_schemes"
	WarnSchemeSkipped      WarningCode = "scheme_skipped"
	WarnSchemeFailed       WarningCode = "scheme_failed"
	WarnBenefitCapped      WarningCode = "benefit_capped"
	WarnBenefitClamped     WarningCode = "benefit_clamped"
	WarnMinimumTopUp       WarningCode = "minimum_top_up"
	WarnFallbackMortality  WarningCode = "fallback_mortality"
	WarnUnknownSchemeRef   WarningCode = "unknown_scheme_reference"
	WarnEarlyRetirement    WarningCode = "early_retirement_reduction"
)

// Warning is a structured, non-fatal problem attached to a result.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// ReasoningStep is one entry of the ordered audit trace. The trace is part
// of the output contract consumed by explainability tooling, not a debug
// side channel.
type ReasoningStep struct {
	Label   string `json:"label"`
	Formula string `json:"formula"`
	Value   string `json:"value"`
}

// EligibilityOutcome summarizes the eligibility stage for the whole profile.
type EligibilityOutcome struct {
	Eligible            bool             `json:"eligible"`
	Missing             []string         `json:"missing,omitempty"`
	NormalRetirementAge decimal.Decimal  `json:"normal_retirement_age"`
	EarlyRetirementAge  *decimal.Decimal `json:"early_retirement_age,omitempty"`
	YearsToNRA          decimal.Decimal  `json:"years_to_nra"`
}

// PensionResult is the complete outcome of one (profile, earnings
// multiple) computation. It is produced fresh per call and never mutated
// afterwards; every field is JSON-serializable.
type PensionResult struct {
	EarningsMultiple decimal.Decimal `json:"earnings_multiple"`
	IndividualWage   decimal.Decimal `json:"individual_wage"`
	AverageWage      decimal.Decimal `json:"average_wage"`

	GrossBenefit decimal.Decimal `json:"gross_benefit"`
	NetBenefit   decimal.Decimal `json:"net_benefit"`

	GrossReplacementRate decimal.Decimal `json:"gross_replacement_rate"`
	NetReplacementRate   decimal.Decimal `json:"net_replacement_rate"`

	GrossPensionLevel decimal.Decimal `json:"gross_pension_level"`
	NetPensionLevel   decimal.Decimal `json:"net_pension_level"`

	GrossPensionWealth decimal.Decimal `json:"gross_pension_wealth"`
	NetPensionWealth   decimal.Decimal `json:"net_pension_wealth"`

	// Breakdown maps scheme id to its annual gross contribution after
	// aggregation adjustments (the minimum scheme carries only its
	// top-up portion).
	Breakdown map[string]decimal.Decimal `json:"component_breakdown"`

	Eligibility EligibilityOutcome `json:"eligibility"`
	Trace       []ReasoningStep    `json:"reasoning_trace"`
	Warnings    []Warning          `json:"warnings,omitempty"`
}

// HasWarning reports whether the result carries a warning with the code.
func (r *PensionResult) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
