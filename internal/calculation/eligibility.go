package calculation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/domain"
)

// EligibilityResolution is the outcome of the eligibility stage: which
// schemes are payable for the profile, the profile-level outcome summary,
// and the trace/warnings the stage produced.
type EligibilityResolution struct {
	Outcome  domain.EligibilityOutcome
	Excluded bool
	Payable  []domain.SchemeComponent

	// EarlyRetirement is set when the profile is below the normal
	// retirement age but at or past the early retirement age; the
	// aggregate benefit is then reduced per month of early claiming.
	EarlyRetirement bool
	MonthsEarly     decimal.Decimal

	Steps    []domain.ReasoningStep
	Warnings []domain.Warning
}

// ResolveEligibility determines which of the country's schemes are payable
// to the profile. A scheme is payable when the profile satisfies its age
// threshold OR its service threshold; the two conditions are never
// exclusive, and a scheme defining neither is always payable. Worker types
// with excluded coverage short-circuit the whole computation.
func ResolveEligibility(params *domain.CountryParameterSet, profile domain.PersonProfile) *EligibilityResolution {
	res := &EligibilityResolution{}

	applicable := applicableSchemes(params, profile, res)
	if res.Excluded {
		return res
	}

	// Profile-level retirement ages come from the first applicable
	// scheme that defines them.
	nra := decimal.Zero
	var era *decimal.Decimal
	for _, s := range applicable {
		if v := s.Eligibility.NormalRetirementAge(profile.Sex); v != nil && nra.IsZero() {
			nra = *v
		}
		if v := s.Eligibility.EarlyRetirementAge(profile.Sex); v != nil && era == nil {
			era = v
		}
	}

	var missing []string
	for _, s := range applicable {
		ok, reason := schemePayable(s, profile)
		if ok {
			res.Payable = append(res.Payable, s)
			continue
		}
		missing = append(missing, fmt.Sprintf("%s: %s", s.ID, reason))
		res.Steps = append(res.Steps, domain.ReasoningStep{
			Label:   "Scheme skipped: " + s.ID,
			Formula: "age >= NRA or service_years >= minimum_service_years",
			Value:   "NOT PAYABLE - " + reason,
		})
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    domain.WarnSchemeSkipped,
			Message: fmt.Sprintf("scheme %s not payable: %s", s.ID, reason),
		})
	}

	// Early retirement window: below NRA but at or past ERA. The payable
	// check above already admitted these schemes via the service route or
	// the ERA route; the reduction itself is applied by the engine.
	if !nra.IsZero() && profile.Age.LessThan(nra) && era != nil && profile.Age.GreaterThanOrEqual(*era) {
		res.EarlyRetirement = true
		res.MonthsEarly = nra.Sub(profile.Age).Mul(decimal.NewFromInt(12))
	}

	res.Outcome = domain.EligibilityOutcome{
		Eligible:            len(res.Payable) > 0,
		Missing:             missing,
		NormalRetirementAge: nra,
		EarlyRetirementAge:  era,
		YearsToNRA:          nra.Sub(profile.Age),
	}

	if len(res.Payable) == 0 {
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    domain.WarnNoEligibleSchemes,
			Message: "no scheme is payable for this profile",
		})
	}

	return res
}

// applicableSchemes resolves the worker type and returns the active
// schemes assigned to it, defensively skipping dangling scheme references.
func applicableSchemes(params *domain.CountryParameterSet, profile domain.PersonProfile, res *EligibilityResolution) []domain.SchemeComponent {
	rule, found := params.WorkerTypes[profile.WorkerTypeID]

	if len(params.WorkerTypes) > 0 && !found {
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    domain.WarnWorkerTypeUnknown,
			Message: fmt.Sprintf("worker type %q not defined; using all active schemes", profile.WorkerTypeID),
		})
	}

	if found && rule.CoverageStatus == domain.CoverageExcluded {
		res.Excluded = true
		reason := fmt.Sprintf("worker type %q is excluded from pension coverage", profile.WorkerTypeID)
		res.Outcome = domain.EligibilityOutcome{
			Eligible: false,
			Missing:  []string{reason},
		}
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    domain.WarnWorkerTypeExcluded,
			Message: reason,
		})
		res.Steps = append(res.Steps, domain.ReasoningStep{
			Label:   "Coverage",
			Formula: "worker_type coverage_status",
			Value:   "EXCLUDED - " + reason,
		})
		return nil
	}

	if !found || len(rule.SchemeIDs) == 0 {
		return params.ActiveSchemes()
	}

	var schemes []domain.SchemeComponent
	for _, id := range rule.SchemeIDs {
		s := params.SchemeByID(id)
		if s == nil {
			// Reference integrity is validated upstream; tolerate and
			// record the dangling id rather than failing the run.
			res.Warnings = append(res.Warnings, domain.Warning{
				Code:    domain.WarnUnknownSchemeRef,
				Message: fmt.Sprintf("worker type %q references unknown scheme %q", profile.WorkerTypeID, id),
			})
			continue
		}
		if s.Active {
			schemes = append(schemes, *s)
		}
	}
	return schemes
}

// schemePayable checks one scheme's thresholds. Satisfying either the age
// or the service condition is sufficient; a scheme below both thresholds
// may still be payable through its early retirement window.
func schemePayable(s domain.SchemeComponent, profile domain.PersonProfile) (bool, string) {
	nra := s.Eligibility.NormalRetirementAge(profile.Sex)
	minSvc := s.Eligibility.MinimumServiceYears

	if nra == nil && minSvc == nil {
		return true, ""
	}
	if nra != nil && profile.Age.GreaterThanOrEqual(*nra) {
		return true, ""
	}
	if minSvc != nil && profile.ServiceYears.GreaterThanOrEqual(*minSvc) {
		return true, ""
	}
	if era := s.Eligibility.EarlyRetirementAge(profile.Sex); era != nil && profile.Age.GreaterThanOrEqual(*era) {
		return true, ""
	}

	switch {
	case nra != nil && minSvc != nil:
		return false, fmt.Sprintf("age %s < NRA %s and service %s < minimum %s",
			profile.Age, nra, profile.ServiceYears, minSvc)
	case nra != nil:
		return false, fmt.Sprintf("age %s < NRA %s", profile.Age, nra)
	default:
		return false, fmt.Sprintf("service %s < minimum %s", profile.ServiceYears, minSvc)
	}
}
