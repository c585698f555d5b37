package calculation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/domain"
)

// aggregation is the output of the aggregation stage: the total gross
// benefit, the per-scheme breakdown, and the trace entries in the order
// the adjustments were applied.
type aggregation struct {
	Total     decimal.Decimal
	Breakdown map[string]decimal.Decimal
	Steps     []domain.ReasoningStep
	Warnings  []domain.Warning
}

// aggregate sums the computed components, applies the minimum-guarantee
// top-up, then the country-wide maximum cap. Every clamp and top-up is
// appended to the trace in application order so identical inputs always
// produce an identical audit log.
func aggregate(payable []domain.SchemeComponent, amounts map[string]schemeAmount, params *domain.CountryParameterSet, currency string, averageWage decimal.Decimal) aggregation {
	agg := aggregation{Breakdown: make(map[string]decimal.Decimal)}

	floor := decimal.Zero
	var minimumIDs []string

	for _, s := range payable {
		amount, ok := amounts[s.ID]
		if !ok {
			continue
		}

		if s.Type == domain.SchemeMinimum {
			minimumIDs = append(minimumIDs, s.ID)
			if amount.Gross.GreaterThan(floor) {
				floor = amount.Gross
			}
			continue
		}

		agg.Total = agg.Total.Add(amount.Gross)
		agg.Breakdown[s.ID] = amount.Gross

		value := fmt.Sprintf("%s %s/yr", currency, amount.Gross.StringFixed(0))
		for _, note := range amount.Notes {
			value += "; " + note
			agg.Warnings = append(agg.Warnings, domain.Warning{
				Code:    domain.WarnBenefitClamped,
				Message: fmt.Sprintf("scheme %s: %s", s.ID, note),
			})
		}
		agg.Steps = append(agg.Steps, domain.ReasoningStep{
			Label:   "Scheme: " + s.ID,
			Formula: string(s.Type) + " formula",
			Value:   value,
		})
	}

	// Minimum guarantee: only tops up a shortfall, credited to the first
	// minimum scheme so the breakdown sums to the total.
	if len(minimumIDs) > 0 {
		topUp := decimal.Zero
		if floor.GreaterThan(agg.Total) {
			topUp = floor.Sub(agg.Total)
			agg.Total = floor
			agg.Steps = append(agg.Steps, domain.ReasoningStep{
				Label:   "Minimum guarantee top-up",
				Formula: "max(0, floor - sum(components))",
				Value:   fmt.Sprintf("%s %s/yr", currency, topUp.StringFixed(0)),
			})
			agg.Warnings = append(agg.Warnings, domain.Warning{
				Code:    domain.WarnMinimumTopUp,
				Message: fmt.Sprintf("aggregate raised to minimum guarantee by %s", topUp.StringFixed(2)),
			})
		}
		agg.Breakdown[minimumIDs[0]] = topUp
		for _, id := range minimumIDs[1:] {
			agg.Breakdown[id] = decimal.Zero
		}
	}

	// Country-wide maximum benefit.
	if m := params.Payout.MaximumBenefitAWMultiple; m != nil {
		cap := m.Mul(averageWage)
		if agg.Total.GreaterThan(cap) {
			clamped := agg.Total.Sub(cap)
			agg.Total = cap
			agg.Steps = append(agg.Steps, domain.ReasoningStep{
				Label:   "Maximum benefit cap",
				Formula: fmt.Sprintf("min(total, %s x AW)", m),
				Value:   fmt.Sprintf("%s %s/yr (clamped %s)", currency, cap.StringFixed(0), clamped.StringFixed(0)),
			})
			agg.Warnings = append(agg.Warnings, domain.Warning{
				Code:    domain.WarnBenefitCapped,
				Message: fmt.Sprintf("aggregate benefit capped at maximum; %s clamped", clamped.StringFixed(2)),
			})
		}
	}

	return agg
}
