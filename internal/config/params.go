// Package config loads and validates country parameter sets, global
// assumptions, and life-table snapshots from YAML. Validation happens at
// load time so the calculation engine can assume well-formed input.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/pensionlab/pencalc/internal/domain"
)

// ParamsParser handles parsing of country parameter files.
type ParamsParser struct{}

// NewParamsParser creates a new parameter parser.
func NewParamsParser() *ParamsParser {
	return &ParamsParser{}
}

// LoadCountryFile loads one country parameter set from a YAML file.
func (pp *ParamsParser) LoadCountryFile(filename string) (*domain.CountryParameterSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return pp.ParseCountry(data)
}

// ParseCountry parses and validates one country parameter set.
func (pp *ParamsParser) ParseCountry(data []byte) (*domain.CountryParameterSet, error) {
	var params domain.CountryParameterSet
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := pp.ValidateCountry(&params); err != nil {
		return nil, fmt.Errorf("parameter validation failed: %w", err)
	}

	return &params, nil
}

// ValidateCountry validates a loaded country parameter set: metadata,
// scheme ids and formula fields, worker-type references, taxes, and the
// average wage.
func (pp *ParamsParser) ValidateCountry(params *domain.CountryParameterSet) error {
	if params.Metadata.ISO3 == "" {
		return fmt.Errorf("metadata.iso3 is required")
	}
	if len(params.Metadata.ISO3) != 3 {
		return fmt.Errorf("metadata.iso3 must be a three-letter code, got %q", params.Metadata.ISO3)
	}
	if params.Metadata.CountryName == "" {
		return fmt.Errorf("metadata.country_name is required")
	}

	if len(params.Schemes) == 0 {
		return fmt.Errorf("at least one scheme is required")
	}

	seen := make(map[string]bool, len(params.Schemes))
	for i, s := range params.Schemes {
		if err := pp.validateScheme(&s); err != nil {
			return fmt.Errorf("scheme %d (%s) validation failed: %w", i, s.ID, err)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate scheme id %q", s.ID)
		}
		seen[s.ID] = true
	}

	for name, rule := range params.WorkerTypes {
		if !validCoverage(rule.CoverageStatus) {
			return fmt.Errorf("worker type %q: unknown coverage status %q", name, rule.CoverageStatus)
		}
		for _, id := range rule.SchemeIDs {
			if !seen[id] {
				return fmt.Errorf("worker type %q references unknown scheme %q", name, id)
			}
		}
	}

	if err := pp.validateTaxes(&params.Taxes); err != nil {
		return fmt.Errorf("tax rules validation failed: %w", err)
	}

	if params.AverageEarnings.AnnualValue.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("average_earnings.annual_value must be positive")
	}

	return nil
}

// validateScheme checks per-type formula requirements up front so a
// malformed scheme is rejected at load time rather than degrading every
// computation that touches it.
func (pp *ParamsParser) validateScheme(s *domain.SchemeComponent) error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !s.Type.Valid() {
		return fmt.Errorf("unknown scheme type %q", s.Type)
	}

	switch s.Type {
	case domain.SchemeDB:
		if s.Benefits.AccrualRate == nil {
			return fmt.Errorf("accrual_rate is required for DB schemes")
		}
		if s.Benefits.AccrualRate.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("accrual_rate must be positive")
		}
	case domain.SchemePoints:
		if s.Benefits.PointValue == nil && s.Benefits.PointValueAWMultiple == nil {
			return fmt.Errorf("point_value or point_value_aw_multiple is required for points schemes")
		}
	case domain.SchemeNDC, domain.SchemeDC:
		if s.Benefits.AnnuityDivisorAtNRA != nil && s.Benefits.AnnuityDivisorAtNRA.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("annuity_divisor_at_nra must be positive when set")
		}
	case domain.SchemeBasic:
		if s.Benefits.FlatRateAWMultiple == nil && s.Benefits.FlatRateAbsolute == nil {
			return fmt.Errorf("flat_rate_aw_multiple or flat_rate_absolute is required for basic schemes")
		}
	case domain.SchemeTargeted:
		if s.Benefits.MaximumBenefitAWMultiple == nil {
			return fmt.Errorf("maximum_benefit_aw_multiple is required for targeted schemes")
		}
	case domain.SchemeMinimum:
		if s.Benefits.MinimumBenefitAWMultiple == nil && s.Benefits.FlatRateAbsolute == nil {
			return fmt.Errorf("minimum_benefit_aw_multiple or flat_rate_absolute is required for minimum schemes")
		}
	}

	if err := validateRates(s.Contributions); err != nil {
		return err
	}

	if nra := s.Eligibility.NormalRetirementAgeMale; nra != nil && nra.IsNegative() {
		return fmt.Errorf("normal_retirement_age_male cannot be negative")
	}
	if nra := s.Eligibility.NormalRetirementAgeFemale; nra != nil && nra.IsNegative() {
		return fmt.Errorf("normal_retirement_age_female cannot be negative")
	}

	return nil
}

func validateRates(c *domain.ContributionRules) error {
	if c == nil {
		return nil
	}
	check := func(name string, r *decimal.Decimal) error {
		if r == nil {
			return nil
		}
		if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s must be in [0, 1], got %s", name, r)
		}
		return nil
	}
	if err := check("employee_rate", c.EmployeeRate); err != nil {
		return err
	}
	if err := check("employer_rate", c.EmployerRate); err != nil {
		return err
	}
	return check("total_rate", c.TotalRate)
}

func (pp *ParamsParser) validateTaxes(t *domain.TaxRules) error {
	if r := t.SimplifiedNetRate; r != nil {
		if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("simplified_net_rate must be in [0, 1], got %s", r)
		}
	}

	social := decimal.Zero
	if r := t.SocialContributionRate; r != nil {
		if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("social_contribution_rate must be in [0, 1], got %s", r)
		}
		social = *r
	}

	prev := decimal.Zero
	for i, b := range t.Brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("bracket %d: rate must be in [0, 1], got %s", i, b.Rate)
		}
		// A marginal rate plus the social rate above 1 would make net
		// decrease as gross grows.
		if b.Rate.Add(social).GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("bracket %d: rate %s plus social_contribution_rate %s exceeds 1", i, b.Rate, social)
		}
		if b.Upper == nil {
			if i != len(t.Brackets)-1 {
				return fmt.Errorf("bracket %d: only the last bracket may be unbounded", i)
			}
			continue
		}
		if b.Upper.LessThanOrEqual(prev) {
			return fmt.Errorf("bracket %d: upper bound %s must exceed the previous bound %s", i, b.Upper, prev)
		}
		prev = *b.Upper
	}

	return nil
}

func validCoverage(c domain.CoverageStatus) bool {
	switch c {
	case domain.CoverageCovered, domain.CoverageExcluded, domain.CoveragePartial, domain.CoverageUnknown:
		return true
	}
	return false
}
