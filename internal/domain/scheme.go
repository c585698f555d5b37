package domain

import (
	"github.com/shopspring/decimal"
)

// SchemeType identifies the benefit formula a scheme component uses.
// The set is closed: every consumer must handle all seven kinds.
type SchemeType string

const (
	SchemeBasic    SchemeType = "basic"    // universal flat-rate pension
	SchemeTargeted SchemeType = "targeted" // means-tested, tapered against income
	SchemeMinimum  SchemeType = "minimum"  // guarantee applied as a post-aggregation top-up
	SchemeDB       SchemeType = "DB"       // defined benefit, accrual-rate formula
	SchemePoints   SchemeType = "points"   // pension points
	SchemeNDC      SchemeType = "NDC"      // notional defined contribution
	SchemeDC       SchemeType = "DC"       // funded defined contribution
)

// SchemeTypes lists every supported scheme type in a stable order.
var SchemeTypes = []SchemeType{
	SchemeBasic, SchemeTargeted, SchemeMinimum,
	SchemeDB, SchemePoints, SchemeNDC, SchemeDC,
}

// Valid reports whether t is one of the seven supported scheme types.
func (t SchemeType) Valid() bool {
	for _, known := range SchemeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SchemeTier places a component within the multi-pillar taxonomy.
type SchemeTier string

const (
	TierZero   SchemeTier = "zero"
	TierFirst  SchemeTier = "first"
	TierSecond SchemeTier = "second"
	TierThird  SchemeTier = "third"
	TierFourth SchemeTier = "fourth"
)

// CoverageStatus describes how a worker type relates to the pension system.
type CoverageStatus string

const (
	CoverageCovered  CoverageStatus = "covered"
	CoverageExcluded CoverageStatus = "excluded"
	CoveragePartial  CoverageStatus = "partial"
	CoverageUnknown  CoverageStatus = "unknown"
)

// EligibilityRules holds the age and service thresholds under which a
// scheme becomes payable. Nil fields mean the threshold is not defined;
// a scheme with no thresholds at all is always payable.
type EligibilityRules struct {
	NormalRetirementAgeMale   *decimal.Decimal `yaml:"normal_retirement_age_male,omitempty" json:"normal_retirement_age_male,omitempty"`
	NormalRetirementAgeFemale *decimal.Decimal `yaml:"normal_retirement_age_female,omitempty" json:"normal_retirement_age_female,omitempty"`
	EarlyRetirementAgeMale    *decimal.Decimal `yaml:"early_retirement_age_male,omitempty" json:"early_retirement_age_male,omitempty"`
	EarlyRetirementAgeFemale  *decimal.Decimal `yaml:"early_retirement_age_female,omitempty" json:"early_retirement_age_female,omitempty"`
	MinimumServiceYears       *decimal.Decimal `yaml:"minimum_service_years,omitempty" json:"minimum_service_years,omitempty"`
}

// NormalRetirementAge returns the NRA for the given sex, or nil when the
// scheme defines no age threshold.
func (e EligibilityRules) NormalRetirementAge(sex Sex) *decimal.Decimal {
	if sex == Female {
		return e.NormalRetirementAgeFemale
	}
	return e.NormalRetirementAgeMale
}

// EarlyRetirementAge returns the early retirement age for the given sex, if any.
func (e EligibilityRules) EarlyRetirementAge(sex Sex) *decimal.Decimal {
	if sex == Female {
		return e.EarlyRetirementAgeFemale
	}
	return e.EarlyRetirementAgeMale
}

// ContributionRules holds contribution rates feeding NDC/DC accumulation.
type ContributionRules struct {
	EmployeeRate             *decimal.Decimal `yaml:"employee_rate,omitempty" json:"employee_rate,omitempty"`
	EmployerRate             *decimal.Decimal `yaml:"employer_rate,omitempty" json:"employer_rate,omitempty"`
	TotalRate                *decimal.Decimal `yaml:"total_rate,omitempty" json:"total_rate,omitempty"`
	CeilingAWMultiple        *decimal.Decimal `yaml:"contribution_ceiling_aw_multiple,omitempty" json:"contribution_ceiling_aw_multiple,omitempty"`
	FloorAWMultiple          *decimal.Decimal `yaml:"contribution_floor_aw_multiple,omitempty" json:"contribution_floor_aw_multiple,omitempty"`
}

// CombinedRate returns the total contribution rate: the explicit total if
// set, otherwise employee plus employer.
func (c *ContributionRules) CombinedRate() decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	if c.TotalRate != nil {
		return *c.TotalRate
	}
	total := decimal.Zero
	if c.EmployeeRate != nil {
		total = total.Add(*c.EmployeeRate)
	}
	if c.EmployerRate != nil {
		total = total.Add(*c.EmployerRate)
	}
	return total
}

// BenefitRules holds the formula parameters for every scheme type. Which
// fields are required depends on SchemeComponent.Type; presence is checked
// defensively at computation time even though upstream validation should
// already have rejected malformed sets.
type BenefitRules struct {
	// DB
	AccrualRate     *decimal.Decimal `yaml:"accrual_rate,omitempty" json:"accrual_rate,omitempty"`
	MaxAccrualYears *decimal.Decimal `yaml:"max_accrual_years,omitempty" json:"max_accrual_years,omitempty"`

	// points
	PointValue           *decimal.Decimal `yaml:"point_value,omitempty" json:"point_value,omitempty"`
	PointValueAWMultiple *decimal.Decimal `yaml:"point_value_aw_multiple,omitempty" json:"point_value_aw_multiple,omitempty"`
	PointsPerYear        *decimal.Decimal `yaml:"points_per_year,omitempty" json:"points_per_year,omitempty"`

	// NDC / DC
	NotionalInterestRate *decimal.Decimal `yaml:"notional_interest_rate,omitempty" json:"notional_interest_rate,omitempty"`
	AnnuityDivisorAtNRA  *decimal.Decimal `yaml:"annuity_divisor_at_nra,omitempty" json:"annuity_divisor_at_nra,omitempty"`

	// basic
	FlatRateAWMultiple *decimal.Decimal `yaml:"flat_rate_aw_multiple,omitempty" json:"flat_rate_aw_multiple,omitempty"`
	FlatRateAbsolute   *decimal.Decimal `yaml:"flat_rate_absolute,omitempty" json:"flat_rate_absolute,omitempty"`

	// targeted
	TaperRate                 *decimal.Decimal `yaml:"taper_rate,omitempty" json:"taper_rate,omitempty"`
	IncomeThresholdAWMultiple *decimal.Decimal `yaml:"income_threshold_aw_multiple,omitempty" json:"income_threshold_aw_multiple,omitempty"`

	// Per-scheme benefit bounds, as average-wage multiples. The minimum
	// here bounds a single component; the country-wide guarantee is a
	// separate scheme of type "minimum".
	MinimumBenefitAWMultiple *decimal.Decimal `yaml:"minimum_benefit_aw_multiple,omitempty" json:"minimum_benefit_aw_multiple,omitempty"`
	MaximumBenefitAWMultiple *decimal.Decimal `yaml:"maximum_benefit_aw_multiple,omitempty" json:"maximum_benefit_aw_multiple,omitempty"`
}

// SchemeComponent is one pillar/component of a country's pension system.
type SchemeComponent struct {
	ID            string             `yaml:"id" json:"id"`
	Name          string             `yaml:"name" json:"name"`
	Tier          SchemeTier         `yaml:"tier" json:"tier"`
	Type          SchemeType         `yaml:"type" json:"type"`
	Active        bool               `yaml:"active" json:"active"`
	ReformStatus  string             `yaml:"reform_status,omitempty" json:"reform_status,omitempty"`
	Eligibility   EligibilityRules   `yaml:"eligibility" json:"eligibility"`
	Contributions *ContributionRules `yaml:"contributions,omitempty" json:"contributions,omitempty"`
	Benefits      BenefitRules       `yaml:"benefits" json:"benefits"`
	Notes         string             `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// WorkerTypeRule maps a worker category to its coverage status and the
// subset of schemes that apply to it. An empty SchemeIDs list means all
// active schemes apply.
type WorkerTypeRule struct {
	Label          string         `yaml:"label" json:"label"`
	CoverageStatus CoverageStatus `yaml:"coverage_status" json:"coverage_status"`
	SchemeIDs      []string       `yaml:"scheme_ids,omitempty" json:"scheme_ids,omitempty"`
	Notes          string         `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// PayoutRules holds country-wide payout bounds applied after aggregation.
type PayoutRules struct {
	MaximumBenefitAWMultiple *decimal.Decimal `yaml:"maximum_benefit_aw_multiple,omitempty" json:"maximum_benefit_aw_multiple,omitempty"`
}

// TaxBracket is one step of a progressive schedule. A nil Upper bound
// marks the unbounded top bracket.
type TaxBracket struct {
	Upper *decimal.Decimal `yaml:"upper,omitempty" json:"upper,omitempty"`
	Rate  decimal.Decimal  `yaml:"rate" json:"rate"`
}

// TaxRules selects and parameterizes the gross-to-net conversion. When
// Brackets is non-empty the progressive strategy is used; otherwise the
// flat SimplifiedNetRate applies (zero when absent).
type TaxRules struct {
	SimplifiedNetRate      *decimal.Decimal `yaml:"simplified_net_rate,omitempty" json:"simplified_net_rate,omitempty"`
	BasicAllowance         *decimal.Decimal `yaml:"basic_allowance,omitempty" json:"basic_allowance,omitempty"`
	SocialContributionRate *decimal.Decimal `yaml:"social_contribution_rate,omitempty" json:"social_contribution_rate,omitempty"`
	Brackets               []TaxBracket     `yaml:"brackets,omitempty" json:"brackets,omitempty"`
}

// AverageEarnings carries the resolved national average wage for the
// reference year. Resolution against external statistical series happens
// outside the engine; the engine only consumes the scalar.
type AverageEarnings struct {
	AnnualValue decimal.Decimal `yaml:"annual_value" json:"annual_value"`
	Year        int             `yaml:"year" json:"year"`
	Source      string          `yaml:"source,omitempty" json:"source,omitempty"`
}

// CountryMetadata identifies the country a parameter set describes.
type CountryMetadata struct {
	CountryName   string `yaml:"country_name" json:"country_name"`
	ISO3          string `yaml:"iso3" json:"iso3"`
	Currency      string `yaml:"currency" json:"currency"`
	CurrencyCode  string `yaml:"currency_code" json:"currency_code"`
	ReferenceYear int    `yaml:"reference_year" json:"reference_year"`
}

// CountryParameterSet is the immutable, already-validated description of
// one country's pension rules. The engine only reads it.
type CountryParameterSet struct {
	Metadata        CountryMetadata           `yaml:"metadata" json:"metadata"`
	Schemes         []SchemeComponent         `yaml:"schemes" json:"schemes"`
	Taxes           TaxRules                  `yaml:"taxes" json:"taxes"`
	Payout          PayoutRules               `yaml:"payout" json:"payout"`
	WorkerTypes     map[string]WorkerTypeRule `yaml:"worker_types,omitempty" json:"worker_types,omitempty"`
	AverageEarnings AverageEarnings           `yaml:"average_earnings" json:"average_earnings"`
}

// SchemeByID returns the scheme with the given id, or nil.
func (c *CountryParameterSet) SchemeByID(id string) *SchemeComponent {
	for i := range c.Schemes {
		if c.Schemes[i].ID == id {
			return &c.Schemes[i]
		}
	}
	return nil
}

// ActiveSchemes returns all schemes flagged active, in declaration order.
func (c *CountryParameterSet) ActiveSchemes() []SchemeComponent {
	var active []SchemeComponent
	for _, s := range c.Schemes {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}
