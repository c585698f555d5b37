package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/lifetable"
)

// testCountry is a small but complete parameter set: a flat basic pension,
// an earnings-related DB scheme, a minimum guarantee, and a flat tax.
func testCountry() *domain.CountryParameterSet {
	return &domain.CountryParameterSet{
		Metadata: domain.CountryMetadata{
			CountryName: "Testland", ISO3: "TST",
			Currency: "Test Crown", CurrencyCode: "TSK",
			ReferenceYear: 2022,
		},
		Schemes: []domain.SchemeComponent{
			{
				ID: "basic", Name: "Universal basic pension",
				Tier: domain.TierZero, Type: domain.SchemeBasic, Active: true,
				Eligibility: domain.EligibilityRules{
					NormalRetirementAgeMale:   dptr(65),
					NormalRetirementAgeFemale: dptr(65),
				},
				Benefits: domain.BenefitRules{FlatRateAWMultiple: dptr(0.2)},
			},
			{
				ID: "state_db", Name: "Earnings-related pension",
				Tier: domain.TierFirst, Type: domain.SchemeDB, Active: true,
				Eligibility: domain.EligibilityRules{
					NormalRetirementAgeMale:   dptr(65),
					NormalRetirementAgeFemale: dptr(65),
					EarlyRetirementAgeMale:    dptr(62),
					EarlyRetirementAgeFemale:  dptr(62),
					MinimumServiceYears:       dptr(15),
				},
				Benefits: domain.BenefitRules{AccrualRate: dptr(0.015), MaxAccrualYears: dptr(40)},
			},
			{
				ID: "guarantee", Name: "Minimum guarantee",
				Tier: domain.TierFirst, Type: domain.SchemeMinimum, Active: true,
				Benefits: domain.BenefitRules{MinimumBenefitAWMultiple: dptr(0.3)},
			},
		},
		Taxes: domain.TaxRules{SimplifiedNetRate: dptr(0.2)},
		WorkerTypes: map[string]domain.WorkerTypeRule{
			"private_employee": {CoverageStatus: domain.CoverageCovered},
			"informal":         {CoverageStatus: domain.CoverageExcluded},
		},
		AverageEarnings: domain.AverageEarnings{AnnualValue: dec(10000), Year: 2022},
	}
}

func testEngine(tables lifetable.Provider) *Engine {
	asmp := domain.DefaultAssumptions()
	asmp.IndexationRate = decimal.Zero
	asmp.DiscountRate = decimal.Zero
	return NewEngine(testCountry(), asmp, dec(10000), tables)
}

func testProfile() domain.PersonProfile {
	return domain.PersonProfile{
		Sex: domain.Male, Age: dec(65), ServiceYears: dec(40),
		Wage: dec(1), WageUnit: domain.WageAWMultiple,
		WorkerTypeID: "private_employee",
	}
}

func TestEngine_Calculate_AverageEarner(t *testing.T) {
	engine := testEngine(nil)

	result, err := engine.Calculate(testProfile())
	require.NoError(t, err)

	// basic: 0.2 x 10000 = 2000; DB: 0.015 x 40 x 10000 = 6000; total 8000
	// is above the 3000 guarantee, so no top-up.
	assert.True(t, result.GrossBenefit.Equal(dec(8000)),
		"Gross benefit should be 8000, got %s", result.GrossBenefit)
	assert.True(t, result.NetBenefit.Equal(dec(6400)),
		"Net benefit should be gross x 0.8, got %s", result.NetBenefit)

	assert.True(t, result.GrossReplacementRate.Equal(dec(0.8)),
		"GRR should be 0.8, got %s", result.GrossReplacementRate)
	assert.True(t, result.NetReplacementRate.Equal(dec(0.64)),
		"NRR should be 0.64, got %s", result.NetReplacementRate)

	// For the average earner, pension level equals replacement rate.
	assert.True(t, result.GrossPensionLevel.Equal(result.GrossReplacementRate),
		"Pension level should equal replacement rate at 1.0 x AW")

	assert.True(t, result.Breakdown["basic"].Equal(dec(2000)))
	assert.True(t, result.Breakdown["state_db"].Equal(dec(6000)))
	assert.True(t, result.Breakdown["guarantee"].IsZero(),
		"Guarantee should contribute nothing above the floor")

	assert.True(t, result.Eligibility.Eligible)
	assert.NotEmpty(t, result.Trace, "Should produce a reasoning trace")
}

func TestEngine_Calculate_ReplacementRateIdentity(t *testing.T) {
	engine := testEngine(nil)

	for _, m := range domain.StandardMultiples() {
		result, err := engine.CalculateMultiple(testProfile(), m)
		require.NoError(t, err)

		wage := m.Mul(dec(10000))
		assert.True(t, result.IndividualWage.Equal(wage),
			"Individual wage should be multiple x AW (m=%s)", m)

		if wage.GreaterThan(decimal.Zero) {
			want := result.GrossBenefit.Div(wage)
			assert.True(t, result.GrossReplacementRate.Equal(want),
				"GRR should equal gross/wage exactly (m=%s)", m)
		}
		assert.True(t, result.NetBenefit.LessThanOrEqual(result.GrossBenefit),
			"Net should never exceed gross (m=%s)", m)
	}
}

func TestEngine_Calculate_MinimumGuaranteeBites(t *testing.T) {
	engine := testEngine(nil)

	// A short-career low earner: basic 2000 + DB 0.015 x 20 x 2500 = 750,
	// sum 2750 below the 3000 floor.
	profile := testProfile()
	profile.ServiceYears = dec(20)
	profile.Wage = dec(0.25)

	result, err := engine.Calculate(profile)
	require.NoError(t, err)

	assert.True(t, result.GrossBenefit.Equal(dec(3000)),
		"Guarantee should lift the total to the floor, got %s", result.GrossBenefit)
	assert.True(t, result.Breakdown["guarantee"].Equal(dec(250)),
		"Guarantee should carry the top-up portion, got %s", result.Breakdown["guarantee"])
	assert.True(t, result.HasWarning(domain.WarnMinimumTopUp))
}

func TestEngine_Calculate_ExcludedWorkerType(t *testing.T) {
	engine := testEngine(nil)

	profile := testProfile()
	profile.WorkerTypeID = "informal"

	result, err := engine.Calculate(profile)
	require.NoError(t, err, "Exclusion is a valid outcome, not an error")

	assert.True(t, result.GrossBenefit.IsZero(), "Excluded workers get zero benefit")
	assert.True(t, result.NetBenefit.IsZero())
	assert.True(t, result.GrossPensionWealth.IsZero())
	assert.False(t, result.Eligibility.Eligible)
	assert.True(t, result.HasWarning(domain.WarnWorkerTypeExcluded))
	assert.Empty(t, result.Breakdown, "No scheme should have been dispatched")
}

func TestEngine_Calculate_EarlyRetirementReduction(t *testing.T) {
	engine := testEngine(nil)

	profile := testProfile()
	profile.Age = dec(63) // 24 months early, inside the 62..65 window

	result, err := engine.Calculate(profile)
	require.NoError(t, err)

	// Below its NRA the basic scheme is not payable; only the DB component
	// pays (6000), reduced by 1 - 0.005 x 24 = 0.88.
	assert.True(t, result.HasWarning(domain.WarnSchemeSkipped),
		"Basic scheme should be skipped below its NRA")
	assert.True(t, result.GrossBenefit.Equal(dec(5280)),
		"Should reduce the DB component to 88%%, got %s", result.GrossBenefit)
	assert.True(t, result.HasWarning(domain.WarnEarlyRetirement))
}

func TestEngine_Calculate_SchemeFailureDegrades(t *testing.T) {
	params := testCountry()
	// Break the DB scheme only; basic and guarantee still work.
	params.Schemes[1].Benefits.AccrualRate = nil
	engine := NewEngine(params, domain.DefaultAssumptions(), dec(10000), nil)

	result, err := engine.Calculate(testProfile())
	require.NoError(t, err, "One broken scheme should degrade, not fail the run")

	// basic 2000 falls below the 3000 guarantee, which tops up.
	assert.True(t, result.GrossBenefit.Equal(dec(3000)),
		"Broken scheme should contribute zero, got %s", result.GrossBenefit)
	assert.True(t, result.HasWarning(domain.WarnSchemeFailed))
}

func TestEngine_Calculate_AllSchemesBrokenIsHardError(t *testing.T) {
	params := &domain.CountryParameterSet{
		Metadata: domain.CountryMetadata{ISO3: "TST", CurrencyCode: "TSK"},
		Schemes: []domain.SchemeComponent{
			{ID: "db", Type: domain.SchemeDB, Active: true},
			{ID: "pts", Type: domain.SchemePoints, Active: true},
		},
		AverageEarnings: domain.AverageEarnings{AnnualValue: dec(10000)},
	}
	engine := NewEngine(params, domain.DefaultAssumptions(), dec(10000), nil)

	_, err := engine.Calculate(testProfile())
	assert.Error(t, err,
		"Configuration errors across every payable scheme should fail the computation")
}

func TestEngine_Calculate_PensionWealth(t *testing.T) {
	provider := lifetable.NewStaticProvider()
	provider.AddTable("TST", domain.Male, stepTable(65, 84))
	engine := testEngine(provider)

	result, err := engine.Calculate(testProfile())
	require.NoError(t, err)

	// Gross 8000, AW 10000, factor exactly 20 under step survivorship and
	// zero net discounting: wealth = 0.8 x 20 = 16 x AW.
	assert.True(t, result.GrossPensionWealth.Equal(dec(16)),
		"Gross pension wealth should be 16 x AW, got %s", result.GrossPensionWealth)
	assert.True(t, result.NetPensionWealth.Equal(dec(12.8)),
		"Net pension wealth should be 12.8 x AW, got %s", result.NetPensionWealth)
	assert.False(t, result.HasWarning(domain.WarnFallbackMortality))
}

func TestEngine_Calculate_MortalityFallbackWarns(t *testing.T) {
	engine := testEngine(nil)

	result, err := engine.Calculate(testProfile())
	require.NoError(t, err)

	assert.True(t, result.HasWarning(domain.WarnFallbackMortality),
		"Missing life table should surface the fallback warning")
	assert.True(t, result.GrossPensionWealth.GreaterThan(decimal.Zero),
		"Fallback should still produce positive wealth")
}

func TestEngine_CalculateStandardMultiples(t *testing.T) {
	engine := testEngine(nil)

	results, err := engine.CalculateStandardMultiples(testProfile())
	require.NoError(t, err)
	require.Len(t, results, 6, "Should produce one result per standard multiple")

	// The DB component is linear in wage while basic is flat, so the gross
	// replacement rate must be non-increasing across multiples.
	for i := 1; i < len(results); i++ {
		assert.True(t,
			results[i].GrossReplacementRate.LessThanOrEqual(results[i-1].GrossReplacementRate),
			"GRR should not increase with the earnings multiple (i=%d)", i)
	}
}

func TestEngine_Calculate_Deterministic(t *testing.T) {
	engine := testEngine(nil)

	a, err := engine.Calculate(testProfile())
	require.NoError(t, err)
	b, err := engine.Calculate(testProfile())
	require.NoError(t, err)

	assert.Equal(t, a.Trace, b.Trace, "Identical inputs should produce an identical trace")
	assert.True(t, a.GrossBenefit.Equal(b.GrossBenefit))
	assert.True(t, a.GrossPensionWealth.Equal(b.GrossPensionWealth))
}

func TestEngine_Calculate_NegativeWageRejected(t *testing.T) {
	engine := testEngine(nil)

	profile := testProfile()
	profile.Wage = dec(-1)

	_, err := engine.Calculate(profile)
	assert.Error(t, err, "Negative wages are invalid input")
}
