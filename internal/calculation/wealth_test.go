package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/lifetable"
)

// stepTable builds a table with survivorship 1 through lastFullAge and an
// abrupt drop to zero after it.
func stepTable(firstAge, lastFullAge int) []lifetable.Row {
	var rows []lifetable.Row
	for age := firstAge; age <= lastFullAge; age++ {
		rows = append(rows, lifetable.Row{Age: age, Survivorship: decimal.NewFromInt(1)})
	}
	rows = append(rows, lifetable.Row{Age: lastFullAge + 1, Survivorship: decimal.Zero})
	return rows
}

func TestWealthFactor_StepSurvivorshipNoDiscounting(t *testing.T) {
	// Certain survival for exactly 20 years past retirement with g = r = 0
	// must give a factor of exactly 20.
	provider := lifetable.NewStaticProvider()
	provider.AddTable("SWE", domain.Male, stepTable(65, 84))

	wc := NewWealthCalculator(provider, 110)
	factor := wc.Factor("SWE", domain.Male, 65, decimal.Zero, decimal.Zero, dec(18))

	assert.False(t, factor.Fallback, "Should use the survivorship table, not the fallback")
	assert.True(t, factor.Value.Equal(dec(20)),
		"Factor should equal the survival horizon exactly, got %s", factor.Value)
	assert.Equal(t, 20, factor.YearsSummed, "Should sum one term per surviving year")
}

func TestWealthFactor_DiscountingShrinksFactor(t *testing.T) {
	provider := lifetable.NewStaticProvider()
	provider.AddTable("SWE", domain.Male, stepTable(65, 84))
	wc := NewWealthCalculator(provider, 110)

	flat := wc.Factor("SWE", domain.Male, 65, decimal.Zero, decimal.Zero, dec(18))
	discounted := wc.Factor("SWE", domain.Male, 65, decimal.Zero, dec(0.02), dec(18))
	indexed := wc.Factor("SWE", domain.Male, 65, dec(0.02), dec(0.02), dec(18))

	assert.True(t, discounted.Value.LessThan(flat.Value),
		"Discounting should shrink the factor: %s vs %s", discounted.Value, flat.Value)
	assert.True(t, indexed.Value.Sub(flat.Value).Abs().LessThan(dec(1e-9)),
		"Indexation matching the discount rate should restore the undiscounted factor, got %s", indexed.Value)
}

func TestWealthFactor_FallbackWhenNoTable(t *testing.T) {
	wc := NewWealthCalculator(nil, 110)

	factor := wc.Factor("XXX", domain.Female, 65, decimal.Zero, decimal.Zero, dec(22))

	assert.True(t, factor.Fallback, "Should flag the closed-form fallback")
	assert.True(t, factor.Value.Equal(dec(22)),
		"Zero net discounting should reduce the fallback to the life expectancy, got %s", factor.Value)
}

func TestWealthFactor_FallbackPrefersTableExpectancy(t *testing.T) {
	// Table has remaining life expectancy but no usable survivorship at the
	// retirement age, so the fallback should use the table's ex.
	ex := dec(17.5)
	provider := lifetable.NewStaticProvider()
	provider.AddTable("NOR", domain.Male, []lifetable.Row{
		{Age: 70, Survivorship: decimal.Zero, Ex: &ex},
	})
	wc := NewWealthCalculator(provider, 110)

	factor := wc.Factor("NOR", domain.Male, 70, decimal.Zero, decimal.Zero, dec(25))

	assert.True(t, factor.Fallback, "Should fall back when base survivorship is zero")
	assert.True(t, factor.Value.Equal(dec(17.5)),
		"Should prefer the table's remaining life expectancy, got %s", factor.Value)
}

func TestWealthFactor_FallbackDiscounted(t *testing.T) {
	wc := NewWealthCalculator(nil, 110)

	flat := wc.Factor("XXX", domain.Male, 65, decimal.Zero, decimal.Zero, dec(20))
	discounted := wc.Factor("XXX", domain.Male, 65, decimal.Zero, dec(0.03), dec(20))

	assert.True(t, discounted.Value.LessThan(flat.Value),
		"Closed-form annuity should shrink under discounting")
	assert.True(t, discounted.Value.GreaterThan(decimal.Zero),
		"Closed-form annuity should stay positive")
}

func TestWealthFactor_MaxAgeBound(t *testing.T) {
	provider := lifetable.NewStaticProvider()
	provider.AddTable("SWE", domain.Male, stepTable(65, 120))

	wc := NewWealthCalculator(provider, 110)
	factor := wc.Factor("SWE", domain.Male, 65, decimal.Zero, decimal.Zero, dec(18))

	// Ages 65..110 inclusive is 46 terms.
	assert.Equal(t, 46, factor.YearsSummed, "Should stop the sum at the configured maximum age")
}

func TestPensionWealth(t *testing.T) {
	factor := AnnuityFactor{Value: dec(18)}

	wealth := PensionWealth(dec(5000), dec(10000), factor)
	assert.True(t, wealth.Equal(dec(9)),
		"Wealth should be benefit/AW x factor, got %s", wealth)

	assert.True(t, PensionWealth(dec(5000), decimal.Zero, factor).IsZero(),
		"Zero average wage should give zero wealth rather than dividing by zero")
}
