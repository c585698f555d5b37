package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/pensionlab/pencalc/internal/domain"
)

func TestNewTaxStrategy(t *testing.T) {
	t.Run("Flat rate when no brackets", func(t *testing.T) {
		strategy := NewTaxStrategy(domain.TaxRules{SimplifiedNetRate: dptr(0.25)})
		assert.Equal(t, "flat_rate", strategy.Name(), "Should select the flat strategy")
	})

	t.Run("Brackets take precedence", func(t *testing.T) {
		strategy := NewTaxStrategy(domain.TaxRules{
			SimplifiedNetRate: dptr(0.25),
			Brackets:          []domain.TaxBracket{{Rate: dec(0.1)}},
		})
		assert.Equal(t, "bracket", strategy.Name(), "Should prefer the progressive schedule")
	})

	t.Run("No rules means zero tax", func(t *testing.T) {
		strategy := NewTaxStrategy(domain.TaxRules{})
		net := strategy.NetAmount(dec(10000))
		assert.True(t, net.Equal(dec(10000)), "Should pass the amount through untaxed, got %s", net)
	})

	t.Run("Out-of-range flat rate is clamped", func(t *testing.T) {
		over := NewTaxStrategy(domain.TaxRules{SimplifiedNetRate: dptr(1.5)})
		assert.True(t, over.NetAmount(dec(10000)).IsZero(), "Rate above 1 should yield zero net")

		under := NewTaxStrategy(domain.TaxRules{SimplifiedNetRate: dptr(-0.1)})
		assert.True(t, under.NetAmount(dec(10000)).Equal(dec(10000)), "Negative rate should yield gross")
	})
}

func TestFlatRateTax(t *testing.T) {
	tax := FlatRateTax{Rate: dec(0.2)}

	assert.True(t, tax.NetAmount(dec(10000)).Equal(dec(8000)), "Should apply the flat rate")
	assert.True(t, tax.NetAmount(decimal.Zero).IsZero(), "Zero gross should give zero net")
	assert.True(t, tax.EffectiveRate(dec(10000)).Equal(dec(0.2)), "Effective rate should equal the flat rate")
	assert.True(t, tax.EffectiveRate(decimal.Zero).IsZero(), "Effective rate should be zero for zero gross")
}

func TestBracketTax(t *testing.T) {
	// Allowance 5000, then 10% to 20000, 20% to 50000, 30% above.
	tax := BracketTax{
		Allowance: dec(5000),
		Brackets: []domain.TaxBracket{
			{Upper: dptr(20000), Rate: dec(0.1)},
			{Upper: dptr(50000), Rate: dec(0.2)},
			{Rate: dec(0.3)},
		},
	}

	tests := []struct {
		name        string
		gross       float64
		expectedNet float64
		description string
	}{
		{
			name:        "Below allowance",
			gross:       4000,
			expectedNet: 4000,
			description: "Should leave income under the allowance untaxed",
		},
		{
			name:  "Inside first band",
			gross: 15000,
			// taxable 10000, tax 1000
			expectedNet: 14000,
			description: "Should tax only the amount above the allowance",
		},
		{
			name:  "Spanning two bands",
			gross: 35000,
			// taxable 30000: 20000 x 0.1 + 10000 x 0.2 = 4000
			expectedNet: 31000,
			description: "Should apply marginal rates band by band",
		},
		{
			name:  "Into the unbounded top band",
			gross: 65000,
			// taxable 60000: 2000 + 6000 + 10000 x 0.3 = 11000
			expectedNet: 54000,
			description: "Should tax the remainder at the top rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := tax.NetAmount(dec(tt.gross))
			assert.True(t, net.Equal(dec(tt.expectedNet)),
				"%s: expected %v, got %s", tt.description, tt.expectedNet, net)
		})
	}
}

func TestBracketTax_SocialContributions(t *testing.T) {
	tax := BracketTax{
		Allowance:              dec(5000),
		SocialContributionRate: dec(0.05),
		Brackets:               []domain.TaxBracket{{Rate: dec(0.1)}},
	}

	// gross 15000: income tax 1000, social 750, net 13250
	net := tax.NetAmount(dec(15000))
	assert.True(t, net.Equal(dec(13250)),
		"Should deduct social contributions on the full gross, got %s", net)
}

func TestTaxStrategies_NetNeverExceedsGrossAndMonotonic(t *testing.T) {
	strategies := []TaxStrategy{
		FlatRateTax{Rate: dec(0.3)},
		BracketTax{
			Allowance: dec(2000),
			Brackets: []domain.TaxBracket{
				{Upper: dptr(10000), Rate: dec(0.15)},
				{Rate: dec(0.4)},
			},
		},
	}

	for _, strategy := range strategies {
		t.Run(strategy.Name(), func(t *testing.T) {
			prevNet := decimal.Zero
			for gross := 0; gross <= 100000; gross += 2500 {
				g := decimal.NewFromInt(int64(gross))
				net := strategy.NetAmount(g)

				assert.True(t, net.LessThanOrEqual(g),
					"Net should never exceed gross (gross=%d)", gross)
				assert.False(t, net.IsNegative(),
					"Net should never be negative (gross=%d)", gross)
				assert.True(t, net.GreaterThanOrEqual(prevNet),
					"Net should be non-decreasing in gross (gross=%d)", gross)
				prevNet = net
			}
		})
	}
}
