package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensionlab/pencalc/internal/domain"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func dptr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func TestLoadAssumptions_LayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assumptions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
real_wage_growth: 0.015
discount_rate: 0.03
life_expectancy_male: 19.5
`), 0o644))

	asmp, err := LoadAssumptions(path)
	require.NoError(t, err)

	assert.True(t, asmp.RealWageGrowth.Equal(dec(0.015)), "File value should override the default")
	assert.True(t, asmp.DiscountRate.Equal(dec(0.03)))
	assert.True(t, asmp.LifeExpectancyMale.Equal(dec(19.5)))

	// Untouched fields keep their defaults.
	defaults := domain.DefaultAssumptions()
	assert.Equal(t, defaults.EntryAge, asmp.EntryAge)
	assert.Equal(t, defaults.CareerLength, asmp.CareerLength)
	assert.True(t, asmp.ContributionDensity.Equal(defaults.ContributionDensity))
}

func TestLoadAssumptions_MissingFile(t *testing.T) {
	_, err := LoadAssumptions(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateAssumptions(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(a *domain.GlobalAssumptions)
		errContains string
	}{
		{
			name:        "Negative entry age",
			mutate:      func(a *domain.GlobalAssumptions) { a.EntryAge = -1 },
			errContains: "entry_age",
		},
		{
			name:        "Zero career length",
			mutate:      func(a *domain.GlobalAssumptions) { a.CareerLength = 0 },
			errContains: "career_length",
		},
		{
			name:        "Density above one",
			mutate:      func(a *domain.GlobalAssumptions) { a.ContributionDensity = dec(1.1) },
			errContains: "contribution_density",
		},
		{
			name:        "Discount rate at -100%",
			mutate:      func(a *domain.GlobalAssumptions) { a.DiscountRate = dec(-1) },
			errContains: "discount_rate",
		},
		{
			name:        "Max age below entry age",
			mutate:      func(a *domain.GlobalAssumptions) { a.MaxAge = 18 },
			errContains: "max_age",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asmp := domain.DefaultAssumptions()
			tt.mutate(&asmp)

			err := ValidateAssumptions(asmp)
			require.Error(t, err, "Should reject the broken assumption set")
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}

	assert.NoError(t, ValidateAssumptions(domain.DefaultAssumptions()),
		"Defaults should always validate")
}
