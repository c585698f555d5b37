package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/pensionlab/pencalc/internal/domain"
)

// LoadAssumptions reads a global-assumptions YAML file layered over the
// defaults: fields absent from the file keep their default values.
func LoadAssumptions(filename string) (domain.GlobalAssumptions, error) {
	asmp := domain.DefaultAssumptions()

	data, err := os.ReadFile(filename)
	if err != nil {
		return asmp, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, &asmp); err != nil {
		return asmp, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ValidateAssumptions(asmp); err != nil {
		return asmp, fmt.Errorf("assumptions validation failed: %w", err)
	}
	return asmp, nil
}

// ValidateAssumptions rejects assumption sets the engine cannot work with.
func ValidateAssumptions(a domain.GlobalAssumptions) error {
	if a.EntryAge < 0 {
		return fmt.Errorf("entry_age cannot be negative")
	}
	if a.CareerLength <= 0 {
		return fmt.Errorf("career_length must be positive")
	}
	if a.ContributionDensity.IsNegative() || a.ContributionDensity.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("contribution_density must be in [0, 1], got %s", a.ContributionDensity)
	}
	if a.DiscountRate.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return fmt.Errorf("discount_rate must exceed -1, got %s", a.DiscountRate)
	}
	if a.IndexationRate.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return fmt.Errorf("indexation_rate must exceed -1, got %s", a.IndexationRate)
	}
	if a.LifeExpectancyMale.IsNegative() || a.LifeExpectancyFemale.IsNegative() {
		return fmt.Errorf("life expectancies cannot be negative")
	}
	if a.MaxAge <= a.EntryAge {
		return fmt.Errorf("max_age %d must exceed entry_age %d", a.MaxAge, a.EntryAge)
	}
	return nil
}
