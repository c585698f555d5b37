// Package lifetable supplies survivorship curves and remaining life
// expectancies to the wealth calculator. Providers are injected; the
// engine never fetches mortality data itself.
package lifetable

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/domain"
)

// Provider answers mortality queries for a country and sex. Both methods
// report availability with their boolean return: a provider may cover
// some countries and not others, and the caller must fall back gracefully.
type Provider interface {
	// Survivorship returns lx(age)/lx(0), the probability of surviving
	// from birth to the given age, in [0, 1].
	Survivorship(country string, sex domain.Sex, age int) (decimal.Decimal, bool)

	// RemainingLifeExpectancy returns the expected remaining years of
	// life at the given age.
	RemainingLifeExpectancy(country string, sex domain.Sex, age int) (decimal.Decimal, bool)
}

// Unavailable is a Provider with no data for any country. It forces the
// wealth calculator onto its closed-form fallback.
type Unavailable struct{}

func (Unavailable) Survivorship(string, domain.Sex, int) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

func (Unavailable) RemainingLifeExpectancy(string, domain.Sex, int) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

// Row is one life-table entry.
type Row struct {
	Age          int             `yaml:"age" json:"age"`
	Survivorship decimal.Decimal `yaml:"survivorship" json:"survivorship"`

	// Ex is the remaining life expectancy at Age; optional.
	Ex *decimal.Decimal `yaml:"ex,omitempty" json:"ex,omitempty"`
}

type tableKey struct {
	country string
	sex     domain.Sex
}

// StaticProvider serves life tables held in memory, typically loaded from
// a YAML snapshot of an external statistical series.
type StaticProvider struct {
	tables map[tableKey][]Row
}

// NewStaticProvider builds a provider from per-country, per-sex rows. Rows
// are sorted by age; survivorship is expected to be non-increasing, which
// the caller (or the config loader) is responsible for.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{tables: make(map[tableKey][]Row)}
}

// AddTable registers the rows for one country and sex, replacing any
// previous table.
func (p *StaticProvider) AddTable(country string, sex domain.Sex, rows []Row) {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Age < sorted[j].Age })
	p.tables[tableKey{country, sex}] = sorted
}

// Survivorship implements Provider.
func (p *StaticProvider) Survivorship(country string, sex domain.Sex, age int) (decimal.Decimal, bool) {
	rows, ok := p.tables[tableKey{country, sex}]
	if !ok || len(rows) == 0 {
		return decimal.Zero, false
	}
	if age < rows[0].Age || age > rows[len(rows)-1].Age {
		return decimal.Zero, false
	}
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Age >= age })
	if i < len(rows) && rows[i].Age == age {
		return rows[i].Survivorship, true
	}
	// Age falls between rows: use the nearest younger row. Life tables
	// are single-year in practice, so this only matters for sparse input.
	if i > 0 {
		return rows[i-1].Survivorship, true
	}
	return decimal.Zero, false
}

// RemainingLifeExpectancy implements Provider.
func (p *StaticProvider) RemainingLifeExpectancy(country string, sex domain.Sex, age int) (decimal.Decimal, bool) {
	rows, ok := p.tables[tableKey{country, sex}]
	if !ok {
		return decimal.Zero, false
	}
	for _, r := range rows {
		if r.Age == age && r.Ex != nil {
			return *r.Ex, true
		}
	}
	return decimal.Zero, false
}

// MaxAge returns the oldest age covered for a country and sex, or -1 when
// no table is loaded.
func (p *StaticProvider) MaxAge(country string, sex domain.Sex) int {
	rows, ok := p.tables[tableKey{country, sex}]
	if !ok || len(rows) == 0 {
		return -1
	}
	return rows[len(rows)-1].Age
}
