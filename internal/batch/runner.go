// Package batch fans a set of countries, earnings multiples, and sexes out
// over a worker pool. Each (country, multiple, sex) unit is independent, so
// the run parallelizes trivially; results are collected in input order.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/calculation"
	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/lifetable"
)

// Unit is one independent computation: a country evaluated at one earnings
// multiple for one sex.
type Unit struct {
	ISO3     string          `json:"iso3"`
	Sex      domain.Sex      `json:"sex"`
	Multiple decimal.Decimal `json:"multiple"`
}

// UnitResult pairs a unit with its outcome. Err is set when the unit's
// computation failed hard; the rest of the run continues regardless.
type UnitResult struct {
	Unit   Unit                  `json:"unit"`
	Result *domain.PensionResult `json:"result,omitempty"`
	Err    error                 `json:"-"`
}

// Run is a completed batch: its id, the input ordering, and one result per
// unit.
type Run struct {
	ID      string       `json:"run_id"`
	Results []UnitResult `json:"results"`
}

// Runner evaluates units against per-country engines.
type Runner struct {
	engines map[string]*calculation.Engine
	workers int
	log     calculation.Logger
}

// NewRunner builds a runner over the given country parameter sets. The
// profile template (age, service years, worker type) is supplied per run;
// the runner owns only the engines.
func NewRunner(countries map[string]*domain.CountryParameterSet, asmp domain.GlobalAssumptions, tables lifetable.Provider, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	engines := make(map[string]*calculation.Engine, len(countries))
	for iso3, params := range countries {
		engines[iso3] = calculation.NewEngine(params, asmp, params.AverageEarnings.AnnualValue, tables)
	}
	return &Runner{engines: engines, workers: workers, log: calculation.NopLogger{}}
}

// SetLogger installs a logger shared by the runner and its engines.
func (r *Runner) SetLogger(l calculation.Logger) {
	if l == nil {
		l = calculation.NopLogger{}
	}
	r.log = l
	for _, e := range r.engines {
		e.SetLogger(l)
	}
}

// Units expands the cross product of the runner's countries, the standard
// earnings multiples, and both sexes, in a stable order.
func (r *Runner) Units(countries []string) []Unit {
	var units []Unit
	for _, iso3 := range countries {
		for _, sex := range []domain.Sex{domain.Male, domain.Female} {
			for _, m := range domain.StandardMultiples() {
				units = append(units, Unit{ISO3: iso3, Sex: sex, Multiple: m})
			}
		}
	}
	return units
}

// Execute runs the units over the worker pool. Results keep the input
// order. A cancelled context abandons unstarted units; their results carry
// the context error.
func (r *Runner) Execute(ctx context.Context, profile domain.PersonProfile, units []Unit) *Run {
	run := &Run{ID: uuid.New().String(), Results: make([]UnitResult, len(units))}
	if len(units) == 0 {
		return run
	}

	workers := r.workers
	if len(units) < workers {
		workers = len(units)
	}

	jobs := make(chan int, len(units))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				run.Results[idx] = r.runUnit(ctx, profile, units[idx])
			}
		}()
	}

	for idx := range units {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	r.log.Infof("batch %s: %d units complete", run.ID, len(units))
	return run
}

func (r *Runner) runUnit(ctx context.Context, profile domain.PersonProfile, u Unit) UnitResult {
	res := UnitResult{Unit: u}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	engine, ok := r.engines[u.ISO3]
	if !ok {
		res.Err = fmt.Errorf("no parameter set loaded for country %s", u.ISO3)
		return res
	}

	profile.Sex = u.Sex
	result, err := engine.CalculateMultiple(profile, u.Multiple)
	if err != nil {
		r.log.Errorf("unit %s/%s/%s failed: %v", u.ISO3, u.Sex, u.Multiple, err)
		res.Err = fmt.Errorf("unit %s/%s at %s x AW: %w", u.ISO3, u.Sex, u.Multiple, err)
		return res
	}
	res.Result = result
	return res
}

// AllSexAverage combines the male and female results of one (country,
// multiple) pair into an unweighted average of the headline indicators.
// The two runs stay independent; only the published numbers are averaged.
func AllSexAverage(male, female *domain.PensionResult) *domain.PensionResult {
	if male == nil || female == nil {
		return nil
	}
	two := decimal.NewFromInt(2)
	avg := func(a, b decimal.Decimal) decimal.Decimal { return a.Add(b).Div(two) }

	return &domain.PensionResult{
		EarningsMultiple:     male.EarningsMultiple,
		IndividualWage:       male.IndividualWage,
		AverageWage:          male.AverageWage,
		GrossBenefit:         avg(male.GrossBenefit, female.GrossBenefit),
		NetBenefit:           avg(male.NetBenefit, female.NetBenefit),
		GrossReplacementRate: avg(male.GrossReplacementRate, female.GrossReplacementRate),
		NetReplacementRate:   avg(male.NetReplacementRate, female.NetReplacementRate),
		GrossPensionLevel:    avg(male.GrossPensionLevel, female.GrossPensionLevel),
		NetPensionLevel:      avg(male.NetPensionLevel, female.NetPensionLevel),
		GrossPensionWealth:   avg(male.GrossPensionWealth, female.GrossPensionWealth),
		NetPensionWealth:     avg(male.NetPensionWealth, female.NetPensionWealth),
	}
}
