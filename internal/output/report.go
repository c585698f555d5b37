package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/pensionlab/pencalc/internal/domain"
)

// CountryReport is one country's results across the standard earnings
// multiples, ready for rendering.
type CountryReport struct {
	Metadata domain.CountryMetadata  `json:"metadata"`
	Sex      domain.Sex              `json:"sex"`
	Results  []*domain.PensionResult `json:"results"`
}

// ReportGenerator renders country reports in various formats.
type ReportGenerator struct{}

// NewReportGenerator creates a new report generator.
func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{}
}

// Generate renders the report in the requested format.
func (rg *ReportGenerator) Generate(w io.Writer, report *CountryReport, format string) error {
	switch format {
	case "console":
		return rg.GenerateConsoleReport(w, report)
	case "json":
		return WriteJSON(w, report)
	case "csv":
		return rg.GenerateCSVReport(w, report)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// GenerateConsoleReport renders a human-readable table plus summary
// statistics across the earnings multiples.
func (rg *ReportGenerator) GenerateConsoleReport(w io.Writer, report *CountryReport) error {
	fmt.Fprintln(w, strings.Repeat("=", 86))
	fmt.Fprintf(w, "PENSION ENTITLEMENTS: %s (%s), %s, reference year %d\n",
		report.Metadata.CountryName, report.Metadata.ISO3, report.Sex, report.Metadata.ReferenceYear)
	fmt.Fprintln(w, strings.Repeat("=", 86))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-10s %14s %14s %8s %8s %10s %10s\n",
		"Multiple", "Gross/yr", "Net/yr", "GRR", "NRR", "GrossPW", "NetPW")
	fmt.Fprintln(w, strings.Repeat("-", 86))

	for _, r := range report.Results {
		fmt.Fprintf(w, "%-10s %14s %14s %7s%% %7s%% %10s %10s\n",
			r.EarningsMultiple.StringFixed(2),
			formatAmount(r.GrossBenefit, report.Metadata.CurrencyCode),
			formatAmount(r.NetBenefit, report.Metadata.CurrencyCode),
			r.GrossReplacementRate.Mul(decimal.NewFromInt(100)).StringFixed(1),
			r.NetReplacementRate.Mul(decimal.NewFromInt(100)).StringFixed(1),
			r.GrossPensionWealth.StringFixed(2),
			r.NetPensionWealth.StringFixed(2))
	}
	fmt.Fprintln(w)

	summary := Summarize(report.Results)
	fmt.Fprintln(w, "SUMMARY ACROSS MULTIPLES")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Mean gross replacement rate: %6.1f%%\n", summary.MeanGRR*100)
	fmt.Fprintf(w, "GRR standard deviation:      %6.1f pp\n", summary.StdDevGRR*100)
	fmt.Fprintf(w, "Mean net replacement rate:   %6.1f%%\n", summary.MeanNRR*100)
	fmt.Fprintf(w, "Progressivity index:         %6.1f%%\n", summary.Progressivity*100)
	fmt.Fprintln(w)

	warnings := collectWarnings(report.Results)
	if len(warnings) > 0 {
		fmt.Fprintln(w, "WARNINGS")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		for _, msg := range warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
	return nil
}

// GenerateCSVReport renders one row per earnings multiple.
func (rg *ReportGenerator) GenerateCSVReport(w io.Writer, report *CountryReport) error {
	cw := csv.NewWriter(w)
	header := []string{
		"iso3", "sex", "multiple", "gross_benefit", "net_benefit",
		"gross_replacement_rate", "net_replacement_rate",
		"gross_pension_level", "net_pension_level",
		"gross_pension_wealth", "net_pension_wealth",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range report.Results {
		row := []string{
			report.Metadata.ISO3,
			string(report.Sex),
			r.EarningsMultiple.String(),
			r.GrossBenefit.String(),
			r.NetBenefit.String(),
			r.GrossReplacementRate.String(),
			r.NetReplacementRate.String(),
			r.GrossPensionLevel.String(),
			r.NetPensionLevel.String(),
			r.GrossPensionWealth.String(),
			r.NetPensionWealth.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Summary holds distributional statistics across the earnings multiples.
type Summary struct {
	MeanGRR   float64 `json:"mean_grr"`
	StdDevGRR float64 `json:"stddev_grr"`
	MeanNRR   float64 `json:"mean_nrr"`

	// Progressivity is the relative spread of replacement rates: the GRR
	// at the lowest multiple minus the GRR at the highest. A flat-rate
	// system scores high, a pure earnings-related one near zero.
	Progressivity float64 `json:"progressivity"`
}

// Summarize computes summary statistics over the per-multiple results.
func Summarize(results []*domain.PensionResult) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	grr := make([]float64, len(results))
	nrr := make([]float64, len(results))
	for i, r := range results {
		grr[i], _ = r.GrossReplacementRate.Float64()
		nrr[i], _ = r.NetReplacementRate.Float64()
	}

	s := Summary{
		MeanGRR:       stat.Mean(grr, nil),
		MeanNRR:       stat.Mean(nrr, nil),
		Progressivity: grr[0] - grr[len(grr)-1],
	}
	if len(grr) > 1 {
		s.StdDevGRR = stat.StdDev(grr, nil)
	}
	return s
}

func formatAmount(d decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", currency, d.StringFixed(0))
}

// collectWarnings deduplicates warning messages across the multiples.
func collectWarnings(results []*domain.PensionResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range results {
		for _, w := range r.Warnings {
			msg := fmt.Sprintf("[%s] %s", w.Code, w.Message)
			if !seen[msg] {
				seen[msg] = true
				out = append(out, msg)
			}
		}
	}
	return out
}
