package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pensionlab/pencalc/internal/api"
	"github.com/pensionlab/pencalc/internal/batch"
	"github.com/pensionlab/pencalc/internal/calculation"
	"github.com/pensionlab/pencalc/internal/config"
	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/lifetable"
	"github.com/pensionlab/pencalc/internal/output"
	"github.com/pensionlab/pencalc/internal/store/sqlite"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// zerologAdapter bridges the engine's Logger interface onto zerolog.
type zerologAdapter struct {
	log zerolog.Logger
}

func (z zerologAdapter) Debugf(format string, args ...any) { z.log.Debug().Msgf(format, args...) }
func (z zerologAdapter) Infof(format string, args ...any)  { z.log.Info().Msgf(format, args...) }
func (z zerologAdapter) Warnf(format string, args ...any)  { z.log.Warn().Msgf(format, args...) }
func (z zerologAdapter) Errorf(format string, args ...any) { z.log.Error().Msgf(format, args...) }

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

var rootCmd = &cobra.Command{
	Use:   "pencalc",
	Short: "Pension entitlement calculator",
	Long:  "Computes pension entitlements, replacement rates, and pension wealth from country parameter files",
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "pencalc %s (commit %s, built %s)\n", version, commit, date)
			if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
				fmt.Fprintln(os.Stdout, "go:", bi.GoVersion)
			}
		},
	}
}

// loadInputs loads the country file plus optional assumptions and
// life-table files shared by every command.
func loadInputs(cmd *cobra.Command) (*domain.CountryParameterSet, domain.GlobalAssumptions, lifetable.Provider, error) {
	countryFile, _ := cmd.Flags().GetString("country")
	assumptionsFile, _ := cmd.Flags().GetString("assumptions")
	tablesFile, _ := cmd.Flags().GetString("tables")

	params, err := config.NewParamsParser().LoadCountryFile(countryFile)
	if err != nil {
		return nil, domain.GlobalAssumptions{}, nil, err
	}

	asmp := domain.DefaultAssumptions()
	if assumptionsFile != "" {
		asmp, err = config.LoadAssumptions(assumptionsFile)
		if err != nil {
			return nil, domain.GlobalAssumptions{}, nil, err
		}
	}

	var tables lifetable.Provider
	if tablesFile != "" {
		tables, err = lifetable.LoadFile(tablesFile)
		if err != nil {
			return nil, domain.GlobalAssumptions{}, nil, err
		}
	}

	return params, asmp, tables, nil
}

func calculateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate one profile's entitlement in one country",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(verbose)

			params, asmp, tables, err := loadInputs(cmd)
			if err != nil {
				return err
			}

			age, _ := cmd.Flags().GetFloat64("age")
			service, _ := cmd.Flags().GetFloat64("service")
			multiple, _ := cmd.Flags().GetFloat64("multiple")
			sex, _ := cmd.Flags().GetString("sex")
			workerType, _ := cmd.Flags().GetString("worker-type")

			profile := domain.PersonProfile{
				Sex:          domain.Sex(sex),
				Age:          decimal.NewFromFloat(age),
				ServiceYears: decimal.NewFromFloat(service),
				WorkerTypeID: workerType,
			}

			engine := calculation.NewEngine(params, asmp, params.AverageEarnings.AnnualValue, tables)
			engine.SetLogger(zerologAdapter{log})

			result, err := engine.CalculateMultiple(profile, decimal.NewFromFloat(multiple))
			if err != nil {
				return err
			}

			return output.WriteJSON(os.Stdout, result)
		},
	}

	cmd.Flags().String("country", "", "country parameter YAML file (required)")
	cmd.Flags().String("assumptions", "", "global assumptions YAML file")
	cmd.Flags().String("tables", "", "life-table YAML file")
	cmd.Flags().Float64("age", 65, "age at evaluation")
	cmd.Flags().Float64("service", 40, "service years")
	cmd.Flags().Float64("multiple", 1.0, "wage as a multiple of the average wage")
	cmd.Flags().String("sex", "male", "male or female")
	cmd.Flags().String("worker-type", "", "worker type id")
	cmd.Flags().Bool("verbose", false, "debug logging")
	cmd.MarkFlagRequired("country")
	return cmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Evaluate a country across the standard earnings multiples",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(verbose)

			params, asmp, tables, err := loadInputs(cmd)
			if err != nil {
				return err
			}

			sexFlag, _ := cmd.Flags().GetString("sex")
			format, _ := cmd.Flags().GetString("format")
			workerType, _ := cmd.Flags().GetString("worker-type")

			sex := domain.Sex(sexFlag)
			if sex != domain.Male && sex != domain.Female {
				return fmt.Errorf("sex must be male or female, got %q", sexFlag)
			}

			profile := domain.PersonProfile{
				Sex:          sex,
				Age:          decimal.NewFromInt(int64(asmp.EntryAge + asmp.CareerLength)),
				ServiceYears: decimal.NewFromInt(int64(asmp.CareerLength)),
				WorkerTypeID: workerType,
			}

			engine := calculation.NewEngine(params, asmp, params.AverageEarnings.AnnualValue, tables)
			engine.SetLogger(zerologAdapter{log})

			results, err := engine.CalculateStandardMultiples(profile)
			if err != nil {
				return err
			}

			report := &output.CountryReport{Metadata: params.Metadata, Sex: sex, Results: results}
			return output.NewReportGenerator().Generate(os.Stdout, report, format)
		},
	}

	cmd.Flags().String("country", "", "country parameter YAML file (required)")
	cmd.Flags().String("assumptions", "", "global assumptions YAML file")
	cmd.Flags().String("tables", "", "life-table YAML file")
	cmd.Flags().String("sex", "male", "male or female")
	cmd.Flags().String("worker-type", "", "worker type id")
	cmd.Flags().String("format", "console", "console, json, or csv")
	cmd.Flags().Bool("verbose", false, "debug logging")
	cmd.MarkFlagRequired("country")
	return cmd
}

// loadCountries parses every country file and keys the sets by ISO3.
func loadCountries(files []string) (map[string]*domain.CountryParameterSet, []string, error) {
	parser := config.NewParamsParser()
	countries := make(map[string]*domain.CountryParameterSet, len(files))
	order := make([]string, 0, len(files))
	for _, file := range files {
		params, err := parser.LoadCountryFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("loading %s: %w", filepath.Base(file), err)
		}
		countries[params.Metadata.ISO3] = params
		order = append(order, params.Metadata.ISO3)
	}
	return countries, order, nil
}

// resolveTables builds the mortality provider: the YAML snapshot when
// given, optionally warmed into a SQLite cache that then serves the
// queries (and persists for the next run).
func resolveTables(tablesFile, cachePath string, isoCodes []string, maxAge int, log zerolog.Logger) (lifetable.Provider, func() error, error) {
	noop := func() error { return nil }

	var snapshot *lifetable.StaticProvider
	if tablesFile != "" {
		var err error
		if snapshot, err = lifetable.LoadFile(tablesFile); err != nil {
			return nil, nil, err
		}
	}

	if cachePath == "" {
		if snapshot == nil {
			return nil, noop, nil
		}
		return snapshot, noop, nil
	}

	store, err := sqlite.Open(cachePath, log)
	if err != nil {
		return nil, nil, err
	}
	if snapshot != nil {
		sexes := []domain.Sex{domain.Male, domain.Female}
		for _, iso3 := range isoCodes {
			if err := store.Warm(iso3, snapshot, sexes, 0, maxAge); err != nil {
				store.Close()
				return nil, nil, err
			}
		}
	}
	return store, store.Close, nil
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [country-files...]",
		Short: "Run the full grid over several countries in parallel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(verbose)

			assumptionsFile, _ := cmd.Flags().GetString("assumptions")
			tablesFile, _ := cmd.Flags().GetString("tables")
			cachePath, _ := cmd.Flags().GetString("cache")
			workers, _ := cmd.Flags().GetInt("workers")
			outFile, _ := cmd.Flags().GetString("out")

			asmp := domain.DefaultAssumptions()
			var err error
			if assumptionsFile != "" {
				if asmp, err = config.LoadAssumptions(assumptionsFile); err != nil {
					return err
				}
			}

			countries, order, err := loadCountries(args)
			if err != nil {
				return err
			}

			tables, closeTables, err := resolveTables(tablesFile, cachePath, order, asmp.MaxAge, log)
			if err != nil {
				return err
			}
			defer closeTables()

			runner := batch.NewRunner(countries, asmp, tables, workers)
			runner.SetLogger(zerologAdapter{log})

			workerType, _ := cmd.Flags().GetString("worker-type")
			profile := domain.PersonProfile{
				Age:          decimal.NewFromInt(int64(asmp.EntryAge + asmp.CareerLength)),
				ServiceYears: decimal.NewFromInt(int64(asmp.CareerLength)),
				WorkerTypeID: workerType,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run := runner.Execute(ctx, profile, runner.Units(order))

			failures := 0
			for _, res := range run.Results {
				if res.Err != nil {
					failures++
					log.Error().Err(res.Err).
						Str("iso3", res.Unit.ISO3).
						Str("sex", string(res.Unit.Sex)).
						Msg("unit failed")
				}
			}
			log.Info().Str("run_id", run.ID).
				Int("units", len(run.Results)).
				Int("failures", failures).
				Msg("batch complete")

			if outFile != "" {
				return output.SaveJSON(outFile, run)
			}
			return output.WriteJSON(os.Stdout, run)
		},
	}

	cmd.Flags().String("assumptions", "", "global assumptions YAML file")
	cmd.Flags().String("tables", "", "life-table YAML file")
	cmd.Flags().String("cache", "", "SQLite series cache, warmed from --tables")
	cmd.Flags().String("worker-type", "", "worker type id for the batch subject")
	cmd.Flags().Int("workers", 4, "parallel workers")
	cmd.Flags().String("out", "", "write the run JSON to this file instead of stdout")
	cmd.Flags().Bool("verbose", false, "debug logging")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [country-files...]",
		Short: "Serve the calculator over HTTP",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; flags and real env vars win.
			_ = godotenv.Load()

			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(verbose)

			port, _ := cmd.Flags().GetInt("port")
			if env := os.Getenv("PENCALC_PORT"); env != "" && !cmd.Flags().Changed("port") {
				if p, err := strconv.Atoi(env); err == nil {
					port = p
				}
			}

			assumptionsFile, _ := cmd.Flags().GetString("assumptions")
			tablesFile, _ := cmd.Flags().GetString("tables")
			cachePath, _ := cmd.Flags().GetString("cache")
			workers, _ := cmd.Flags().GetInt("workers")

			asmp := domain.DefaultAssumptions()
			var err error
			if assumptionsFile != "" {
				if asmp, err = config.LoadAssumptions(assumptionsFile); err != nil {
					return err
				}
			}

			countries, order, err := loadCountries(args)
			if err != nil {
				return err
			}

			tables, closeTables, err := resolveTables(tablesFile, cachePath, order, asmp.MaxAge, log)
			if err != nil {
				return err
			}
			defer closeTables()

			server := api.New(api.Config{
				Port:        port,
				Log:         log,
				Countries:   countries,
				Assumptions: asmp,
				Tables:      tables,
				Workers:     workers,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().Int("port", 8080, "listen port (PENCALC_PORT overrides the default)")
	cmd.Flags().String("assumptions", "", "global assumptions YAML file")
	cmd.Flags().String("tables", "", "life-table YAML file")
	cmd.Flags().String("cache", "", "SQLite series cache, warmed from --tables")
	cmd.Flags().Int("workers", 4, "batch workers")
	cmd.Flags().Bool("verbose", false, "debug logging")
	return cmd
}

func main() {
	rootCmd.AddCommand(calculateCmd(), scheduleCmd(), batchCmd(), serveCmd(), versionCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
