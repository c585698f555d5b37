// Package sqlite caches resolved external series (national average wages
// and life-table rows) in a local SQLite database, so batch runs do not
// re-read every YAML snapshot and downstream tools can query the same data.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/lifetable"
)

const schema = `
CREATE TABLE IF NOT EXISTS average_wages (
	iso3        TEXT NOT NULL,
	year        INTEGER NOT NULL,
	annual_value TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (iso3, year)
);

CREATE TABLE IF NOT EXISTS life_table_rows (
	iso3         TEXT NOT NULL,
	sex          TEXT NOT NULL,
	age          INTEGER NOT NULL,
	survivorship TEXT NOT NULL,
	ex           TEXT,
	PRIMARY KEY (iso3, sex, age)
);
`

// SeriesStore is a SQLite-backed cache of external statistical series. It
// implements lifetable.Provider, so a warmed store can feed the wealth
// calculator directly.
type SeriesStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the store at the given path. WAL mode
// keeps concurrent batch readers off each other's toes.
func Open(path string, log zerolog.Logger) (*SeriesStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open series store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping series store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply store schema: %w", err)
	}

	return &SeriesStore{
		db:  db,
		log: log.With().Str("component", "series_store").Logger(),
	}, nil
}

// Close closes the underlying database.
func (s *SeriesStore) Close() error {
	return s.db.Close()
}

// PutAverageWage stores one (country, year) average-wage observation,
// replacing any previous value.
func (s *SeriesStore) PutAverageWage(iso3 string, earnings domain.AverageEarnings) error {
	_, err := s.db.Exec(`
		INSERT INTO average_wages (iso3, year, annual_value, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (iso3, year) DO UPDATE SET annual_value = excluded.annual_value, source = excluded.source`,
		iso3, earnings.Year, earnings.AnnualValue.String(), earnings.Source)
	if err != nil {
		return fmt.Errorf("failed to store average wage for %s/%d: %w", iso3, earnings.Year, err)
	}
	return nil
}

// AverageWage returns the stored average wage for a country and year.
func (s *SeriesStore) AverageWage(iso3 string, year int) (domain.AverageEarnings, bool, error) {
	var value, source string
	err := s.db.QueryRow(
		`SELECT annual_value, source FROM average_wages WHERE iso3 = ? AND year = ?`,
		iso3, year).Scan(&value, &source)
	if err == sql.ErrNoRows {
		return domain.AverageEarnings{}, false, nil
	}
	if err != nil {
		return domain.AverageEarnings{}, false, fmt.Errorf("failed to query average wage for %s/%d: %w", iso3, year, err)
	}

	annual, err := decimal.NewFromString(value)
	if err != nil {
		return domain.AverageEarnings{}, false, fmt.Errorf("corrupt average wage for %s/%d: %w", iso3, year, err)
	}
	return domain.AverageEarnings{AnnualValue: annual, Year: year, Source: source}, true, nil
}

// LatestAverageWage returns the most recent stored observation for a country.
func (s *SeriesStore) LatestAverageWage(iso3 string) (domain.AverageEarnings, bool, error) {
	var year int
	err := s.db.QueryRow(
		`SELECT MAX(year) FROM average_wages WHERE iso3 = ?`, iso3).Scan(&year)
	if err == sql.ErrNoRows || year == 0 {
		return domain.AverageEarnings{}, false, nil
	}
	if err != nil {
		return domain.AverageEarnings{}, false, fmt.Errorf("failed to query latest average wage for %s: %w", iso3, err)
	}
	return s.AverageWage(iso3, year)
}

// PutLifeTable stores the rows for one country and sex inside a single
// transaction, replacing the previous table.
func (s *SeriesStore) PutLifeTable(iso3 string, sex domain.Sex, rows []lifetable.Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin life-table transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM life_table_rows WHERE iso3 = ? AND sex = ?`, iso3, string(sex)); err != nil {
		return fmt.Errorf("failed to clear life table for %s/%s: %w", iso3, sex, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO life_table_rows (iso3, sex, age, survivorship, ex)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare life-table insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		var ex any
		if r.Ex != nil {
			ex = r.Ex.String()
		}
		if _, err := stmt.Exec(iso3, string(sex), r.Age, r.Survivorship.String(), ex); err != nil {
			return fmt.Errorf("failed to insert life-table row %s/%s age %d: %w", iso3, sex, r.Age, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit life table for %s/%s: %w", iso3, sex, err)
	}
	s.log.Debug().Str("iso3", iso3).Str("sex", string(sex)).Int("rows", len(rows)).Msg("life table stored")
	return nil
}

// Survivorship implements lifetable.Provider. Ages between stored rows
// resolve to the nearest younger row, matching the in-memory provider.
func (s *SeriesStore) Survivorship(country string, sex domain.Sex, age int) (decimal.Decimal, bool) {
	var value string
	err := s.db.QueryRow(`
		SELECT survivorship FROM life_table_rows
		WHERE iso3 = ? AND sex = ? AND age <= ?
		ORDER BY age DESC LIMIT 1`,
		country, string(sex), age).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Warn().Err(err).Str("iso3", country).Msg("survivorship query failed")
		}
		return decimal.Zero, false
	}

	// Beyond the oldest stored age the table is exhausted, not flat.
	var maxAge int
	if err := s.db.QueryRow(`
		SELECT MAX(age) FROM life_table_rows WHERE iso3 = ? AND sex = ?`,
		country, string(sex)).Scan(&maxAge); err == nil && age > maxAge {
		return decimal.Zero, false
	}

	lx, err := decimal.NewFromString(value)
	if err != nil {
		s.log.Warn().Err(err).Str("iso3", country).Int("age", age).Msg("corrupt survivorship value")
		return decimal.Zero, false
	}
	return lx, true
}

// RemainingLifeExpectancy implements lifetable.Provider.
func (s *SeriesStore) RemainingLifeExpectancy(country string, sex domain.Sex, age int) (decimal.Decimal, bool) {
	var value sql.NullString
	err := s.db.QueryRow(`
		SELECT ex FROM life_table_rows WHERE iso3 = ? AND sex = ? AND age = ?`,
		country, string(sex), age).Scan(&value)
	if err != nil || !value.Valid {
		return decimal.Zero, false
	}

	ex, err := decimal.NewFromString(value.String)
	if err != nil {
		return decimal.Zero, false
	}
	return ex, true
}

// Warm loads a static provider's tables into the store.
func (s *SeriesStore) Warm(iso3 string, provider *lifetable.StaticProvider, sexes []domain.Sex, minAge, maxAge int) error {
	for _, sex := range sexes {
		var rows []lifetable.Row
		for age := minAge; age <= maxAge; age++ {
			lx, ok := provider.Survivorship(iso3, sex, age)
			if !ok {
				continue
			}
			row := lifetable.Row{Age: age, Survivorship: lx}
			if ex, ok := provider.RemainingLifeExpectancy(iso3, sex, age); ok {
				row.Ex = &ex
			}
			rows = append(rows, row)
		}
		if len(rows) == 0 {
			continue
		}
		if err := s.PutLifeTable(iso3, sex, rows); err != nil {
			return err
		}
	}
	return nil
}
