package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/output"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func dptr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func apiCountry() *domain.CountryParameterSet {
	return &domain.CountryParameterSet{
		Metadata: domain.CountryMetadata{
			CountryName: "Testland", ISO3: "TST", CurrencyCode: "TSK", ReferenceYear: 2022,
		},
		Schemes: []domain.SchemeComponent{
			{
				ID: "state_db", Type: domain.SchemeDB, Active: true,
				Eligibility: domain.EligibilityRules{
					NormalRetirementAgeMale:   dptr(60),
					NormalRetirementAgeFemale: dptr(60),
				},
				Benefits: domain.BenefitRules{AccrualRate: dptr(0.015)},
			},
		},
		Taxes:           domain.TaxRules{SimplifiedNetRate: dptr(0.1)},
		AverageEarnings: domain.AverageEarnings{AnnualValue: dec(10000), Year: 2022},
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	return New(Config{
		Port:        0,
		Log:         zerolog.Nop(),
		Countries:   map[string]*domain.CountryParameterSet{"TST": apiCountry()},
		Assumptions: domain.DefaultAssumptions(),
		Workers:     2,
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := testServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestListCountries(t *testing.T) {
	s := testServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/countries", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metas []domain.CountryMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metas))
	require.Len(t, metas, 1)
	assert.Equal(t, "TST", metas[0].ISO3)
}

func TestCalculate(t *testing.T) {
	s := testServer(t)

	t.Run("Valid request", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/v1/calculate", CalculateRequest{
			ISO3: "TST",
			Profile: domain.PersonProfile{
				Sex: domain.Male, Age: dec(65), ServiceYears: dec(40),
				Wage: dec(1), WageUnit: domain.WageAWMultiple,
			},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result domain.PensionResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.GrossBenefit.Equal(dec(6000)),
			"0.015 x 40 x 10000, got %s", result.GrossBenefit)
		assert.True(t, result.NetBenefit.Equal(dec(5400)))
	})

	t.Run("Unknown country", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/v1/calculate", CalculateRequest{ISO3: "ZZZ"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/calculate", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSchedule(t *testing.T) {
	s := testServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/countries/TST/schedule?sex=female", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report output.CountryReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, domain.Female, report.Sex)
	assert.Len(t, report.Results, 6, "One result per standard multiple")

	rec = doJSON(t, s, http.MethodGet, "/api/v1/countries/TST/schedule?sex=other", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/countries/ZZZ/schedule", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatch(t *testing.T) {
	s := testServer(t)

	t.Run("Full grid", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/v1/batch", BatchRequest{
			Countries: []string{"TST"},
			Profile: domain.PersonProfile{
				Age: dec(65), ServiceYears: dec(40),
			},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			RunID   string `json:"run_id"`
			Results []struct {
				Result *domain.PensionResult `json:"result"`
			} `json:"results"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.RunID)
		assert.Len(t, resp.Results, 12, "1 country x 2 sexes x 6 multiples")
	})

	t.Run("Missing countries", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/v1/batch", BatchRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
