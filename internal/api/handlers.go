package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/pensionlab/pencalc/internal/batch"
	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/output"
)

// CalculateRequest asks for one computation of a profile in one country.
type CalculateRequest struct {
	ISO3    string               `json:"iso3"`
	Profile domain.PersonProfile `json:"profile"`
}

// BatchRequest asks for a full run over countries, multiples, and sexes.
type BatchRequest struct {
	Countries []string             `json:"countries"`
	Profile   domain.PersonProfile `json:"profile"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"countries": len(s.engines),
	})
}

func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	metas := make([]domain.CountryMetadata, 0, len(s.engines))
	for _, e := range s.engines {
		metas = append(metas, e.Params.Metadata)
	}
	s.writeJSON(w, http.StatusOK, metas)
}

// handleCalculate runs one profile through one country's engine.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	engine, ok := s.engines[req.ISO3]
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown country: "+req.ISO3)
		return
	}

	result, err := engine.Calculate(req.Profile)
	if err != nil {
		s.log.Error().Err(err).Str("iso3", req.ISO3).Msg("calculation failed")
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleSchedule evaluates a country at every standard earnings multiple
// for the full-career worker of the given sex.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	iso3 := chi.URLParam(r, "iso3")
	engine, ok := s.engines[iso3]
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown country: "+iso3)
		return
	}

	sex := domain.Sex(r.URL.Query().Get("sex"))
	if sex == "" {
		sex = domain.Male
	}
	if sex != domain.Male && sex != domain.Female {
		s.writeError(w, http.StatusBadRequest, "sex must be male or female")
		return
	}

	profile := fullCareerProfile(engine.Assumptions, sex)
	results, err := engine.CalculateStandardMultiples(profile)
	if err != nil {
		s.log.Error().Err(err).Str("iso3", iso3).Msg("schedule failed")
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, &output.CountryReport{
		Metadata: engine.Params.Metadata,
		Sex:      sex,
		Results:  results,
	})
}

// handleBatch runs the full (countries x multiples x sexes) grid.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Countries) == 0 {
		s.writeError(w, http.StatusBadRequest, "countries is required")
		return
	}

	units := s.runner.Units(req.Countries)
	run := s.runner.Execute(r.Context(), req.Profile, units)

	// Unit errors are reported inline rather than failing the response.
	type unitError struct {
		Unit  batch.Unit `json:"unit"`
		Error string     `json:"error"`
	}
	var failures []unitError
	for _, res := range run.Results {
		if res.Err != nil {
			failures = append(failures, unitError{Unit: res.Unit, Error: res.Err.Error()})
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   run.ID,
		"results":  run.Results,
		"failures": failures,
	})
}

// fullCareerProfile is the standard schedule subject: entry age plus a
// full career, retiring at the end of it.
func fullCareerProfile(asmp domain.GlobalAssumptions, sex domain.Sex) domain.PersonProfile {
	return domain.PersonProfile{
		Sex:          sex,
		Age:          decimal.NewFromInt(int64(asmp.EntryAge + asmp.CareerLength)),
		ServiceYears: decimal.NewFromInt(int64(asmp.CareerLength)),
		Wage:         decimal.NewFromInt(1),
		WageUnit:     domain.WageAWMultiple,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
