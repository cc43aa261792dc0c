package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if s.db != nil {
		if err := s.db.QuickCheck(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Database health check failed")
			dbStatus = "unavailable"
		}
	}

	status := s.registry.Status()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  dbStatus,
		"models":    status,
		"loader": map[string]any{
			"strategies": s.loader.Strategies(),
		},
		"config": map[string]any{
			"days_ahead_max":  s.cfg.DaysAheadMax,
			"hours_ahead_max": s.cfg.HoursAheadMax,
			"daily_currency":  s.cfg.DailyCurrency,
			"hourly_currency": s.cfg.HourlyCurrency,
			"async_eval":      s.cfg.UseAsyncEval,
		},
	})
}

// handleModels handles GET /api/models and GET /api/models/details.
// Both serve the descriptor list; entries marshal with their derived
// key, type, and loaded fields.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"models": s.registry.List(),
		"status": s.registry.Status(),
	})
}

// handleCurrentPrice handles GET /api/current-price/{symbol}
func (s *Server) handleCurrentPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	price, err := s.market.SpotPrice(r.Context(), symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Spot price unavailable")
		respondError(w, http.StatusNotFound, "price unavailable for "+symbol)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"price":     price,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
