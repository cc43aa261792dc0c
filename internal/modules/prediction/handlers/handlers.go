// Package handlers provides HTTP handlers for prediction endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/futurecoin/futurecoin/internal/modules/auth"
	"github.com/futurecoin/futurecoin/internal/modules/prediction"
)

// Handler provides HTTP handlers for forecasts and history.
type Handler struct {
	service *prediction.Service
	repo    *prediction.Repository
	log     zerolog.Logger
}

func NewHandler(service *prediction.Service, repo *prediction.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "prediction").Logger(),
	}
}

// HandlePredict handles POST /api/predict
func (h *Handler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req prediction.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := auth.UsernameFromContext(r.Context())
	resp, err := h.service.Predict(r.Context(), req, username)
	if err != nil {
		var validation *prediction.ValidationError
		switch {
		case errors.As(err, &validation):
			respondError(w, http.StatusBadRequest, validation.Error())
		case errors.Is(err, prediction.ErrNoPrediction):
			respondError(w, http.StatusServiceUnavailable, "no prediction could be produced")
		default:
			h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Prediction failed")
			respondError(w, http.StatusInternalServerError, "prediction failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// HandleHistory handles GET /api/predictions/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	username := auth.UsernameFromContext(r.Context())

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	filter := r.URL.Query().Get("symbol")

	records, err := h.repo.History(r.Context(), username, limit, filter)
	if err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("Failed to load history")
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []prediction.Record{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"predictions": records,
		"count":       len(records),
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
