// Package handlers provides HTTP handlers for authentication endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/futurecoin/futurecoin/internal/modules/auth"
)

// Handler provides HTTP handlers for login, registration, and session
// inspection.
type Handler struct {
	service  *auth.Service
	sessions *auth.Sessions
	log      zerolog.Logger
}

func NewHandler(service *auth.Service, sessions *auth.Sessions, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	isAdmin, err := h.service.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.log.Error().Err(err).Msg("Login failed")
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.service.RecordLogin(r.Context(), creds.Username, r.RemoteAddr, r.UserAgent())

	if err := h.sessions.Set(w, r, creds.Username, isAdmin); err != nil {
		h.log.Error().Err(err).Msg("Failed to save session")
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "login successful",
		"is_admin": isAdmin,
	})
}

// HandleRegister handles POST /api/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		var validation *auth.ValidationError
		switch {
		case errors.As(err, &validation):
			respondError(w, http.StatusBadRequest, validation.Error())
		case errors.Is(err, auth.ErrUsernameTaken):
			respondError(w, http.StatusBadRequest, "username already exists")
		default:
			h.log.Error().Err(err).Msg("Registration failed")
			respondError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"message": "registration successful"})
}

// HandleLogout handles POST /api/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.log.Error().Err(err).Msg("Failed to clear session")
		respondError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "logout successful"})
}

// HandleSession handles GET /api/session
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	username, isAdmin, ok := h.sessions.Current(r)
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          username,
		"is_admin":      isAdmin,
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
