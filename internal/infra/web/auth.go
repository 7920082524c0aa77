package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"karaoke-subscription/internal/domain"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Plan     string `json:"plan"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := s.accountUC.Register(r.Context(), req.Email, req.Name, req.Password, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, domain.ErrUnknownPlan):
			writeError(w, http.StatusBadRequest, "unknown plan")
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "all fields are required")
		default:
			s.log.Error().Err(err).Msg("register failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      acct.ID,
		"email":   acct.Email,
		"plan":    acct.Plan,
		"status":  acct.Status,
		"message": "account created, awaiting payment confirmation",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, acct, err := s.accountUC.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, domain.ErrInactiveAccount):
			writeError(w, http.StatusForbidden, "payment pending")
		case errors.Is(err, domain.ErrExpiredEntitlement):
			writeError(w, http.StatusForbidden, "subscription expired")
		default:
			s.log.Error().Err(err).Msg("login failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"account": map[string]any{
			"name":  acct.Name,
			"email": acct.Email,
			"plan":  acct.Plan,
		},
	})
}
