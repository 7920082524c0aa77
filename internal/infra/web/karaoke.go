package web

import (
	"context"
	"net/http"
	"strings"

	"karaoke-subscription/internal/usecase"
)

type sessionCtxKey struct{}

// requireSession gates a route group on a bearer session token. A missing
// or malformed header is 401; a token that fails verification is 403, so
// the frontend can distinguish "log in" from "session expired".
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.accountUC.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusForbidden, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *usecase.SessionClaims {
	claims, _ := ctx.Value(sessionCtxKey{}).(*usecase.SessionClaims)
	return claims
}

// The karaoke endpoints keep the legacy frontend's route names and
// Portuguese response keys; the room/queue state itself lives client-side.

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	claims := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"sucesso":  true,
		"mensagem": "Sala criada com sucesso",
		"usuario":  claims.Email,
	})
}

func (s *Server) handleLoadVideo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sucesso":  true,
		"mensagem": "Vídeo carregado com sucesso",
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sucesso": true,
		"fila":    []string{},
	})
}
