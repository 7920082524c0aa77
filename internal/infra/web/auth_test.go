package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"karaoke-subscription/internal/domain"
	"karaoke-subscription/internal/domain/model"
	"karaoke-subscription/internal/usecase"
)

// stubAccountUC answers Register/Authenticate/VerifyToken with scripted results.
type stubAccountUC struct {
	acct      *model.Account
	token     string
	claims    *usecase.SessionClaims
	regErr    error
	authErr   error
	verifyErr error
}

func (s *stubAccountUC) Register(ctx context.Context, email, name, password, plan string) (*model.Account, error) {
	if s.regErr != nil {
		return nil, s.regErr
	}
	return s.acct, nil
}

func (s *stubAccountUC) Authenticate(ctx context.Context, email, password string) (string, *model.Account, error) {
	if s.authErr != nil {
		return "", nil, s.authErr
	}
	return s.token, s.acct, nil
}

func (s *stubAccountUC) VerifyToken(tokenString string) (*usecase.SessionClaims, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return s.claims, nil
}

func newAuthServer(uc *stubAccountUC) *Server {
	logger := zerolog.Nop()
	return NewServer(nil, uc, "", &logger)
}

func postJSON(t *testing.T, srv *Server, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHandleRegister(t *testing.T) {
	acct := &model.Account{ID: "acc-1", Email: "u@example.com", Plan: "monthly", Status: model.AccountStatusInactive}
	body := `{"email":"u@example.com","name":"User","password":"pw","plan":"monthly"}`

	cases := []struct {
		name     string
		uc       *stubAccountUC
		body     string
		wantCode int
	}{
		{"created", &stubAccountUC{acct: acct}, body, http.StatusCreated},
		{"duplicate email", &stubAccountUC{regErr: domain.ErrAlreadyExists}, body, http.StatusConflict},
		{"unknown plan", &stubAccountUC{regErr: domain.ErrUnknownPlan}, body, http.StatusBadRequest},
		{"missing fields", &stubAccountUC{regErr: domain.ErrInvalidArgument}, body, http.StatusBadRequest},
		{"malformed body", &stubAccountUC{acct: acct}, "{", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, newAuthServer(tc.uc), "/api/auth/register", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantCode)
			}
		})
	}

	// The created response carries the inactive status so the frontend can
	// tell the user payment is still pending.
	w := postJSON(t, newAuthServer(&stubAccountUC{acct: acct}), "/api/auth/register", body)
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "acc-1" || resp.Status != "inactive" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestHandleLogin(t *testing.T) {
	acct := &model.Account{ID: "acc-1", Name: "User", Email: "u@example.com", Plan: "monthly", Status: model.AccountStatusActive}
	body := `{"email":"u@example.com","password":"pw"}`

	cases := []struct {
		name     string
		uc       *stubAccountUC
		body     string
		wantCode int
	}{
		{"ok", &stubAccountUC{acct: acct, token: "jwt-token"}, body, http.StatusOK},
		{"bad credentials", &stubAccountUC{authErr: domain.ErrInvalidCredentials}, body, http.StatusUnauthorized},
		{"payment pending", &stubAccountUC{authErr: domain.ErrInactiveAccount}, body, http.StatusForbidden},
		{"expired", &stubAccountUC{authErr: domain.ErrExpiredEntitlement}, body, http.StatusForbidden},
		{"missing fields", &stubAccountUC{}, `{"email":"u@example.com"}`, http.StatusBadRequest},
		{"malformed body", &stubAccountUC{}, "{", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, newAuthServer(tc.uc), "/api/auth/login", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantCode)
			}
		})
	}

	w := postJSON(t, newAuthServer(&stubAccountUC{acct: acct, token: "jwt-token"}), "/api/auth/login", body)
	var resp struct {
		Token   string `json:"token"`
		Account struct {
			Email string `json:"email"`
		} `json:"account"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "jwt-token" || resp.Account.Email != "u@example.com" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestHandlePlans(t *testing.T) {
	srv := newAuthServer(&stubAccountUC{})
	req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Plans []struct {
			ID           string `json:"id"`
			DurationDays int    `json:"duration_days"`
		} `json:"plans"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Plans) != 4 || resp.Plans[0].ID != "monthly" || resp.Plans[0].DurationDays != 30 {
		t.Fatalf("plans = %+v", resp.Plans)
	}
}

func TestHealth(t *testing.T) {
	srv := newAuthServer(&stubAccountUC{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}
