package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"karaoke-subscription/internal/domain"
	"karaoke-subscription/internal/domain/model"
	"karaoke-subscription/internal/domain/ports/repository"
	"karaoke-subscription/internal/infra/logging"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

type AccountUseCase interface {
	// Register creates an inactive account awaiting payment confirmation.
	Register(ctx context.Context, email, name, password, plan string) (*model.Account, error)
	// Authenticate verifies credentials and the entitlement window, then
	// issues a session token.
	Authenticate(ctx context.Context, email, password string) (string, *model.Account, error)
	// VerifyToken parses and validates a session token issued by Authenticate.
	VerifyToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims is the JWT payload issued on login.
type SessionClaims struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
	jwt.RegisteredClaims
}

type accountUC struct {
	accounts  repository.AccountRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, jwtSecret string, tokenTTL time.Duration, logger *zerolog.Logger) *accountUC {
	compLog := logger.With().Str("component", "AccountUC").Logger()
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &accountUC{
		accounts:  accounts,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       &compLog,
	}
}

func (u *accountUC) Register(ctx context.Context, email, name, password, plan string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Register")()

	if email == "" || name == "" || password == "" || plan == "" {
		return nil, domain.ErrInvalidArgument
	}
	p, ok := model.LookupPlan(plan)
	if !ok {
		return nil, domain.ErrUnknownPlan
	}

	if _, err := u.accounts.FindByEmail(ctx, nil, email); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	acct, err := model.NewAccount(email, name, string(digest), p.ID)
	if err != nil {
		return nil, err
	}
	if err := u.accounts.Save(ctx, nil, acct); err != nil {
		return nil, err
	}
	u.log.Info().Str("account_id", acct.ID).Str("plan", p.ID).Msg("account registered, awaiting payment")
	return acct, nil
}

func (u *accountUC) Authenticate(ctx context.Context, email, password string) (string, *model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Authenticate")()

	acct, err := u.accounts.FindByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if acct.CredentialDigest == "" {
		return "", nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.CredentialDigest), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	// Expiry is a read-time check: the reconciler never downgrades accounts.
	now := time.Now()
	if acct.Status != model.AccountStatusActive {
		return "", nil, domain.ErrInactiveAccount
	}
	if !acct.Entitled(now) {
		return "", nil, domain.ErrExpiredEntitlement
	}

	claims := SessionClaims{
		Email: acct.Email,
		Plan:  acct.Plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, acct, nil
}

func (u *accountUC) VerifyToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return u.jwtSecret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return claims, nil
}
