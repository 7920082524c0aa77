package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"karaoke-subscription/internal/domain"
	"karaoke-subscription/internal/domain/model"
	"karaoke-subscription/internal/domain/ports/adapter"
	"karaoke-subscription/internal/domain/ports/repository"
	"karaoke-subscription/internal/infra/logging"
	"karaoke-subscription/internal/infra/metrics"
)

// Outcome classifies the terminal state of one delivery attempt. Every
// outcome except a retryable error is acknowledged 200 to the sender;
// the distinction lives in logs and metrics.
type Outcome string

const (
	OutcomeActivated        Outcome = "activated"
	OutcomeRenewed          Outcome = "renewed"
	OutcomeIgnored          Outcome = "ignored"
	OutcomeNotApproved      Outcome = "not_approved"
	OutcomeDropped          Outcome = "dropped"
	OutcomeAlreadyProcessed Outcome = "already_processed"
)

// InFlightLocker narrows concurrent duplicate deliveries of the same
// payment id to one worker. It is advisory: the payment_events uniqueness
// constraint is what actually guarantees exactly-once effects.
type InFlightLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

type ReconcileUseCase interface {
	// Handle processes one inbound delivery attempt end to end. The error
	// is non-nil only for retryable failures (gateway or storage); every
	// other path resolves to an Outcome and a success acknowledgment.
	Handle(ctx context.Context, n model.PaymentNotification) (Outcome, error)
	// Redrive finishes a claim interrupted between processing and processed.
	Redrive(ctx context.Context, ev *model.PaymentEvent) error
}

type reconcileUC struct {
	accounts repository.AccountRepository
	events   repository.PaymentEventRepository
	tm       repository.TransactionManager
	gateway  adapter.PaymentGateway
	mailer   adapter.Mailer
	locks    InFlightLocker

	gatewayTimeout time.Duration
	mailTimeout    time.Duration
	lockTTL        time.Duration

	log *zerolog.Logger
}

func NewReconcileUseCase(
	accounts repository.AccountRepository,
	events repository.PaymentEventRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	mailer adapter.Mailer,
	locks InFlightLocker,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *reconcileUC {
	compLog := logger.With().Str("component", "ReconcileUC").Logger()
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &reconcileUC{
		accounts:       accounts,
		events:         events,
		tm:             tm,
		gateway:        gateway,
		mailer:         mailer,
		locks:          locks,
		gatewayTimeout: 10 * time.Second,
		mailTimeout:    15 * time.Second,
		lockTTL:        lockTTL,
		log:            &compLog,
	}
}

func (u *reconcileUC) Handle(ctx context.Context, n model.PaymentNotification) (Outcome, error) {
	defer logging.TraceDuration(u.log, "ReconcileUC.Handle")()

	// The gateway sends many notification shapes; only payment-shaped ones
	// with an id matter. Everything else is an expected non-event.
	if n.GatewayPaymentID == "" {
		return OutcomeIgnored, nil
	}
	if n.EventType != "" && n.EventType != model.EventTypePayment {
		return OutcomeIgnored, nil
	}

	// Fast path for replays of a payment that already ran to completion.
	if ev, err := u.events.FindByGatewayID(ctx, nil, n.GatewayPaymentID); err == nil {
		if ev.Status == model.EventProcessed {
			return OutcomeAlreadyProcessed, nil
		}
		// Still processing: a concurrent delivery holds it, or a crashed
		// claim awaits the redrive worker. Either way this attempt is done.
		return OutcomeAlreadyProcessed, nil
	}

	if u.locks != nil {
		token, err := u.locks.TryLock(ctx, "payment:"+n.GatewayPaymentID, u.lockTTL)
		if err != nil {
			// Another delivery of the same payment is in flight right now.
			return OutcomeAlreadyProcessed, nil
		}
		defer func() { _ = u.locks.Unlock(ctx, "payment:"+n.GatewayPaymentID, token) }()
	}

	// The notification body is untrusted; re-fetch the authoritative status.
	gctx, cancel := context.WithTimeout(ctx, u.gatewayTimeout)
	defer cancel()
	p, err := u.gateway.FetchPayment(gctx, n.GatewayPaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Str("payment_id", n.GatewayPaymentID).Msg("gateway does not know this payment id")
			metrics.IncWebhookDropped("unknown_payment")
			return OutcomeDropped, nil
		}
		return "", fmt.Errorf("fetch payment %s: %w", n.GatewayPaymentID, err)
	}
	if p.Status != model.GatewayStatusApproved {
		u.log.Debug().Str("payment_id", p.ID).Str("status", string(p.Status)).Msg("payment not approved; no action")
		return OutcomeNotApproved, nil
	}

	ref, err := model.DecodeExternalReference(p.ExternalReferenceRaw)
	if err != nil {
		u.log.Warn().Str("payment_id", p.ID).Str("reference", p.ExternalReferenceRaw).Msg("undecodable external reference")
		metrics.IncWebhookDropped("decode")
		return OutcomeDropped, nil
	}

	acct, err := u.resolveAccount(ctx, ref, p.PayerEmail)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().
				Str("payment_id", p.ID).
				Str("account_id", ref.AccountID).
				Str("payer_email", logging.Redact(p.PayerEmail, false)).
				Msg("no account for reference")
			metrics.IncWebhookDropped("account")
			return OutcomeDropped, nil
		}
		return "", err
	}

	plan, ok := model.LookupPlan(ref.Plan)
	if !ok {
		// An approved payment for an unknown plan must never activate with
		// a zero-length window.
		u.log.Warn().Str("payment_id", p.ID).Str("plan", ref.Plan).Msg("plan not in catalog")
		metrics.IncWebhookDropped("plan")
		return OutcomeDropped, nil
	}

	// Durable idempotency claim. A conflict means another delivery already
	// owns this payment: that is a success for our caller, not an error.
	ev := model.NewPaymentEvent(p.ID, ref.OrderID, acct.ID, plan.ID)
	if err := u.events.Claim(ctx, nil, ev); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return OutcomeAlreadyProcessed, nil
		}
		return "", fmt.Errorf("claim payment %s: %w", p.ID, err)
	}

	return u.finalize(ctx, ev, acct, plan)
}

// resolveAccount resolves the decoded reference to an account: by id first,
// then by the reference email, then by the payer email reported by the
// gateway (the oldest checkout flow correlated by email only).
func (u *reconcileUC) resolveAccount(ctx context.Context, ref *model.ExternalReference, payerEmail string) (*model.Account, error) {
	acct, err := u.accounts.FindByID(ctx, nil, ref.AccountID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	for _, email := range []string{ref.Email, payerEmail} {
		if email == "" {
			continue
		}
		if acct, err := u.accounts.FindByEmail(ctx, nil, email); err == nil {
			return acct, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrNotFound
}

// finalize commits the account mutation and the processed mark in one
// transaction, then dispatches the confirmation mail best-effort. A crash
// before commit leaves the claim in processing for the redrive worker; the
// account update cannot have committed without the mark, so redriving never
// double-extends.
func (u *reconcileUC) finalize(ctx context.Context, ev *model.PaymentEvent, acct *model.Account, plan model.Plan) (Outcome, error) {
	// A one-time credential is issued only at first-ever activation of an
	// account that has none; renewals never regenerate or mail passwords.
	firstCredential := acct.CredentialDigest == ""
	var oneTime, digest string
	if firstCredential {
		var err error
		oneTime, err = generateTempPassword()
		if err != nil {
			return "", fmt.Errorf("generate credential: %w", err)
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(oneTime), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("hash credential: %w", err)
		}
		digest = string(hashed)
	}

	var updated *model.Account
	outcome := OutcomeRenewed
	err := u.tm.WithTx(ctx, func(ctx context.Context, qx any) error {
		// The outcome label comes from the status the UPDATE replaced, not
		// from the account read before the transaction: two concurrent
		// payments for one inactive account must not both report activated.
		var prev model.AccountStatus
		var err error
		updated, prev, err = u.accounts.ActivateOrRenew(ctx, qx, acct.ID, plan.ID, plan.DurationDays)
		if err != nil {
			return err
		}
		if prev == model.AccountStatusInactive {
			outcome = OutcomeActivated
		}
		ok, err := u.events.MarkProcessed(ctx, qx, ev.GatewayPaymentID, string(outcome))
		if err != nil {
			return err
		}
		if !ok {
			// Another worker finished first; rolling back undoes the window
			// extension above so the account is not extended twice.
			return domain.ErrAlreadyExists
		}
		if firstCredential {
			return u.accounts.SetCredential(ctx, qx, acct.ID, digest)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return OutcomeAlreadyProcessed, nil
		}
		return "", fmt.Errorf("finalize payment %s: %w", ev.GatewayPaymentID, err)
	}

	kind := "renewal"
	if outcome == OutcomeActivated {
		kind = "first"
	}
	metrics.IncActivation(plan.ID, kind)
	u.log.Info().
		Str("payment_id", ev.GatewayPaymentID).
		Str("account_id", updated.ID).
		Str("plan", plan.ID).
		Time("expires_at", *updated.ExpiresAt).
		Str("outcome", string(outcome)).
		Msg("entitlement updated")

	u.notify(ctx, updated, plan, outcome, oneTime)
	return outcome, nil
}

// Redrive re-runs the tail of the pipeline for a stale processing claim.
func (u *reconcileUC) Redrive(ctx context.Context, ev *model.PaymentEvent) error {
	gctx, cancel := context.WithTimeout(ctx, u.gatewayTimeout)
	defer cancel()
	p, err := u.gateway.FetchPayment(gctx, ev.GatewayPaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return u.closeClaim(ctx, ev, OutcomeDropped)
		}
		return err // transient; next scan retries
	}
	if p.Status != model.GatewayStatusApproved {
		// Claimed while approved, no longer approved at the gateway: close
		// the claim so it stops redriving.
		return u.closeClaim(ctx, ev, OutcomeNotApproved)
	}

	plan, ok := model.LookupPlan(ev.Plan)
	if !ok {
		return u.closeClaim(ctx, ev, OutcomeDropped)
	}
	acct, err := u.accounts.FindByID(ctx, nil, ev.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return u.closeClaim(ctx, ev, OutcomeDropped)
		}
		return err
	}

	_, err = u.finalize(ctx, ev, acct, plan)
	return err
}

func (u *reconcileUC) closeClaim(ctx context.Context, ev *model.PaymentEvent, outcome Outcome) error {
	return u.tm.WithTx(ctx, func(ctx context.Context, qx any) error {
		_, err := u.events.MarkProcessed(ctx, qx, ev.GatewayPaymentID, string(outcome))
		return err
	})
}

func (u *reconcileUC) notify(ctx context.Context, acct *model.Account, plan model.Plan, outcome Outcome, oneTime string) {
	if u.mailer == nil {
		return
	}
	subject, body := confirmationMail(acct, plan, outcome, oneTime)

	mctx, cancel := context.WithTimeout(ctx, u.mailTimeout)
	defer cancel()
	if err := u.mailer.Send(mctx, acct.Email, subject, body); err != nil {
		// Best effort: the activation is committed; the ack is unaffected.
		metrics.IncNotificationFailure()
		u.log.Error().Err(err).Str("account_id", acct.ID).Msg("confirmation mail failed")
	}
}
