package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"karaoke-subscription/internal/domain"
	"karaoke-subscription/internal/domain/model"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memAccountRepo is a small in-memory implementation used by unit tests.
type memAccountRepo struct {
	mu    sync.Mutex
	store map[string]*model.Account // by ID
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{store: make(map[string]*model.Account)}
}

func (m *memAccountRepo) Save(ctx context.Context, qx any, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memAccountRepo) FindByID(ctx context.Context, qx any, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) FindByEmail(ctx context.Context, qx any, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, a := range m.store {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ActivateOrRenew mirrors the single conditional UPDATE: the new expiry is
// computed from the stored value under the lock, like the database does,
// and the replaced status is returned alongside the updated row.
func (m *memAccountRepo) ActivateOrRenew(ctx context.Context, qx any, accountID, plan string, durationDays int) (*model.Account, model.AccountStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[accountID]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	prev := a.Status
	now := time.Now()
	base := now
	if a.ExpiresAt != nil && a.ExpiresAt.After(now) {
		base = *a.ExpiresAt
	}
	exp := base.Add(time.Duration(durationDays) * 24 * time.Hour)
	a.Status = model.AccountStatusActive
	a.Plan = plan
	a.ExpiresAt = &exp
	a.UpdatedAt = now
	cp := *a
	cpExp := exp
	cp.ExpiresAt = &cpExp
	return &cp, prev, nil
}

func (m *memAccountRepo) snapshot() map[string]model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[string]model.Account, len(m.store))
	for id, a := range m.store {
		cp := *a
		if a.ExpiresAt != nil {
			e := *a.ExpiresAt
			cp.ExpiresAt = &e
		}
		snap[id] = cp
	}
	return snap
}

func (m *memAccountRepo) restore(snap map[string]model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]*model.Account, len(snap))
	for id := range snap {
		cp := snap[id]
		m.store[id] = &cp
	}
}

func (m *memAccountRepo) SetCredential(ctx context.Context, qx any, accountID, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.CredentialDigest = digest
	return nil
}

// memEventRepo enforces the gateway-payment-id uniqueness constraint and
// the processing->processed compare-and-set, like the Postgres repo.
type memEventRepo struct {
	mu    sync.Mutex
	store map[string]*model.PaymentEvent // by gateway payment id
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{store: make(map[string]*model.PaymentEvent)}
}

func (m *memEventRepo) Claim(ctx context.Context, qx any, ev *model.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[ev.GatewayPaymentID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *ev
	m.store[ev.GatewayPaymentID] = &cp
	return nil
}

func (m *memEventRepo) MarkProcessed(ctx context.Context, qx any, gatewayPaymentID, outcome string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.store[gatewayPaymentID]
	if !ok || ev.Status != model.EventProcessing {
		return false, nil
	}
	now := time.Now()
	ev.Status = model.EventProcessed
	ev.Outcome = outcome
	ev.ProcessedAt = &now
	return true, nil
}

func (m *memEventRepo) FindByGatewayID(ctx context.Context, qx any, gatewayPaymentID string) (*model.PaymentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.store[gatewayPaymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memEventRepo) ListStaleProcessing(ctx context.Context, qx any, olderThan time.Time, limit int) ([]*model.PaymentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentEvent
	for _, ev := range m.store {
		if ev.Status == model.EventProcessing && ev.CreatedAt.Before(olderThan) {
			cp := *ev
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memEventRepo) snapshot() map[string]model.PaymentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[string]model.PaymentEvent, len(m.store))
	for id, ev := range m.store {
		cp := *ev
		if ev.ProcessedAt != nil {
			p := *ev.ProcessedAt
			cp.ProcessedAt = &p
		}
		snap[id] = cp
	}
	return snap
}

func (m *memEventRepo) restore(snap map[string]model.PaymentEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]*model.PaymentEvent, len(snap))
	for id := range snap {
		cp := snap[id]
		m.store[id] = &cp
	}
}

// forceProcessing rewinds a claim to simulate a crash between claim and commit.
func (m *memEventRepo) forceProcessing(gatewayPaymentID string, age time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.store[gatewayPaymentID]; ok {
		ev.Status = model.EventProcessing
		ev.Outcome = ""
		ev.ProcessedAt = nil
		ev.CreatedAt = time.Now().Add(-age)
	}
}

// memTxManager mirrors the Postgres manager's commit/rollback contract:
// transactions run serially, and a failing callback restores the repos to
// their pre-transaction state.
type memTxManager struct {
	mu       sync.Mutex
	accounts *memAccountRepo
	events   *memEventRepo
}

func (m *memTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, qx any) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	accSnap := m.accounts.snapshot()
	evSnap := m.events.snapshot()
	if err := fn(ctx, nil); err != nil {
		m.accounts.restore(accSnap)
		m.events.restore(evSnap)
		return err
	}
	return nil
}

// fakeGateway serves canned payments and can simulate transport failures.
type fakeGateway struct {
	mu       sync.Mutex
	payments map[string]*model.GatewayPayment
	err      error
	calls    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: make(map[string]*model.GatewayPayment)}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) FetchPayment(ctx context.Context, paymentID string) (*model.GatewayPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// memLocker is a SetNX-style in-process lock.
type memLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrAlreadyExists
	}
	token := key + "-token"
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}
