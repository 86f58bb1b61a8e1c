//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/adapter"
	"practice-payments/internal/domain/ports/repository"
)

// memPlanRepo is a small in-memory implementation used by unit tests.
type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{store: make(map[string]*model.Plan)}
}

func (m *memPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) ListActive(ctx context.Context, tx repository.Tx, tenantID string) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Plan
	for _, p := range m.store {
		if p.TenantID == tenantID && p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memCouponRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Coupon // keyed tenantID+"/"+code
}

func newMemCouponRepo() *memCouponRepo {
	return &memCouponRepo{store: make(map[string]*model.Coupon)}
}

func (m *memCouponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.TenantID+"/"+c.Code] = &cp
	return nil
}

func (m *memCouponRepo) FindByCode(ctx context.Context, tx repository.Tx, tenantID, code string) (*model.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[tenantID+"/"+code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type memInvoiceRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.Invoice
	payments map[string][]*model.InvoicePayment // invoiceID -> rows

	AddPaymentErr error
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{
		store:    make(map[string]*model.Invoice),
		payments: make(map[string][]*model.InvoicePayment),
	}
}

func (m *memInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.store[inv.ID] = &cp
	return nil
}

func (m *memInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoiceRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (m *memInvoiceRepo) AddPayment(ctx context.Context, tx repository.Tx, p *model.InvoicePayment) error {
	if m.AddPaymentErr != nil {
		return m.AddPaymentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.InvoiceID] = append(m.payments[p.InvoiceID], &cp)
	return nil
}

func (m *memInvoiceRepo) SumPayments(ctx context.Context, tx repository.Tx, invoiceID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, p := range m.payments[invoiceID] {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

type memUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) ActivatePlan(ctx context.Context, tx repository.Tx, userID, planID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return domain.ErrNotFound
	}
	pid := planID
	exp := expiresAt
	u.PlanID = &pid
	u.PlanExpiresAt = &exp
	return nil
}

type memAttemptRepo struct {
	mu    sync.RWMutex
	store map[string]*model.PendingAttempt // by ID

	SaveFunc func(ctx context.Context, tx repository.Tx, a *model.PendingAttempt) error
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{store: make(map[string]*model.PendingAttempt)}
}

func (m *memAttemptRepo) Save(ctx context.Context, tx repository.Tx, a *model.PendingAttempt) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, tx, a); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memAttemptRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.PendingAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.store {
		if a.Reference == reference {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAttemptRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.AttemptStatus, externalTxnID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	if externalTxnID != nil {
		ext := *externalTxnID
		a.ExternalTxnID = &ext
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (m *memAttemptRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PendingAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PendingAttempt
	for _, a := range m.store {
		if a.Status == model.AttemptStatusPending && a.CreatedAt.Before(olderThan) {
			cp := *a
			out = append(out, &cp)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memAttemptRepo) ExpirePendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.store {
		if a.Status == model.AttemptStatusPending && a.CreatedAt.Before(olderThan) {
			a.Status = model.AttemptStatusExpired
			n++
		}
	}
	return n, nil
}

// memSettlementRepo enforces the (vendor_name, external_txn_id) unique key
// exactly like the Postgres index does.
type memSettlementRepo struct {
	mu    sync.RWMutex
	store map[string]*model.SettlementRecord // keyed vendor+"/"+externalTxnID

	InsertErr error
}

func newMemSettlementRepo() *memSettlementRepo {
	return &memSettlementRepo{store: make(map[string]*model.SettlementRecord)}
}

func (m *memSettlementRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.SettlementRecord) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.VendorName + "/" + rec.ExternalTxnID
	if _, exists := m.store[key]; exists {
		return domain.ErrDuplicateSettlement
	}
	cp := *rec
	m.store[key] = &cp
	return nil
}

func (m *memSettlementRepo) FindByExternalTxnID(ctx context.Context, tx repository.Tx, vendorName, externalTxnID string) (*model.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.store[vendorName+"/"+externalTxnID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memSettlementRepo) ListFlagged(ctx context.Context, tx repository.Tx, tenantID string, limit int) ([]*model.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SettlementRecord
	for _, rec := range m.store {
		if rec.TenantID == tenantID && (rec.AmountFlagged || rec.AmountInferred) {
			cp := *rec
			out = append(out, &cp)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memSettlementRepo) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

type memSettingsRepo struct {
	mu    sync.RWMutex
	store map[string]*model.GatewaySettings // keyed tenantID+"/"+vendor
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{store: make(map[string]*model.GatewaySettings)}
}

func (m *memSettingsRepo) Save(ctx context.Context, tx repository.Tx, s *model.GatewaySettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.TenantID+"/"+s.VendorName] = &cp
	return nil
}

func (m *memSettingsRepo) Find(ctx context.Context, tx repository.Tx, tenantID, vendorName string) (*model.GatewaySettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[tenantID+"/"+vendorName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately with NoTX by default. Tests that need
// to observe rollback behavior assign WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", errors.New("locked")
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// ---- Mock gateway adapter / registry ----

type MockAdapter struct {
	VendorName   string
	InitiateFunc func(ctx context.Context, tenant model.TenantContext, req model.ChargeRequest, reference, returnURL, webhookURL string) (*adapter.InitiateResult, error)
	ParseFunc    func(ctx context.Context, tenant model.TenantContext, r *http.Request) (*model.NormalizedResult, error)
	QueryFunc    func(ctx context.Context, tenant model.TenantContext, reference, externalTxnID string) (*model.NormalizedResult, error)
}

var _ adapter.GatewayAdapter = (*MockAdapter)(nil)

func (a *MockAdapter) Name() string { return a.VendorName }

func (a *MockAdapter) Initiate(ctx context.Context, tenant model.TenantContext, req model.ChargeRequest, reference, returnURL, webhookURL string) (*adapter.InitiateResult, error) {
	if a.InitiateFunc != nil {
		return a.InitiateFunc(ctx, tenant, req, reference, returnURL, webhookURL)
	}
	return &adapter.InitiateResult{RedirectURL: "https://vendor.example/pay", Reference: reference}, nil
}

func (a *MockAdapter) ParseCallback(ctx context.Context, tenant model.TenantContext, r *http.Request) (*model.NormalizedResult, error) {
	if a.ParseFunc != nil {
		return a.ParseFunc(ctx, tenant, r)
	}
	return nil, domain.ErrGatewayRequest
}

// MockQuerierAdapter additionally implements the status-query capability.
type MockQuerierAdapter struct {
	MockAdapter
}

var _ adapter.StatusQuerier = (*MockQuerierAdapter)(nil)

func (a *MockQuerierAdapter) QueryStatus(ctx context.Context, tenant model.TenantContext, reference, externalTxnID string) (*model.NormalizedResult, error) {
	if a.QueryFunc != nil {
		return a.QueryFunc(ctx, tenant, reference, externalTxnID)
	}
	return nil, domain.ErrGatewayUnavailable
}

type MockRegistry struct {
	adapters map[string]adapter.GatewayAdapter
}

func NewMockRegistry(adapters ...adapter.GatewayAdapter) *MockRegistry {
	items := make(map[string]adapter.GatewayAdapter, len(adapters))
	for _, a := range adapters {
		items[a.Name()] = a
	}
	return &MockRegistry{adapters: items}
}

func (r *MockRegistry) Resolve(vendorName string) (adapter.GatewayAdapter, error) {
	a, ok := r.adapters[vendorName]
	if !ok {
		return nil, domain.ErrUnknownGateway
	}
	return a, nil
}

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
