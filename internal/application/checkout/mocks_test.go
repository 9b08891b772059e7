package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/promotion"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shipping"
	"github.com/marketplace/backend/internal/domain/tax"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

// MockStoreRepository is a mock implementation of catalog.StoreRepository
type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Store), args.Error(1)
}

func (m *MockStoreRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Store, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Store), args.Error(1)
}

func (m *MockStoreRepository) Save(ctx context.Context, store *catalog.Store) error {
	return m.Called(ctx, store).Error(0)
}

// MockPromotionRepository is a mock implementation of promotion.Repository
type MockPromotionRepository struct {
	mock.Mock
}

func (m *MockPromotionRepository) FindByID(ctx context.Context, id uuid.UUID) (*promotion.Promotion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) FindActiveByStoreIDs(ctx context.Context, storeIDs []uuid.UUID) ([]promotion.Promotion, error) {
	args := m.Called(ctx, storeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]promotion.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) Save(ctx context.Context, p *promotion.Promotion) error {
	return m.Called(ctx, p).Error(0)
}

// MockTaxRuleRepository is a mock implementation of tax.RuleRepository
type MockTaxRuleRepository struct {
	mock.Mock
}

func (m *MockTaxRuleRepository) FindEnabled(ctx context.Context) ([]tax.Rule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tax.Rule), args.Error(1)
}

func (m *MockTaxRuleRepository) Save(ctx context.Context, rule *tax.Rule) error {
	return m.Called(ctx, rule).Error(0)
}

// MockShippingRuleRepository is a mock implementation of shipping.RuleRepository
type MockShippingRuleRepository struct {
	mock.Mock
}

func (m *MockShippingRuleRepository) FindEnabledForZone(ctx context.Context, zone string) ([]shipping.RateRule, error) {
	args := m.Called(ctx, zone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.RateRule), args.Error(1)
}

func (m *MockShippingRuleRepository) Save(ctx context.Context, rule *shipping.RateRule) error {
	return m.Called(ctx, rule).Error(0)
}

// MockUsageLedger is a mock implementation of promotion.UsageLedger
type MockUsageLedger struct {
	mock.Mock
}

func (m *MockUsageLedger) Snapshot(ctx context.Context, promotionIDs []uuid.UUID, buyerID uuid.UUID) (promotion.UsageSnapshot, error) {
	args := m.Called(ctx, promotionIDs, buyerID)
	return args.Get(0).(promotion.UsageSnapshot), args.Error(1)
}

func (m *MockUsageLedger) Increment(ctx context.Context, claim promotion.UsageClaim) (bool, error) {
	args := m.Called(ctx, claim)
	return args.Bool(0), args.Error(1)
}

// fakeOrderRepository runs the commit closure against a ledger and keeps the result.
// It mimics rollback by discarding the order when the closure fails.
type fakeOrderRepository struct {
	ledger    promotion.UsageLedger
	committed []*order.Order
	commitErr error
}

func (f *fakeOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	for _, o := range f.committed {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeOrderRepository) FindByBuyer(_ context.Context, buyerID uuid.UUID, _ shared.Filter) ([]order.Order, int64, error) {
	var out []order.Order
	for _, o := range f.committed {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepository) Commit(ctx context.Context, build order.CommitFunc) (*order.Order, error) {
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	o, err := build(ctx, f.ledger)
	if err != nil {
		return nil, err
	}
	f.committed = append(f.committed, o)
	return o, nil
}

// memoryKeyStore is a minimal shared.IdempotencyStore for service tests
type memoryKeyStore struct {
	records map[string]*shared.IdempotencyRecord
}

func newMemoryKeyStore() *memoryKeyStore {
	return &memoryKeyStore{records: make(map[string]*shared.IdempotencyRecord)}
}

func (s *memoryKeyStore) Reserve(_ context.Context, key string, _ time.Duration) (bool, *shared.IdempotencyRecord, error) {
	if rec, ok := s.records[key]; ok {
		return false, rec, nil
	}
	s.records[key] = &shared.IdempotencyRecord{State: shared.IdempotencyPending}
	return true, nil, nil
}

func (s *memoryKeyStore) Complete(_ context.Context, key, resourceID string, _ time.Duration) error {
	s.records[key] = &shared.IdempotencyRecord{State: shared.IdempotencyCompleted, ResourceID: resourceID}
	return nil
}

func (s *memoryKeyStore) Release(_ context.Context, key string) error {
	delete(s.records, key)
	return nil
}

func (s *memoryKeyStore) Close() error { return nil }
