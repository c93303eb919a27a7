package consult

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ajuntament-olot/pla-usos/internal/model"
	"github.com/ajuntament-olot/pla-usos/internal/proximity"
	"github.com/ajuntament-olot/pla-usos/internal/store"
)

// --- Catalog mock ---

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ResolveAddress(ctx context.Context, domCode string) (*model.Address, error) {
	args := m.Called(ctx, domCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

func (m *mockCatalog) ResolveCondition(ctx context.Context, addr *model.Address, headingID int64) (*model.ConditionRule, error) {
	args := m.Called(ctx, addr, headingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConditionRule), args.Error(1)
}

func (m *mockCatalog) Heading(ctx context.Context, id int64) (*model.ActivityHeading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ActivityHeading), args.Error(1)
}

func (m *mockCatalog) ListHeadings(ctx context.Context) ([]model.ActivityHeading, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityHeading), args.Error(1)
}

func (m *mockCatalog) ListZones(ctx context.Context) ([]model.Zone, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Zone), args.Error(1)
}

func (m *mockCatalog) ActivityConditions(ctx context.Context, domCode string) ([]model.ActivityCondition, error) {
	args := m.Called(ctx, domCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityCondition), args.Error(1)
}

func (m *mockCatalog) SearchAddresses(ctx context.Context, query string, limit int) ([]model.Address, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Address), args.Error(1)
}

// --- Proximity mock ---

type mockProvider struct {
	mock.Mock
	degraded bool
}

func (m *mockProvider) CountNearby(ctx context.Context, q proximity.Query) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

func (m *mockProvider) Degraded() bool { return m.degraded }

// --- Map client mock ---

type mockMapClient struct {
	mock.Mock
}

func (m *mockMapClient) Fetch(ctx context.Context, x, y, radiusMeters float64) ([]byte, error) {
	args := m.Called(ctx, x, y, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// --- Store mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertConsultation(ctx context.Context, c model.Consultation) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

func (m *mockStore) GetConsultation(ctx context.Context, id string) (*model.Consultation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consultation), args.Error(1)
}

func (m *mockStore) ListConsultations(ctx context.Context, f store.Filter) ([]model.Consultation, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Consultation), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Notifier mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyReviewBoard(ctx context.Context, c model.Consultation) error {
	return m.Called(ctx, c).Error(0)
}
