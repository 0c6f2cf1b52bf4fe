package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/booking"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/store"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/transaction"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockBookingRepository implements booking.Repository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) ListByStore(ctx context.Context, orgName, storeName string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, orgName, storeName, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

// MockSlotRepository implements slot.Repository
type MockSlotRepository struct {
	mock.Mock
}

func (m *MockSlotRepository) EnsureExist(ctx context.Context, tx transaction.Tx, orgName, storeName string, starts []time.Time, slotMinutes int) error {
	args := m.Called(ctx, tx, orgName, storeName, starts, slotMinutes)
	return args.Error(0)
}

func (m *MockSlotRepository) LockAndRead(ctx context.Context, tx transaction.Tx, orgName, storeName string, starts []time.Time, slotMinutes int) ([]*slot.Reservation, error) {
	args := m.Called(ctx, tx, orgName, storeName, starts, slotMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*slot.Reservation), args.Error(1)
}

func (m *MockSlotRepository) Adjust(ctx context.Context, tx transaction.Tx, slotReservationID string, delta int, bookingID, note string) error {
	args := m.Called(ctx, tx, slotReservationID, delta, bookingID, note)
	return args.Error(0)
}

func (m *MockSlotRepository) ListRange(ctx context.Context, orgName, storeName string, from, to time.Time, slotMinutes int) ([]*slot.Reservation, error) {
	args := m.Called(ctx, orgName, storeName, from, to, slotMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*slot.Reservation), args.Error(1)
}

func (m *MockSlotRepository) FindDrift(ctx context.Context) ([]*slot.Drift, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*slot.Drift), args.Error(1)
}

// MockLocker implements slot.Locker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireOrdered(ctx context.Context, tx transaction.Tx, keys []string) error {
	args := m.Called(ctx, tx, keys)
	return args.Error(0)
}

// MockStoreRepository implements store.Repository
type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) GetByName(ctx context.Context, orgName, storeName string) (*store.Store, error) {
	args := m.Called(ctx, orgName, storeName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

// MockAvailabilityCache implements AvailabilityCache
type MockAvailabilityCache struct {
	mock.Mock
}

func (m *MockAvailabilityCache) GetDay(ctx context.Context, orgName, storeName string, date slot.Date) ([]*slot.Reservation, int64, error) {
	args := m.Called(ctx, orgName, storeName, date)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*slot.Reservation), args.Get(1).(int64), args.Error(2)
}

func (m *MockAvailabilityCache) SetDay(ctx context.Context, orgName, storeName string, date slot.Date, generation int64, rows []*slot.Reservation) error {
	args := m.Called(ctx, orgName, storeName, date, generation, rows)
	return args.Error(0)
}

func (m *MockAvailabilityCache) InvalidateDays(ctx context.Context, orgName, storeName string, dates []slot.Date) error {
	args := m.Called(ctx, orgName, storeName, dates)
	return args.Error(0)
}

// MockEventPublisher implements EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, ev *booking.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
