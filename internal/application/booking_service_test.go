package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/booking"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/store"
)

type testDeps struct {
	txManager   *MockTxManager
	tx          *MockTx
	bookingRepo *MockBookingRepository
	slotRepo    *MockSlotRepository
	locker      *MockLocker
	storeRepo   *MockStoreRepository
	cache       *MockAvailabilityCache
	publisher   *MockEventPublisher
	service     *BookingService
}

func newTestDeps() *testDeps {
	d := &testDeps{
		txManager:   new(MockTxManager),
		tx:          new(MockTx),
		bookingRepo: new(MockBookingRepository),
		slotRepo:    new(MockSlotRepository),
		locker:      new(MockLocker),
		storeRepo:   new(MockStoreRepository),
		cache:       new(MockAvailabilityCache),
		publisher:   new(MockEventPublisher),
	}
	d.service = NewBookingService(d.txManager, d.bookingRepo, d.slotRepo, d.locker, d.storeRepo, d.cache, d.publisher, nil)
	return d
}

// expectTx はトランザクションの開始とロールバック（defer）を設定する
func (d *testDeps) expectTx(ctx context.Context) {
	d.txManager.On("Begin", ctx).Return(d.tx, nil)
	d.tx.On("Rollback").Return(nil)
}

func at(h, m int) time.Time {
	return time.Date(2025, 9, 1, h, m, 0, 0, time.UTC)
}

var monday = slot.Date{Year: 2025, Month: time.September, Day: 1}

func testStore() *store.Store {
	return &store.Store{
		ID: "store-1", OrgName: "acme", StoreName: "downtown", Timezone: "UTC",
		Hours:          store.Hours{"monday": {"17:00", "22:00"}},
		DineInCapacity: 10, SlotDurationMinutes: 30, IsActive: true,
	}
}

func slotRow(id string, start time.Time, reserved int) *slot.Reservation {
	return &slot.Reservation{ID: id, OrgName: "acme", StoreName: "downtown", SlotStart: start, SlotMinutes: 30, ReservedCount: reserved}
}

func createInput(guests int) CreateBookingInput {
	return CreateBookingInput{
		OrgName: "acme", StoreName: "downtown",
		CustomerName: "山田太郎", CustomerPhoneNumber: "09012345678",
		GuestsCount: guests,
		StartTime:   at(19, 10), EndTime: at(20, 10),
		CreatedBy: "staff-1",
	}
}

func existingBooking(status booking.Status) *booking.Booking {
	return &booking.Booking{
		ID: "booking-1", OrgName: "acme", StoreName: "downtown",
		CustomerName: "山田太郎", CustomerPhoneNumber: "09012345678",
		GuestsCount: 4, StartTime: at(19, 0), EndTime: at(20, 0),
		Status: status, CreatedBy: "staff-1", UpdatedBy: "staff-1",
	}
}

func eventOf(t booking.EventType) interface{} {
	return mock.MatchedBy(func(ev *booking.Event) bool { return ev.Type == t && ev.BookingID == "booking-1" })
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()
	slots := []time.Time{at(19, 0), at(19, 30), at(20, 0)}

	deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(testStore(), nil)
	deps.expectTx(ctx)
	deps.tx.On("Commit").Return(nil)
	deps.locker.On("AcquireOrdered", ctx, deps.tx, slot.LockKeys("acme", "downtown", slots)).Return(nil)
	// 営業時間 17:00-22:00 の全10枠を作成する
	deps.slotRepo.On("EnsureExist", ctx, deps.tx, "acme", "downtown", mock.MatchedBy(func(s []time.Time) bool {
		return len(s) == 10 && s[0].Equal(at(17, 0)) && slot.Contains(s, at(20, 0))
	}), 30).Return(nil)
	deps.slotRepo.On("LockAndRead", ctx, deps.tx, "acme", "downtown", slots, 30).Return([]*slot.Reservation{
		slotRow("slot-1", at(19, 0), 0),
		slotRow("slot-2", at(19, 30), 4),
		slotRow("slot-3", at(20, 0), 6),
	}, nil)
	deps.bookingRepo.On("Create", ctx, deps.tx, mock.AnythingOfType("*booking.Booking")).
		Run(func(args mock.Arguments) { args.Get(2).(*booking.Booking).ID = "booking-1" }).
		Return(nil)
	for _, id := range []string{"slot-1", "slot-2", "slot-3"} {
		deps.slotRepo.On("Adjust", ctx, deps.tx, id, 4, "booking-1", slot.NoteCreate).Return(nil)
	}
	deps.cache.On("InvalidateDays", ctx, "acme", "downtown", []slot.Date{monday}).Return(nil)
	deps.publisher.On("Publish", ctx, eventOf(booking.EventCreated)).Return(nil)

	result, err := deps.service.CreateBooking(ctx, createInput(4))

	require.NoError(t, err)
	assert.Equal(t, "booking-1", result.ID)
	assert.Equal(t, booking.StatusBooked, result.Status)
	assert.Equal(t, at(19, 10), result.StartTime)
	deps.slotRepo.AssertNumberOfCalls(t, "Adjust", 3)
	deps.tx.AssertCalled(t, "Commit")
	deps.cache.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestBookingService_CreateBooking_CapacityExceeded(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()

	deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(testStore(), nil)
	deps.expectTx(ctx)
	deps.locker.On("AcquireOrdered", ctx, deps.tx, mock.Anything).Return(nil)
	deps.slotRepo.On("EnsureExist", ctx, deps.tx, "acme", "downtown", mock.Anything, 30).Return(nil)
	deps.slotRepo.On("LockAndRead", ctx, deps.tx, "acme", "downtown", mock.Anything, 30).Return([]*slot.Reservation{
		slotRow("slot-1", at(19, 0), 0),
		slotRow("slot-2", at(19, 30), 6),
		slotRow("slot-3", at(20, 0), 0),
	}, nil)

	_, err := deps.service.CreateBooking(ctx, createInput(6))

	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrCapacityExceeded)
	var ce *booking.CapacityExceededError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, at(19, 30), ce.SlotStart)
	assert.Equal(t, 6, ce.Reserved)
	assert.Equal(t, 6, ce.Requested)
	assert.Equal(t, 10, ce.Capacity)

	// 書き込みは一切行わずロールバックする
	deps.bookingRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	deps.slotRepo.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	deps.tx.AssertNotCalled(t, "Commit")
	deps.tx.AssertCalled(t, "Rollback")
	deps.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestBookingService_CreateBooking_RejectedBeforeLock(t *testing.T) {
	tests := []struct {
		name    string
		input   func() CreateBookingInput
		store   *store.Store
		repoErr error
		wantErr error
	}{
		{
			name:    "終了が開始以前",
			input:   func() CreateBookingInput { in := createInput(4); in.EndTime = in.StartTime; return in },
			wantErr: booking.ErrInvalidTimeRange,
		},
		{
			name:    "人数0",
			input:   func() CreateBookingInput { return createInput(0) },
			wantErr: booking.ErrGuestsCountInvalid,
		},
		{
			name:    "操作者未指定",
			input:   func() CreateBookingInput { in := createInput(4); in.CreatedBy = ""; return in },
			wantErr: booking.ErrActorInvalid,
		},
		{
			name:    "店舗が存在しない",
			input:   func() CreateBookingInput { return createInput(4) },
			repoErr: store.ErrStoreNotFound,
			wantErr: store.ErrStoreNotFound,
		},
		{
			name:    "容量未設定",
			input:   func() CreateBookingInput { return createInput(4) },
			store:   func() *store.Store { s := testStore(); s.DineInCapacity = 0; return s }(),
			wantErr: store.ErrInvalidConfiguration,
		},
		{
			name:    "枠幅未設定",
			input:   func() CreateBookingInput { return createInput(4) },
			store:   func() *store.Store { s := testStore(); s.SlotDurationMinutes = 0; return s }(),
			wantErr: store.ErrInvalidConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			ctx := context.Background()
			if tt.repoErr != nil {
				deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(nil, tt.repoErr)
			} else if tt.store != nil {
				deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(tt.store, nil)
			}

			_, err := deps.service.CreateBooking(ctx, tt.input())

			assert.ErrorIs(t, err, tt.wantErr)
			deps.txManager.AssertNotCalled(t, "Begin", mock.Anything)
			deps.locker.AssertNotCalled(t, "AcquireOrdered", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestBookingService_CreateBooking_SideEffectFailuresIgnored(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()

	deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(testStore(), nil)
	deps.expectTx(ctx)
	deps.tx.On("Commit").Return(nil)
	deps.locker.On("AcquireOrdered", ctx, deps.tx, mock.Anything).Return(nil)
	deps.slotRepo.On("EnsureExist", ctx, deps.tx, "acme", "downtown", mock.Anything, 30).Return(nil)
	deps.slotRepo.On("LockAndRead", ctx, deps.tx, "acme", "downtown", mock.Anything, 30).Return([]*slot.Reservation{
		slotRow("slot-1", at(19, 0), 0),
	}, nil)
	deps.bookingRepo.On("Create", ctx, deps.tx, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(2).(*booking.Booking).ID = "booking-1" }).
		Return(nil)
	deps.slotRepo.On("Adjust", ctx, deps.tx, "slot-1", 2, "booking-1", slot.NoteCreate).Return(nil)
	deps.cache.On("InvalidateDays", ctx, "acme", "downtown", mock.Anything).Return(errors.New("redis down"))
	deps.publisher.On("Publish", ctx, mock.Anything).Return(errors.New("broker down"))

	result, err := deps.service.CreateBooking(ctx, createInput(2))

	require.NoError(t, err)
	assert.Equal(t, "booking-1", result.ID)
}

func TestBookingService_CreateBooking_CommitFailure(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()

	deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(testStore(), nil)
	deps.expectTx(ctx)
	deps.tx.On("Commit").Return(errors.New("connection reset"))
	deps.locker.On("AcquireOrdered", ctx, deps.tx, mock.Anything).Return(nil)
	deps.slotRepo.On("EnsureExist", ctx, deps.tx, "acme", "downtown", mock.Anything, 30).Return(nil)
	deps.slotRepo.On("LockAndRead", ctx, deps.tx, "acme", "downtown", mock.Anything, 30).Return([]*slot.Reservation{
		slotRow("slot-1", at(19, 0), 0),
	}, nil)
	deps.bookingRepo.On("Create", ctx, deps.tx, mock.Anything).Return(nil)
	deps.slotRepo.On("Adjust", ctx, deps.tx, "slot-1", 2, mock.Anything, slot.NoteCreate).Return(nil)

	_, err := deps.service.CreateBooking(ctx, createInput(2))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "コミットに失敗")
	deps.cache.AssertNotCalled(t, "InvalidateDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	deps.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestBookingService_UpdateBooking_MovesTimeRange(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()
	union := []time.Time{at(19, 0), at(19, 30), at(20, 0)}

	deps.expectTx(ctx)
	deps.tx.On("Commit").Return(nil)
	deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "booking-1").Return(existingBooking(booking.StatusBooked), nil)
	deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(testStore(), nil)
	// 旧枠と新枠の和集合を1回でロックする
	deps.locker.On("AcquireOrdered", ctx, deps.tx, slot.LockKeys("acme", "downtown", union)).Return(nil)
	deps.slotRepo.On("EnsureExist", ctx, deps.tx, "acme", "downtown", union, 30).Return(nil)
	deps.slotRepo.On("LockAndRead", ctx, deps.tx, "acme", "downtown", union, 30).Return([]*slot.Reservation{
		slotRow("slot-1", at(19, 0), 4),
		slotRow("slot-2", at(19, 30), 8),
		slotRow("slot-3", at(20, 0), 0),
	}, nil)
	deps.slotRepo.On("Adjust", ctx, deps.tx, "slot-1", -4, "booking-1", slot.NoteUpdate).Return(nil)
	deps.slotRepo.On("Adjust", ctx, deps.tx, "slot-2", 2, "booking-1", slot.NoteUpdate).Return(nil)
	deps.slotRepo.On("Adjust", ctx, deps.tx, "slot-3", 6, "booking-1", slot.NoteUpdate).Return(nil)
	deps.bookingRepo.On("Update", ctx, deps.tx, mock.MatchedBy(func(b *booking.Booking) bool {
		return b.GuestsCount == 6 && b.StartTime.Equal(at(19, 30)) && b.UpdatedBy == "staff-2"
	})).Return(nil)
	deps.cache.On("InvalidateDays", ctx, "acme", "downtown", []slot.Date{monday}).Return(nil)
	deps.publisher.On("Publish", ctx, eventOf(booking.EventUpdated)).Return(nil)

	guests := 6
	start, end := at(19, 30), at(20, 30)
	result, err := deps.service.UpdateBooking(ctx, UpdateBookingInput{
		ID: "booking-1", GuestsCount: &guests, StartTime: &start, EndTime: &end, UpdatedBy: "staff-2",
	})

	require.NoError(t, err)
	assert.Equal(t, 6, result.GuestsCount)
	assert.Equal(t, "山田太郎", result.CustomerName, "未指定のフィールドは維持する")
	deps.slotRepo.AssertNumberOfCalls(t, "Adjust", 3)
	deps.tx.AssertCalled(t, "Commit")
}

func TestBookingService_UpdateBooking_NoSlotChange(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()
	slots := []time.Time{at(19, 0), at(19, 30)}

	deps.expectTx(ctx)
	deps.tx.On("Commit").Return(nil)
	deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "booking-1").Return(existingBooking(booking.StatusBooked), nil)
	deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(testStore(), nil)
	deps.locker.On("AcquireOrdered", ctx, deps.tx, slot.LockKeys("acme", "downtown", slots)).Return(nil)
	deps.slotRepo.On("EnsureExist", ctx, deps.tx, "acme", "downtown", slots, 30).Return(nil)
	deps.slotRepo.On("LockAndRead", ctx, deps.tx, "acme", "downtown", slots, 30).Return([]*slot.Reservation{
		slotRow("slot-1", at(19, 0), 10),
		slotRow("slot-2", at(19, 30), 10),
	}, nil)
	deps.bookingRepo.On("Update", ctx, deps.tx, mock.Anything).Return(nil)
	deps.cache.On("InvalidateDays", ctx, "acme", "downtown", mock.Anything).Return(nil)
	deps.publisher.On("Publish", ctx, mock.Anything).Return(nil)

	notes := "誕生日"
	result, err := deps.service.UpdateBooking(ctx, UpdateBookingInput{ID: "booking-1", Notes: &notes, UpdatedBy: "staff-2"})

	require.NoError(t, err)
	assert.Equal(t, "誕生日", result.Notes)
	// 満席でも差分0なら受け付け、履歴も追加しない
	deps.slotRepo.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_UpdateBooking_CapacityExceeded(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()

	deps.expectTx(ctx)
	deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "booking-1").Return(existingBooking(booking.StatusBooked), nil)
	deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(testStore(), nil)
	deps.locker.On("AcquireOrdered", ctx, deps.tx, mock.Anything).Return(nil)
	deps.slotRepo.On("EnsureExist", ctx, deps.tx, "acme", "downtown", mock.Anything, 30).Return(nil)
	deps.slotRepo.On("LockAndRead", ctx, deps.tx, "acme", "downtown", mock.Anything, 30).Return([]*slot.Reservation{
		slotRow("slot-1", at(19, 0), 4),
		slotRow("slot-2", at(19, 30), 9),
	}, nil)

	guests := 7
	_, err := deps.service.UpdateBooking(ctx, UpdateBookingInput{ID: "booking-1", GuestsCount: &guests, UpdatedBy: "staff-2"})

	var ce *booking.CapacityExceededError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, at(19, 30), ce.SlotStart)
	assert.Equal(t, 9, ce.Reserved)
	assert.Equal(t, 3, ce.Requested)
	deps.slotRepo.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	deps.bookingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	deps.tx.AssertNotCalled(t, "Commit")
}

func TestBookingService_UpdateBooking_Rejected(t *testing.T) {
	t.Run("予約中以外は更新不可", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()
		deps.expectTx(ctx)
		deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "booking-1").Return(existingBooking(booking.StatusSeated), nil)

		guests := 2
		_, err := deps.service.UpdateBooking(ctx, UpdateBookingInput{ID: "booking-1", GuestsCount: &guests, UpdatedBy: "staff-2"})

		assert.ErrorIs(t, err, booking.ErrInvalidStatusTransition)
		deps.locker.AssertNotCalled(t, "AcquireOrdered", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("存在しない予約", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()
		deps.expectTx(ctx)
		deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "missing").Return(nil, booking.ErrBookingNotFound)

		_, err := deps.service.UpdateBooking(ctx, UpdateBookingInput{ID: "missing", UpdatedBy: "staff-2"})
		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})

	t.Run("時間帯が逆転する変更", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()
		deps.expectTx(ctx)
		deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "booking-1").Return(existingBooking(booking.StatusBooked), nil)

		end := at(18, 0)
		_, err := deps.service.UpdateBooking(ctx, UpdateBookingInput{ID: "booking-1", EndTime: &end, UpdatedBy: "staff-2"})
		assert.ErrorIs(t, err, booking.ErrInvalidTimeRange)
		deps.locker.AssertNotCalled(t, "AcquireOrdered", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBookingService_CancelBooking(t *testing.T) {
	t.Run("全枠から人数を減算してキャンセルする", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()
		slots := []time.Time{at(19, 0), at(19, 30)}

		deps.expectTx(ctx)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "booking-1").Return(existingBooking(booking.StatusBooked), nil)
		deps.storeRepo.On("GetByName", ctx, "acme", "downtown").Return(testStore(), nil)
		deps.locker.On("AcquireOrdered", ctx, deps.tx, slot.LockKeys("acme", "downtown", slots)).Return(nil)
		deps.slotRepo.On("EnsureExist", ctx, deps.tx, "acme", "downtown", slots, 30).Return(nil)
		deps.slotRepo.On("LockAndRead", ctx, deps.tx, "acme", "downtown", slots, 30).Return([]*slot.Reservation{
			slotRow("slot-1", at(19, 0), 4),
			slotRow("slot-2", at(19, 30), 2),
		}, nil)
		deps.slotRepo.On("Adjust", ctx, deps.tx, "slot-1", -4, "booking-1", slot.NoteCancel).Return(nil)
		deps.slotRepo.On("Adjust", ctx, deps.tx, "slot-2", -4, "booking-1", slot.NoteCancel).Return(nil)
		deps.bookingRepo.On("Update", ctx, deps.tx, mock.MatchedBy(func(b *booking.Booking) bool {
			return b.Status == booking.StatusCancelled && b.UpdatedBy == "staff-2"
		})).Return(nil)
		deps.cache.On("InvalidateDays", ctx, "acme", "downtown", []slot.Date{monday}).Return(nil)
		deps.publisher.On("Publish", ctx, eventOf(booking.EventCancelled)).Return(nil)

		result, err := deps.service.CancelBooking(ctx, "booking-1", "staff-2")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, result.Status)
		deps.slotRepo.AssertNumberOfCalls(t, "Adjust", 2)
	})

	t.Run("キャンセル済みは再キャンセル不可", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()
		deps.expectTx(ctx)
		deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "booking-1").Return(existingBooking(booking.StatusCancelled), nil)

		_, err := deps.service.CancelBooking(ctx, "booking-1", "staff-2")

		assert.ErrorIs(t, err, booking.ErrInvalidStatusTransition)
		deps.slotRepo.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("存在しない予約", func(t *testing.T) {
		deps := newTestDeps()
		ctx := context.Background()
		deps.expectTx(ctx)
		deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "missing").Return(nil, booking.ErrBookingNotFound)

		_, err := deps.service.CancelBooking(ctx, "missing", "staff-2")
		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})
}

func TestBookingService_StatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    booking.Status
		call    func(s *BookingService, ctx context.Context) (*booking.Booking, error)
		want    booking.Status
		event   booking.EventType
		wantErr error
	}{
		{
			name: "着席", from: booking.StatusBooked,
			call: func(s *BookingService, ctx context.Context) (*booking.Booking, error) {
				return s.SeatBooking(ctx, "booking-1", "host-1")
			},
			want: booking.StatusSeated, event: booking.EventSeated,
		},
		{
			name: "完了", from: booking.StatusSeated,
			call: func(s *BookingService, ctx context.Context) (*booking.Booking, error) {
				return s.CompleteBooking(ctx, "booking-1", "host-1")
			},
			want: booking.StatusCompleted, event: booking.EventCompleted,
		},
		{
			name: "未着席の完了は不可", from: booking.StatusBooked,
			call: func(s *BookingService, ctx context.Context) (*booking.Booking, error) {
				return s.CompleteBooking(ctx, "booking-1", "host-1")
			},
			wantErr: booking.ErrInvalidStatusTransition,
		},
		{
			name: "キャンセル済みの着席は不可", from: booking.StatusCancelled,
			call: func(s *BookingService, ctx context.Context) (*booking.Booking, error) {
				return s.SeatBooking(ctx, "booking-1", "host-1")
			},
			wantErr: booking.ErrInvalidStatusTransition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			ctx := context.Background()
			deps.expectTx(ctx)
			deps.bookingRepo.On("GetForUpdate", ctx, deps.tx, "booking-1").Return(existingBooking(tt.from), nil)
			if tt.wantErr == nil {
				deps.tx.On("Commit").Return(nil)
				deps.bookingRepo.On("Update", ctx, deps.tx, mock.Anything).Return(nil)
				deps.publisher.On("Publish", ctx, eventOf(tt.event)).Return(nil)
			}

			result, err := tt.call(deps.service, ctx)

			// 状態遷移は枠に触れない
			deps.locker.AssertNotCalled(t, "AcquireOrdered", mock.Anything, mock.Anything, mock.Anything)
			deps.slotRepo.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			deps.cache.AssertNotCalled(t, "InvalidateDays", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				deps.tx.AssertNotCalled(t, "Commit")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Status)
			assert.Equal(t, "host-1", result.UpdatedBy)
			deps.publisher.AssertExpectations(t)
		})
	}
}

func TestBookingService_ListBookings(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		offset    int
		wantLimit int
		wantOff   int
	}{
		{name: "既定の件数", limit: 0, offset: 0, wantLimit: defaultListLimit, wantOff: 0},
		{name: "上限で切り詰める", limit: 500, offset: 10, wantLimit: maxListLimit, wantOff: 10},
		{name: "負のオフセットは0", limit: 5, offset: -1, wantLimit: 5, wantOff: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			ctx := context.Background()
			deps.bookingRepo.On("ListByStore", ctx, "acme", "downtown", tt.wantLimit, tt.wantOff).
				Return([]*booking.Booking{existingBooking(booking.StatusBooked)}, nil)

			got, err := deps.service.ListBookings(ctx, "acme", "downtown", tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}
}

func TestOperationResult(t *testing.T) {
	assert.Equal(t, "success", operationResult(nil))
	assert.Equal(t, "capacity_exceeded", operationResult(&booking.CapacityExceededError{}))
	assert.Equal(t, "not_found", operationResult(booking.ErrBookingNotFound))
	assert.Equal(t, "not_found", operationResult(store.ErrStoreNotFound))
	assert.Equal(t, "invalid_transition", operationResult(booking.ErrInvalidStatusTransition))
	assert.Equal(t, "lock_timeout", operationResult(fmt.Errorf("wrap: %w", slot.ErrLockTimeout)))
	assert.Equal(t, "error", operationResult(errors.New("boom")))
}
