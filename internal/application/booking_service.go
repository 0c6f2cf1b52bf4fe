package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/booking"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/store"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-restaurant-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-restaurant-booking/internal/pkg/metrics"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// AvailabilityCache は日付ごとの枠予約行のキャッシュ
type AvailabilityCache interface {
	// GetDay は行と現在の世代を返す。ミス時も世代は有効
	GetDay(ctx context.Context, orgName, storeName string, date slot.Date) ([]*slot.Reservation, int64, error)
	// SetDay は GetDay で得た世代つきで保存する。以後に無効化された値は読まれない
	SetDay(ctx context.Context, orgName, storeName string, date slot.Date, generation int64, rows []*slot.Reservation) error
	InvalidateDays(ctx context.Context, orgName, storeName string, dates []slot.Date) error
}

// EventPublisher は予約イベントの発行先
type EventPublisher interface {
	Publish(ctx context.Context, ev *booking.Event) error
}

// BookingService は予約の作成・変更・キャンセルと状態遷移を扱う
// 枠予約数の変更はすべて1トランザクション内で、枠ロックを昇順に取得してから行う
type BookingService struct {
	txManager   transaction.Manager
	bookingRepo booking.Repository
	slotRepo    slot.Repository
	locker      slot.Locker
	storeRepo   store.Repository
	cache       AvailabilityCache
	publisher   EventPublisher
	metrics     *metrics.Metrics
}

// NewBookingService は BookingService を作成する（cache, publisher, m は nil 可）
func NewBookingService(
	txm transaction.Manager,
	br booking.Repository,
	sr slot.Repository,
	locker slot.Locker,
	str store.Repository,
	cache AvailabilityCache,
	publisher EventPublisher,
	m *metrics.Metrics,
) *BookingService {
	return &BookingService{
		txManager:   txm,
		bookingRepo: br,
		slotRepo:    sr,
		locker:      locker,
		storeRepo:   str,
		cache:       cache,
		publisher:   publisher,
		metrics:     m,
	}
}

type CreateBookingInput struct {
	OrgName             string
	StoreName           string
	CustomerName        string
	CustomerPhoneNumber string
	GuestsCount         int
	StartTime           time.Time
	EndTime             time.Time
	Notes               string
	CreatedBy           string
}

// UpdateBookingInput は予約更新の入力
// ポインタのフィールドは nil なら現在値を維持し、非 nil なら置き換える
type UpdateBookingInput struct {
	ID                  string
	CustomerName        *string
	CustomerPhoneNumber *string
	GuestsCount         *int
	StartTime           *time.Time
	EndTime             *time.Time
	Notes               *string
	UpdatedBy           string
}

func (in UpdateBookingInput) patch() booking.UpdatePatch {
	return booking.UpdatePatch{
		CustomerName:        in.CustomerName,
		CustomerPhoneNumber: in.CustomerPhoneNumber,
		GuestsCount:         in.GuestsCount,
		StartTime:           in.StartTime,
		EndTime:             in.EndTime,
		Notes:               in.Notes,
	}
}

// CreateBooking は予約を作成し、掛かる全枠の予約数を加算する
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (result *booking.Booking, err error) {
	defer func() { s.observe("create", err) }()

	if err := booking.ValidateActor(input.CreatedBy); err != nil {
		return nil, err
	}
	b := booking.NewBooking(input.OrgName, input.StoreName, input.CustomerName, input.CustomerPhoneNumber,
		input.GuestsCount, input.StartTime, input.EndTime, input.Notes, input.CreatedBy)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	st, loc, err := resolveStore(ctx, s.storeRepo, b.OrgName, b.StoreName)
	if err != nil {
		return nil, err
	}

	minutes := st.SlotDurationMinutes
	slots := b.Slots(minutes)
	dates := b.Dates(loc)
	// 空き状況で1日分の枠が揃うよう、掛かる日の営業枠もまとめて作成する
	ensure := slots
	for _, d := range dates {
		ensure = slot.Union(ensure, slot.GenerateDaySlots(d, minutes, loc, st.Hours))
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	rows, err := s.lockSlots(ctx, tx, b.OrgName, b.StoreName, slots, ensure, minutes)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.ReservedCount+b.GuestsCount > st.DineInCapacity {
			return nil, s.capacityExceeded(b, r, b.GuestsCount, st.DineInCapacity)
		}
	}

	if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := s.slotRepo.Adjust(ctx, tx, r.ID, b.GuestsCount, b.ID, slot.NoteCreate); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	logger.Info("予約を作成しました", bookingFields(b, zap.Int("guests_count", b.GuestsCount), zap.Int("slots", len(slots)))...)
	s.afterCommit(ctx, b, dates, booking.EventCreated, input.CreatedBy)
	return b, nil
}

// UpdateBooking は予約を更新し、旧枠と新枠の差分を1回のロック取得で反映する
func (s *BookingService) UpdateBooking(ctx context.Context, input UpdateBookingInput) (result *booking.Booking, err error) {
	defer func() { s.observe("update", err) }()

	if err := booking.ValidateActor(input.UpdatedBy); err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	current, err := s.bookingRepo.GetForUpdate(ctx, tx, input.ID)
	if err != nil {
		return nil, err
	}
	next, err := current.ApplyPatch(input.patch(), input.UpdatedBy)
	if err != nil {
		return nil, err
	}
	st, loc, err := resolveStore(ctx, s.storeRepo, current.OrgName, current.StoreName)
	if err != nil {
		return nil, err
	}

	minutes := st.SlotDurationMinutes
	oldSlots := current.Slots(minutes)
	newSlots := next.Slots(minutes)
	union := slot.Union(oldSlots, newSlots)

	rows, err := s.lockSlots(ctx, tx, current.OrgName, current.StoreName, union, union, minutes)
	if err != nil {
		return nil, err
	}

	deltas := make([]int, len(rows))
	for i, r := range rows {
		delta := 0
		if slot.Contains(oldSlots, r.SlotStart) {
			delta -= current.GuestsCount
		}
		if slot.Contains(newSlots, r.SlotStart) {
			delta += next.GuestsCount
		}
		deltas[i] = delta
		// 旧枠のみの枠も含め、和集合の全枠で収容人数を確認する
		if projected := max(0, r.ReservedCount+delta); projected > st.DineInCapacity {
			return nil, s.capacityExceeded(next, r, delta, st.DineInCapacity)
		}
	}

	for i, r := range rows {
		if deltas[i] == 0 {
			continue
		}
		if err := s.slotRepo.Adjust(ctx, tx, r.ID, deltas[i], current.ID, slot.NoteUpdate); err != nil {
			return nil, err
		}
	}
	if err := s.bookingRepo.Update(ctx, tx, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	logger.Info("予約を更新しました", bookingFields(next, zap.Int("guests_count", next.GuestsCount))...)
	dates := unionDates(current.Dates(loc), next.Dates(loc))
	s.afterCommit(ctx, next, dates, booking.EventUpdated, input.UpdatedBy)
	return next, nil
}

// CancelBooking は予約をキャンセルし、掛かる全枠の予約数を減算する
func (s *BookingService) CancelBooking(ctx context.Context, id, cancelledBy string) (result *booking.Booking, err error) {
	defer func() { s.observe("cancel", err) }()

	if err := booking.ValidateActor(cancelledBy); err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	b, err := s.bookingRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := b.Cancel(cancelledBy); err != nil {
		return nil, err
	}
	st, loc, err := resolveStore(ctx, s.storeRepo, b.OrgName, b.StoreName)
	if err != nil {
		return nil, err
	}

	minutes := st.SlotDurationMinutes
	slots := b.Slots(minutes)
	rows, err := s.lockSlots(ctx, tx, b.OrgName, b.StoreName, slots, slots, minutes)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := s.slotRepo.Adjust(ctx, tx, r.ID, -b.GuestsCount, b.ID, slot.NoteCancel); err != nil {
			return nil, err
		}
	}
	if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	logger.Info("予約をキャンセルしました", bookingFields(b, zap.String("cancelled_by", cancelledBy))...)
	s.afterCommit(ctx, b, b.Dates(loc), booking.EventCancelled, cancelledBy)
	return b, nil
}

// SeatBooking は予約を着席済みにする（枠予約数は変更しない）
func (s *BookingService) SeatBooking(ctx context.Context, id, updatedBy string) (result *booking.Booking, err error) {
	defer func() { s.observe("seat", err) }()
	return s.changeStatus(ctx, id, updatedBy, (*booking.Booking).Seat, booking.EventSeated)
}

// CompleteBooking は着席済みの予約を完了にする（枠予約数は変更しない）
func (s *BookingService) CompleteBooking(ctx context.Context, id, updatedBy string) (result *booking.Booking, err error) {
	defer func() { s.observe("complete", err) }()
	return s.changeStatus(ctx, id, updatedBy, (*booking.Booking).Complete, booking.EventCompleted)
}

func (s *BookingService) changeStatus(ctx context.Context, id, by string, apply func(*booking.Booking, string) error, evType booking.EventType) (*booking.Booking, error) {
	if err := booking.ValidateActor(by); err != nil {
		return nil, err
	}
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	b, err := s.bookingRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(b, by); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	logger.Info("予約のステータスを更新しました", bookingFields(b, zap.String("status", string(b.Status)))...)
	s.afterCommit(ctx, b, nil, evType, by)
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context, orgName, storeName string, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookingRepo.ListByStore(ctx, orgName, storeName, limit, offset)
}

// lockSlots は枠ロックを昇順に取得し、ensure の行を作成してから slots の行をロック付きで読む
func (s *BookingService) lockSlots(ctx context.Context, tx transaction.Tx, orgName, storeName string, slots, ensure []time.Time, minutes int) ([]*slot.Reservation, error) {
	if err := s.locker.AcquireOrdered(ctx, tx, slot.LockKeys(orgName, storeName, slots)); err != nil {
		return nil, err
	}
	if err := s.slotRepo.EnsureExist(ctx, tx, orgName, storeName, ensure, minutes); err != nil {
		return nil, err
	}
	return s.slotRepo.LockAndRead(ctx, tx, orgName, storeName, slots, minutes)
}

func (s *BookingService) capacityExceeded(b *booking.Booking, r *slot.Reservation, requested, capacity int) error {
	logger.Warn("枠の収容人数を超えるため予約を拒否しました",
		zap.String("org_name", b.OrgName),
		zap.String("store_name", b.StoreName),
		zap.Time("slot_start", r.SlotStart),
		zap.Int("reserved", r.ReservedCount),
		zap.Int("requested", requested),
		zap.Int("capacity", capacity),
	)
	return &booking.CapacityExceededError{
		SlotStart: r.SlotStart,
		Reserved:  r.ReservedCount,
		Requested: requested,
		Capacity:  capacity,
	}
}

// afterCommit はキャッシュ無効化とイベント発行を行う（失敗しても予約結果は変えない）
func (s *BookingService) afterCommit(ctx context.Context, b *booking.Booking, dates []slot.Date, evType booking.EventType, actor string) {
	if s.cache != nil && len(dates) > 0 {
		if err := s.cache.InvalidateDays(ctx, b.OrgName, b.StoreName, dates); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, booking.NewEvent(evType, b, actor)); err != nil {
			logger.Warn("イベント発行エラー", zap.String("booking_id", b.ID), zap.String("type", string(evType)), zap.Error(err))
		}
	}
}

func (s *BookingService) observe(operation string, err error) {
	s.metrics.ObserveBookingOperation(operation, operationResult(err))
}

func operationResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, booking.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, store.ErrStoreNotFound):
		return "not_found"
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		return "invalid_transition"
	case errors.Is(err, slot.ErrLockTimeout):
		return "lock_timeout"
	default:
		return "error"
	}
}

// resolveStore は店舗設定を取得し、容量・枠幅・タイムゾーンを検証する
func resolveStore(ctx context.Context, repo store.Repository, orgName, storeName string) (*store.Store, *time.Location, error) {
	st, err := repo.GetByName(ctx, orgName, storeName)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, nil, err
	}
	loc, err := st.Location()
	if err != nil {
		return nil, nil, err
	}
	return st, loc, nil
}

func unionDates(sets ...[]slot.Date) []slot.Date {
	seen := make(map[slot.Date]struct{})
	var out []slot.Date
	for _, set := range sets {
		for _, d := range set {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

func bookingFields(b *booking.Booking, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("booking_id", b.ID),
		zap.String("org_name", b.OrgName),
		zap.String("store_name", b.StoreName),
	}, extra...)
}
