package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/store"
	redisinfra "github.com/sanosuguru/go-restaurant-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-restaurant-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-restaurant-booking/internal/pkg/metrics"
)

// SlotAvailability は1枠の空き状況
type SlotAvailability struct {
	SlotStart      time.Time `json:"slot_start"`
	SlotMinutes    int       `json:"slot_minutes"`
	ReservedCount  int       `json:"reserved_count"`
	AvailableSeats int       `json:"available_seats"`
	IsAvailable    bool      `json:"is_available"`
}

type AvailabilitySummary struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	PartySize int `json:"party_size"`
}

// Availability は店舗ローカル日付1日分の空き状況
type Availability struct {
	OrgName        string              `json:"org_name"`
	StoreName      string              `json:"store_name"`
	Date           string              `json:"date"`
	Timezone       string              `json:"timezone"`
	Capacity       int                 `json:"capacity"`
	Slots          []SlotAvailability  `json:"slots"`
	AvailableSlots []SlotAvailability  `json:"available_slots"`
	Summary        AvailabilitySummary `json:"summary"`
}

// AvailabilityService は枠の空き状況をロックなしで参照する
// 結果は参考値で、予約可否の判定は BookingService がロック下で行う
type AvailabilityService struct {
	slotRepo  slot.Repository
	storeRepo store.Repository
	cache     AvailabilityCache
	metrics   *metrics.Metrics
	group     singleflight.Group
}

// NewAvailabilityService は AvailabilityService を作成する（cache, m は nil 可）
func NewAvailabilityService(sr slot.Repository, str store.Repository, cache AvailabilityCache, m *metrics.Metrics) *AvailabilityService {
	return &AvailabilityService{slotRepo: sr, storeRepo: str, cache: cache, metrics: m}
}

// GetAvailability は date（YYYY-MM-DD、店舗ローカル）の全枠と partySize 以上空いている枠を返す
// partySize が 0 の場合は人数で絞り込まない
func (s *AvailabilityService) GetAvailability(ctx context.Context, orgName, storeName, date string, partySize int) (*Availability, error) {
	if partySize < 0 {
		return nil, slot.ErrInvalidPartySize
	}
	day, err := slot.ParseDate(date)
	if err != nil {
		return nil, err
	}
	st, loc, err := resolveStore(ctx, s.storeRepo, orgName, storeName)
	if err != nil {
		return nil, err
	}

	rows, err := s.loadDay(ctx, st, loc, day)
	if err != nil {
		return nil, err
	}

	result := &Availability{
		OrgName:        orgName,
		StoreName:      storeName,
		Date:           day.String(),
		Timezone:       loc.String(),
		Capacity:       st.DineInCapacity,
		Slots:          make([]SlotAvailability, 0, len(rows)),
		AvailableSlots: []SlotAvailability{},
	}
	for _, r := range rows {
		seats := st.DineInCapacity - r.ReservedCount
		sa := SlotAvailability{
			SlotStart:      r.SlotStart,
			SlotMinutes:    r.SlotMinutes,
			ReservedCount:  r.ReservedCount,
			AvailableSeats: seats,
			IsAvailable:    seats >= partySize,
		}
		result.Slots = append(result.Slots, sa)
		if sa.IsAvailable {
			result.AvailableSlots = append(result.AvailableSlots, sa)
		}
	}
	result.Summary = AvailabilitySummary{
		Total:     len(result.Slots),
		Available: len(result.AvailableSlots),
		PartySize: partySize,
	}
	return result, nil
}

// loadDay は1日分の枠予約行を取得する
// 同じ店舗・日付への同時リクエストは1回の読み込みにまとめる
// まとめた読み込みは先頭の呼び出し元のキャンセルでは止めない
func (s *AvailabilityService) loadDay(ctx context.Context, st *store.Store, loc *time.Location, day slot.Date) ([]*slot.Reservation, error) {
	key := st.OrgName + ":" + st.StoreName + ":" + day.String()
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		rows, generation, cacheable := s.fromCache(loadCtx, st, day)
		if rows != nil {
			return rows, nil
		}

		// 予約のない日でも営業時間分の枠が揃うよう先に作成する
		grid := slot.GenerateDaySlots(day, st.SlotDurationMinutes, loc, st.Hours)
		if err := s.slotRepo.EnsureExist(loadCtx, nil, st.OrgName, st.StoreName, grid, st.SlotDurationMinutes); err != nil {
			return nil, err
		}
		from, to := day.DayRange(loc)
		rows, err := s.slotRepo.ListRange(loadCtx, st.OrgName, st.StoreName, from, to, st.SlotDurationMinutes)
		if err != nil {
			return nil, err
		}

		if cacheable {
			if err := s.cache.SetDay(loadCtx, st.OrgName, st.StoreName, day, generation, rows); err != nil {
				logger.Warn("キャッシュ保存エラー", zap.String("key", key), zap.Error(err))
			}
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*slot.Reservation), nil
}

// fromCache はヒットした行を返す
// ミスの場合は読み込み前の世代と、保存してよいかを返す
func (s *AvailabilityService) fromCache(ctx context.Context, st *store.Store, day slot.Date) ([]*slot.Reservation, int64, bool) {
	if s.cache == nil {
		return nil, 0, false
	}
	rows, generation, err := s.cache.GetDay(ctx, st.OrgName, st.StoreName, day)
	if err == nil {
		s.metrics.ObserveCache("hit")
		logger.Debug("キャッシュヒット", zap.String("org_name", st.OrgName), zap.String("store_name", st.StoreName), zap.String("date", day.String()))
		if rows == nil {
			rows = []*slot.Reservation{}
		}
		return rows, generation, false
	}
	if errors.Is(err, redisinfra.ErrCacheMiss) {
		s.metrics.ObserveCache("miss")
		return nil, generation, true
	}
	// 世代が読めないときは保存しない
	s.metrics.ObserveCache("error")
	logger.Warn("キャッシュ取得エラー", zap.Error(err))
	return nil, 0, false
}
