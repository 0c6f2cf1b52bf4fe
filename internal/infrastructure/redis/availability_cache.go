package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// 世代キーはデータより長く残す（期限切れで 0 に戻っても不一致側に倒れる）
const minGenerationTTL = 24 * time.Hour

// cachedSlot はキャッシュに保存する枠の行
type cachedSlot struct {
	ID            string    `json:"id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotMinutes   int       `json:"slot_minutes"`
	ReservedCount int       `json:"reserved_count"`
}

// cachedDay は1日分の行と、読み込み開始時点の世代
type cachedDay struct {
	Generation int64        `json:"generation"`
	Slots      []cachedSlot `json:"slots"`
}

// AvailabilityCache は店舗・日付ごとの枠予約行をキャッシュする
// 空き状況の参照専用で、予約の可否判定には使わない
//
// 無効化のたびに日付ごとの世代を進め、保存時の世代が現在と異なる値はミス扱いにする。
// DB 読み込み中に無効化が挟まっても古い行は返らない
type AvailabilityCache struct {
	client        *redis.Client
	ttl           time.Duration
	generationTTL time.Duration
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	genTTL := minGenerationTTL
	if 2*ttl > genTTL {
		genTTL = 2 * ttl
	}
	return &AvailabilityCache{client: client, ttl: ttl, generationTTL: genTTL}
}

// GetDay は日付の枠予約行と現在の世代を返す
// ErrCacheMiss の場合も世代は有効で、DB から読んだ行はその世代で SetDay する
func (c *AvailabilityCache) GetDay(ctx context.Context, orgName, storeName string, date slot.Date) ([]*slot.Reservation, int64, error) {
	vals, err := c.client.MGet(ctx, dayKey(orgName, storeName, date), generationKey(orgName, storeName, date)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	generation, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, generation, ErrCacheMiss
	}

	var cached cachedDay
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, 0, fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	if cached.Generation != generation {
		return nil, generation, ErrCacheMiss
	}
	rows := make([]*slot.Reservation, len(cached.Slots))
	for i, cs := range cached.Slots {
		rows[i] = &slot.Reservation{
			ID: cs.ID, OrgName: orgName, StoreName: storeName,
			SlotStart: cs.SlotStart.UTC(), SlotMinutes: cs.SlotMinutes, ReservedCount: cs.ReservedCount,
		}
	}
	return rows, generation, nil
}

// SetDay は読み込み開始時点の世代つきで日付の枠予約行を保存する
func (c *AvailabilityCache) SetDay(ctx context.Context, orgName, storeName string, date slot.Date, generation int64, rows []*slot.Reservation) error {
	cached := cachedDay{Generation: generation, Slots: make([]cachedSlot, len(rows))}
	for i, r := range rows {
		cached.Slots[i] = cachedSlot{ID: r.ID, SlotStart: r.SlotStart.UTC(), SlotMinutes: r.SlotMinutes, ReservedCount: r.ReservedCount}
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("キャッシュの変換に失敗: %w", err)
	}
	if err := c.client.Set(ctx, dayKey(orgName, storeName, date), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// InvalidateDays は日付ごとに世代を進めてキャッシュを削除する
func (c *AvailabilityCache) InvalidateDays(ctx context.Context, orgName, storeName string, dates []slot.Date) error {
	if len(dates) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range dates {
			genKey := generationKey(orgName, storeName, d)
			pipe.Incr(ctx, genKey)
			pipe.Expire(ctx, genKey, c.generationTTL)
			pipe.Del(ctx, dayKey(orgName, storeName, d))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func parseGeneration(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("キャッシュ世代が不正です: %w", err)
	}
	return n, nil
}

func dayKey(orgName, storeName string, date slot.Date) string {
	return fmt.Sprintf("availability:%s:%s:%s", orgName, storeName, date)
}

func generationKey(orgName, storeName string, date slot.Date) string {
	return fmt.Sprintf("availability-gen:%s:%s:%s", orgName, storeName, date)
}
