package slot

import (
	"fmt"
	"sort"
	"time"
)

// Reservation は (店舗, 枠開始, 枠幅) ごとの予約済み人数を表す
type Reservation struct {
	ID            string
	OrgName       string
	StoreName     string
	SlotStart     time.Time
	SlotMinutes   int
	ReservedCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HistoryEntry は枠予約数の増減履歴（追記のみ）
type HistoryEntry struct {
	ID                string
	SlotReservationID string
	BookingID         string
	Delta             int
	Note              string
	CreatedAt         time.Time
}

// 履歴に記録する操作メモ
const (
	NoteCreate = "create booking"
	NoteUpdate = "update booking"
	NoteCancel = "cancel booking"
)

// Drift は予約数と履歴合計が一致しない枠を表す
type Drift struct {
	SlotReservationID string
	OrgName           string
	StoreName         string
	SlotStart         time.Time
	ReservedCount     int
	LedgerSum         int
}

// IndexByStart は枠開始時刻（ミリ秒）をキーにした索引を作る
func IndexByStart(rows []*Reservation) map[int64]*Reservation {
	idx := make(map[int64]*Reservation, len(rows))
	for _, r := range rows {
		idx[r.SlotStart.UnixMilli()] = r
	}
	return idx
}

const lockKeyTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// LockKey は枠単位のアドバイザリロックキー "{org}:{store}:{slotStartISO}" を返す
func LockKey(orgName, storeName string, slotStart time.Time) string {
	return fmt.Sprintf("%s:%s:%s", orgName, storeName, slotStart.UTC().Format(lockKeyTimeLayout))
}

// LockKeys は枠集合のロックキーを重複なしの昇順で返す
// 全トランザクションが同じ順序で取得することでデッドロックを防ぐ
func LockKeys(orgName, storeName string, starts []time.Time) []string {
	return SortedUnique(keysOf(orgName, storeName, starts))
}

func keysOf(orgName, storeName string, starts []time.Time) []string {
	keys := make([]string, 0, len(starts))
	for _, s := range starts {
		keys = append(keys, LockKey(orgName, storeName, s))
	}
	return keys
}

// SortedUnique は文字列集合を重複なしの昇順で返す
func SortedUnique(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
