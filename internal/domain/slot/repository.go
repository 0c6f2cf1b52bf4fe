package slot

import (
	"context"
	"time"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/transaction"
)

// Repository は枠予約リポジトリのインターフェース
type Repository interface {
	// EnsureExist は存在しない枠予約行を予約数0で作成する（既存行は変更しない）
	// tx が nil の場合はトランザクション外で実行する
	EnsureExist(ctx context.Context, tx transaction.Tx, orgName, storeName string, starts []time.Time, slotMinutes int) error

	// LockAndRead は枠予約行を行ロック付きで取得する（トランザクション必須）
	LockAndRead(ctx context.Context, tx transaction.Tx, orgName, storeName string, starts []time.Time, slotMinutes int) ([]*Reservation, error)

	// Adjust は予約数に delta を加算（0未満にはしない）し、履歴を1件追記する（トランザクション必須）
	Adjust(ctx context.Context, tx transaction.Tx, slotReservationID string, delta int, bookingID, note string) error

	// ListRange は [from, to) の枠予約行を枠開始の昇順で取得する
	ListRange(ctx context.Context, orgName, storeName string, from, to time.Time, slotMinutes int) ([]*Reservation, error)

	// FindDrift は予約数と履歴合計が一致しない枠を取得する
	FindDrift(ctx context.Context) ([]*Drift, error)
}

// Locker は枠単位のアドバイザリロックを取得する
type Locker interface {
	// AcquireOrdered はキーを昇順・重複なしで順にロックする
	// ロックはトランザクション終了時に解放される
	AcquireOrdered(ctx context.Context, tx transaction.Tx, keys []string) error
}
