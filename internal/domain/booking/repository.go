package booking

import (
	"context"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成し、採番したIDを設定する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetForUpdate は予約を行ロック付きで取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Booking, error)

	// Update は予約を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// ListByStore は店舗のキャンセルされていない予約を新しい順に取得する
	ListByStore(ctx context.Context, orgName, storeName string, limit, offset int) ([]*Booking, error)
}
