package store

import "context"

// Repository は店舗リポジトリのインターフェース
type Repository interface {
	// GetByName は組織名と店舗名から削除されていない店舗を取得する
	GetByName(ctx context.Context, orgName, storeName string) (*Store, error)
}
