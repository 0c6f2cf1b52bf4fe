package store

import "errors"

// Store ドメインのエラー定義
var (
	ErrStoreNotFound        = errors.New("店舗が見つかりません")
	ErrInvalidConfiguration = errors.New("店舗の設定が不正です")
)
