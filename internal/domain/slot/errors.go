package slot

import "errors"

// Slot ドメインのエラー定義
var (
	ErrInvalidDate      = errors.New("日付の形式が不正です（YYYY-MM-DD）")
	ErrSlotRowMissing   = errors.New("枠予約行が見つかりません")
	ErrInvalidPartySize = errors.New("人数は正の整数で指定してください")
	ErrLockTimeout      = errors.New("枠ロックの取得がタイムアウトしました")
)
