package transaction

import "context"

// Tx は1回の予約操作を包むトランザクション
// 枠のアドバイザリロックと FOR UPDATE の行ロックはコミットまたはロールバックで解放される
type Tx interface {
	Commit() error
	// Rollback はコミット後に呼んでも安全であること
	Rollback() error
}

// Manager はトランザクションを開始する
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}
