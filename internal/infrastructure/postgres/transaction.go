package postgres

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/transaction"
)

// ErrTxRequired はトランザクション必須の操作に Tx が渡されなかったことを表す
var ErrTxRequired = errors.New("トランザクションが必要です")

// TxWrapper は sqlx.Tx を transaction.Tx インターフェースでラップする
type TxWrapper struct {
	*sqlx.Tx
}

// Commit はトランザクションをコミットする
func (t *TxWrapper) Commit() error {
	return t.Tx.Commit()
}

// Rollback はトランザクションをロールバックする
func (t *TxWrapper) Rollback() error {
	return t.Tx.Rollback()
}

// TxManager は sqlx.DB を使用したトランザクションマネージャー
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager は新しい TxManager を作成する
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &TxWrapper{Tx: tx}, nil
}

// UnwrapTx は transaction.Tx から sqlx.Tx を取り出す
// リポジトリ実装で使用する
func UnwrapTx(tx transaction.Tx) *sqlx.Tx {
	if wrapper, ok := tx.(*TxWrapper); ok {
		return wrapper.Tx
	}
	return nil
}

// requireTx はトランザクション必須の操作用に sqlx.Tx を取り出す
func requireTx(tx transaction.Tx) (*sqlx.Tx, error) {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return nil, ErrTxRequired
	}
	return sqlTx, nil
}

// extFor は tx があればそれを、なければ db を返す
func extFor(db *sqlx.DB, tx transaction.Tx) sqlx.ExtContext {
	if sqlTx := UnwrapTx(tx); sqlTx != nil {
		return sqlTx
	}
	return db
}

var _ transaction.Manager = (*TxManager)(nil)
