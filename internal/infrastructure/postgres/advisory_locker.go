package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-restaurant-booking/internal/pkg/metrics"
)

// キー文字列の md5 先頭64bitを bigint に変換してトランザクションスコープのロックを取る
const advisoryLockQuery = `SELECT pg_advisory_xact_lock(('x' || substr(md5($1), 1, 16))::bit(64)::bigint)`

// statement_timeout / lock_timeout で待ちが打ち切られたときの SQLSTATE
const (
	sqlStateQueryCanceled    = "57014"
	sqlStateLockNotAvailable = "55P03"
)

// AdvisoryLocker は pg_advisory_xact_lock による枠ロックを提供する
// ロックはコミット・ロールバック時に自動で解放される
type AdvisoryLocker struct {
	metrics *metrics.Metrics
}

// NewAdvisoryLocker は新しい AdvisoryLocker を作成する（m は nil 可）
func NewAdvisoryLocker(m *metrics.Metrics) *AdvisoryLocker {
	return &AdvisoryLocker{metrics: m}
}

// AcquireOrdered はキーを昇順・重複なしで1つずつロックする
func (l *AdvisoryLocker) AcquireOrdered(ctx context.Context, tx transaction.Tx, keys []string) error {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return err
	}
	started := time.Now()
	for _, key := range slot.SortedUnique(keys) {
		if _, err := sqlTx.ExecContext(ctx, advisoryLockQuery, key); err != nil {
			if isLockTimeout(err) {
				return fmt.Errorf("%w (%s): %v", slot.ErrLockTimeout, key, err)
			}
			return fmt.Errorf("アドバイザリロック取得に失敗 (%s): %w", key, err)
		}
	}
	l.metrics.ObserveLockWait(time.Since(started))
	return nil
}

func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == sqlStateQueryCanceled || pqErr.Code == sqlStateLockNotAvailable
}

var _ slot.Locker = (*AdvisoryLocker)(nil)
