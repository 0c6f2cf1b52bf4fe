package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
	"github.com/sanosuguru/go-restaurant-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-restaurant-booking/internal/pkg/metrics"
)

// DriftFinder は予約数と履歴合計が一致しない枠を探すインターフェース
type DriftFinder interface {
	FindDrift(ctx context.Context) ([]*slot.Drift, error)
}

// SlotReconciler は枠予約数と履歴の不一致を定期的に検出するワーカー
// 検出のみで予約数は変更しない
type SlotReconciler struct {
	finder   DriftFinder
	interval time.Duration
	metrics  *metrics.Metrics
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSlotReconciler は新しいリコンサイラーを作成（m は nil 可）
func NewSlotReconciler(finder DriftFinder, interval time.Duration, m *metrics.Metrics) *SlotReconciler {
	return &SlotReconciler{
		finder:   finder,
		interval: interval,
		metrics:  m,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はリコンサイラーを開始
func (r *SlotReconciler) Start(ctx context.Context) {
	logger.Info("枠予約リコンサイラー開始", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("枠予約リコンサイラー停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("枠予約リコンサイラー停止（シグナル受信）")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// Stop はリコンサイラーを停止
func (r *SlotReconciler) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// reconcile は不一致の枠を検出して記録し、件数を返す
func (r *SlotReconciler) reconcile(ctx context.Context) int {
	log := logger.Get()
	log.Debug("枠予約の整合性確認開始")

	drifts, err := r.finder.FindDrift(ctx)
	if err != nil {
		log.Error("枠予約の整合性確認失敗", zap.Error(err))
		return 0
	}
	r.metrics.SetDrift(len(drifts))

	for _, d := range drifts {
		log.Warn("枠予約数と履歴が一致しません",
			zap.String("slot_reservation_id", d.SlotReservationID),
			zap.String("org_name", d.OrgName),
			zap.String("store_name", d.StoreName),
			zap.Time("slot_start", d.SlotStart),
			zap.Int("reserved_count", d.ReservedCount),
			zap.Int("ledger_sum", d.LedgerSum),
		)
	}
	if len(drifts) == 0 {
		log.Debug("不一致の枠なし")
	}
	return len(drifts)
}
