package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約操作の総数（operation: create/update/cancel/seat/complete, result: success/capacity_exceeded/not_found/invalid_transition/lock_timeout/error）
	BookingOperationsTotal *prometheus.CounterVec

	// 枠アドバイザリロックの取得待ち時間
	SlotLockWaitDuration prometheus.Histogram

	// 空き状況キャッシュの参照結果（result: hit/miss/error）
	AvailabilityCacheTotal *prometheus.CounterVec

	// 直近の照合で台帳と不一致だった枠数
	SlotLedgerDrift prometheus.Gauge
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_operations_total",
				Help: "Total number of booking ledger operations by result",
			},
			[]string{"operation", "result"},
		),
		SlotLockWaitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "slot_lock_wait_seconds",
				Help:    "Time spent acquiring ordered slot advisory locks",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		AvailabilityCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "availability_cache_requests_total",
				Help: "Availability day-grid cache lookups by result",
			},
			[]string{"result"},
		),
		SlotLedgerDrift: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "slot_ledger_drift_slots",
				Help: "Slots whose reserved count disagreed with the history ledger at the last reconciliation",
			},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingOperationsTotal,
		m.SlotLockWaitDuration,
		m.AvailabilityCacheTotal,
		m.SlotLedgerDrift,
	)

	return m
}

// ObserveBookingOperation は予約操作の結果を記録する（nil 安全）
func (m *Metrics) ObserveBookingOperation(operation, result string) {
	if m == nil {
		return
	}
	m.BookingOperationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveLockWait はロック取得の所要時間を記録する（nil 安全）
func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.SlotLockWaitDuration.Observe(d.Seconds())
}

// ObserveCache はキャッシュ参照結果を記録する（nil 安全）
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.AvailabilityCacheTotal.WithLabelValues(result).Inc()
}

// SetDrift は不一致枠数を記録する（nil 安全）
func (m *Metrics) SetDrift(n int) {
	if m == nil {
		return
	}
	m.SlotLedgerDrift.Set(float64(n))
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
