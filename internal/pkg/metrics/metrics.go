package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
// 各 Record メソッドは nil レシーバでも安全に呼べる
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 座席の仮押さえ試行数（result: success, already_booked, already_reserved, conflict, lock_failed）
	SeatHoldsTotal *prometheus.CounterVec

	// チェックアウトの状態遷移数（state: pending_payment, paid, expired, cancelled, rejected）
	CheckoutsTotal *prometheus.CounterVec

	// 期限切れで解放した未払い予約の総数
	ExpiredBookingsTotal prometheus.Counter

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec

	// 予約確定通知の送信結果（status: sent, failed）
	NotificationsTotal *prometheus.CounterVec
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
		SeatHoldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_holds_total",
				Help: "Total number of seat hold attempts by result",
			},
			[]string{"result"},
		),
		CheckoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkouts_total",
				Help: "Total number of checkout state transitions",
			},
			[]string{"state"},
		),
		ExpiredBookingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "expired_bookings_total",
				Help: "Total number of pending bookings released after expiry",
			},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_notifications_total",
				Help: "Total number of booking confirmation notifications by status",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SeatHoldsTotal,
		m.CheckoutsTotal,
		m.ExpiredBookingsTotal,
		m.DistributedLockDuration,
		m.NotificationsTotal,
	)

	return m
}

// RecordSeatHold は座席1席分の仮押さえ結果を記録する
func (m *Metrics) RecordSeatHold(result string) {
	if m == nil {
		return
	}
	m.SeatHoldsTotal.WithLabelValues(result).Inc()
}

// RecordCheckout はチェックアウトの遷移先状態を記録する
func (m *Metrics) RecordCheckout(state string) {
	if m == nil {
		return
	}
	m.CheckoutsTotal.WithLabelValues(state).Inc()
}

// RecordExpiredBookings は期限切れで解放した件数を加算する
func (m *Metrics) RecordExpiredBookings(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredBookingsTotal.Add(float64(n))
}

// ObserveLock は分散ロック操作の所要時間を記録する
func (m *Metrics) ObserveLock(operation string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failed"
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(elapsed.Seconds())
}

// RecordNotification は通知の送信結果を記録する
func (m *Metrics) RecordNotification(err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
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
