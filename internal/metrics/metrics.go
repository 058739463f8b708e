// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordSessionStarted()
	RecordSessionStopped(elapsed time.Duration)
	RecordManualEntry()
	RecordEntryMutation(op string)
	SetStaleSessions(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sessionsStarted prometheus.Counter
	sessionsStopped prometheus.Counter
	sessionLength   prometheus.Histogram
	manualEntries   prometheus.Counter
	entryMutations  *prometheus.CounterVec
	staleSessions   prometheus.Gauge
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agencytime_sessions_started_total",
			Help: "開始された計測セッションの合計数",
		}),
		sessionsStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agencytime_sessions_stopped_total",
			Help: "終了した計測セッションの合計数",
		}),
		sessionLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agencytime_session_length_hours",
			Help:    "終了した計測セッションの長さ（時間）",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 12},
		}),
		manualEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agencytime_manual_entries_total",
			Help: "手動登録されたエントリの合計数",
		}),
		entryMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agencytime_entry_mutations_total",
			Help: "エントリの更新・削除の合計数",
		}, []string{"op"}),
		staleSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agencytime_stale_sessions",
			Help: "閾値を超えて計測中のセッション数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agencytime_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.sessionsStarted,
		c.sessionsStopped,
		c.sessionLength,
		c.manualEntries,
		c.entryMutations,
		c.staleSessions,
		c.httpStatus,
	)

	return c
}

// RecordSessionStarted はセッション開始を記録する。
func (c *Collector) RecordSessionStarted() {
	c.sessionsStarted.Inc()
}

// RecordSessionStopped はセッション終了とその長さを記録する。
func (c *Collector) RecordSessionStopped(elapsed time.Duration) {
	c.sessionsStopped.Inc()
	c.sessionLength.Observe(elapsed.Hours())
}

// RecordManualEntry は手動エントリの登録を記録する。
func (c *Collector) RecordManualEntry() {
	c.manualEntries.Inc()
}

// RecordEntryMutation はエントリの更新（update）・削除（delete）を記録する。
func (c *Collector) RecordEntryMutation(op string) {
	c.entryMutations.WithLabelValues(op).Inc()
}

// SetStaleSessions は長時間計測中のセッション数を設定する。
func (c *Collector) SetStaleSessions(count int) {
	c.staleSessions.Set(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordSessionStarted() {}
func (Nop) RecordSessionStopped(time.Duration) {}
func (Nop) RecordManualEntry() {}
func (Nop) RecordEntryMutation(string) {}
func (Nop) SetStaleSessions(int) {}
func (Nop) RecordHTTPStatus(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// healthが指定された場合は/healthも公開する。APIサーバーを持たないworkerプロセスで使用する。
func SetupMetricsRoute(gatherer prometheus.Gatherer, health http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	if health != nil {
		mux.Handle("/health", health)
	}
	return mux
}
