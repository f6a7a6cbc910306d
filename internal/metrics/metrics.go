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
// プロシージャルーター、ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordProcedureCall(procedure, outcome string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordDishCreated()
	RecordDishRemoved()
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	procedureCalls    *prometheus.CounterVec
	procedureDuration *prometheus.HistogramVec
	httpStatus        *prometheus.CounterVec
	dishesCreated     prometheus.Counter
	dishesRemoved     prometheus.Counter
	sessionsCleaned   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		procedureCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dishlist_procedure_calls_total",
			Help: "プロシージャ呼び出しの合計数（結果別）",
		}, []string{"procedure", "outcome"}),
		procedureDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dishlist_procedure_duration_seconds",
			Help:    "プロシージャ呼び出しの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dishlist_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		dishesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dishlist_dishes_created_total",
			Help: "作成された料理の合計数",
		}),
		dishesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dishlist_dishes_removed_total",
			Help: "削除された料理の合計数",
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dishlist_sessions_cleaned_total",
			Help: "クリーンアップジョブで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.procedureCalls,
		c.procedureDuration,
		c.httpStatus,
		c.dishesCreated,
		c.dishesRemoved,
		c.sessionsCleaned,
	)

	return c
}

// RecordProcedureCall はプロシージャ呼び出しの結果と処理時間を記録する。
// outcomeはエラーコード、成功時は "ok"。
func (c *Collector) RecordProcedureCall(procedure, outcome string, duration time.Duration) {
	c.procedureCalls.WithLabelValues(procedure, outcome).Inc()
	c.procedureDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordDishCreated は料理の作成を記録する。
func (c *Collector) RecordDishCreated() {
	c.dishesCreated.Inc()
}

// RecordDishRemoved は料理の削除を記録する。
func (c *Collector) RecordDishRemoved() {
	c.dishesRemoved.Inc()
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
