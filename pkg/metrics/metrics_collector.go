package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 闸道查询指标
	gatewayQueriesTotal  *prometheus.CounterVec
	gatewayQueryDuration *prometheus.HistogramVec
	gatewayAttemptsTotal *prometheus.CounterVec
	gatewayRetriesTotal  *prometheus.CounterVec
	gatewayInflightQuery *prometheus.GaugeVec
}

// NewMetricsCollector 创建指标收集器，reg 为 nil 时使用默认注册表
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &MetricsCollector{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		gatewayQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charge_status_queries_total",
				Help: "Total number of charge status queries by gateway and outcome",
			},
			[]string{"gateway", "outcome"},
		),

		gatewayQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "charge_status_query_duration_seconds",
				Help:    "Charge status query duration in seconds, retries included",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"gateway"},
		),

		gatewayAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_attempts_total",
				Help: "Total number of outbound gateway HTTP attempts",
			},
			[]string{"gateway", "result"},
		),

		gatewayRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_retries_total",
				Help: "Total number of retried outbound gateway HTTP attempts",
			},
			[]string{"gateway"},
		),

		gatewayInflightQuery: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "charge_status_queries_inflight",
				Help: "Number of charge status queries in progress",
			},
			[]string{"gateway"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, getStatusCategory(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackQuery 开始记录一次查询，返回结束回调
func (m *MetricsCollector) TrackQuery(gateway string) func(success bool) {
	if m == nil {
		return func(bool) {}
	}
	start := time.Now()
	m.gatewayInflightQuery.WithLabelValues(gateway).Inc()

	return func(success bool) {
		outcome := "success"
		if !success {
			outcome = "failure"
		}
		m.gatewayInflightQuery.WithLabelValues(gateway).Dec()
		m.gatewayQueriesTotal.WithLabelValues(gateway, outcome).Inc()
		m.gatewayQueryDuration.WithLabelValues(gateway).Observe(time.Since(start).Seconds())
	}
}

// RecordAttempt 记录一次闸道 HTTP 尝试，result: ok, transient, error
func (m *MetricsCollector) RecordAttempt(gateway, result string) {
	if m == nil {
		return
	}
	m.gatewayAttemptsTotal.WithLabelValues(gateway, result).Inc()
}

// RecordRetry 记录一次重试
func (m *MetricsCollector) RecordRetry(gateway string) {
	if m == nil {
		return
	}
	m.gatewayRetriesTotal.WithLabelValues(gateway).Inc()
}

// getStatusCategory 获取状态分类
func getStatusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

var (
	// 全局指标收集器实例
	GlobalCollector *MetricsCollector
	initOnce        sync.Once
)

// InitMetrics 初始化全局指标收集器
func InitMetrics() {
	initOnce.Do(func() {
		GlobalCollector = NewMetricsCollector(nil)
	})
}

// GetGlobalCollector 获取全局指标收集器
func GetGlobalCollector() *MetricsCollector {
	InitMetrics()
	return GlobalCollector
}
