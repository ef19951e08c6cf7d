// Package metrics 定義 Prometheus 指標
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipe_ai"

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream AI requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream AI request latency",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"provider"},
	)
	generationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_errors_total",
			Help:      "Failed recipe generations by error kind",
		},
		[]string{"kind"},
	)
	recipesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipes_generated_total",
			Help:      "Recipe drafts returned to callers",
		},
	)
	fanoutFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_fanout_failures_total",
			Help:      "Best-effort recipe inserts that failed",
		},
	)
	chatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Recipe chat requests by outcome",
		},
		[]string{"outcome"},
	)
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status_code"},
	)
)

// ObserveUpstream 記錄一次上游請求，outcome 為 "ok" 或錯誤種類
func ObserveUpstream(provider, outcome string, d time.Duration) {
	upstreamRequests.WithLabelValues(provider, outcome).Inc()
	upstreamDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveGeneration 記錄生成結果
func ObserveGeneration(recipes int, kind string) {
	if kind != "" {
		generationErrors.WithLabelValues(kind).Inc()
		return
	}
	recipesGenerated.Add(float64(recipes))
}

// IncFanoutFailure 保存失敗
func IncFanoutFailure() {
	fanoutFailures.Inc()
}

// ObserveChat 記錄對話結果
func ObserveChat(outcome string) {
	chatRequests.WithLabelValues(outcome).Inc()
}

// Middleware 記錄 HTTP 請求數
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler /metrics 端點
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
