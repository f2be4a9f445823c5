// Package metrics 暴露 HTTP 与入库/检索的 Prometheus 指标。
package metrics

import (
	"strconv"
	"time"

	"diof-search/internal/errs"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "diof",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diof",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ingestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diof",
			Name:      "ingest_total",
			Help:      "Document ingestions by outcome",
		},
		[]string{"outcome"},
	)

	searchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diof",
			Name:      "search_total",
			Help:      "Searches by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, ingestTotal, searchTotal)
}

// Middleware 记录每个请求的耗时与次数，路径使用 gin 的路由模板避免标签基数膨胀。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// outcome 把错误折叠为标签值：成功为 "ok"，否则为错误类别。
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return errs.KindOf(err)
}

// ObserveIngest 记录一次入库的结果。
func ObserveIngest(err error) {
	ingestTotal.WithLabelValues(outcome(err)).Inc()
}

// ObserveSearch 记录一次检索的结果，零命中单独计为 "empty"。
func ObserveSearch(hits int, err error) {
	if err == nil && hits == 0 {
		searchTotal.WithLabelValues("empty").Inc()
		return
	}
	searchTotal.WithLabelValues(outcome(err)).Inc()
}
