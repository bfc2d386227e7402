package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GinPrometheusMiddleware возвращает Gin middleware,
// который собирает метрики http_requests_total и http_request_duration_seconds
func GinPrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Пропускаем метрики для /metrics и /health endpoints
		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()

		HttpRequestsInFlight.WithLabelValues(serviceName).Inc()
		defer HttpRequestsInFlight.WithLabelValues(serviceName).Dec()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := normalizePath(c)

		HttpRequestsTotal.WithLabelValues(serviceName, c.Request.Method, path, status).Inc()
		HttpRequestDuration.WithLabelValues(serviceName, c.Request.Method, path).Observe(duration)
	}
}

// normalizePath нормализует путь для уменьшения кардинальности метрик
// Использует шаблон маршрута Gin (с плейсхолдерами :id) вместо реального пути
func normalizePath(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}

	path := c.Request.URL.Path
	if len(path) > 100 {
		path = path[:100]
	}

	return path
}
