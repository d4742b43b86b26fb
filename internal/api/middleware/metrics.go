package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iannil/one-data-studio-sub007/internal/metrics"
)

// Metrics returns a middleware that records Prometheus metrics for HTTP
// requests: request count and latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Use the route template (e.g., "/api/v1/tasks/:id") rather
		// than the raw path to keep label cardinality bounded.
		path := c.FullPath()
		if path == "" {
			path = "/not_found"
		}
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.APIRequestsTotal.WithLabelValues(path, method, status).Inc()
		metrics.APIRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
	}
}
