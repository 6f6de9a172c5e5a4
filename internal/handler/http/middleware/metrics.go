package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/utils/metrics"
)

// MetricsMiddleware records request counts and latency. The route template
// is used instead of the raw path to keep the label cardinality bounded.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.RequestDuration.Observe(time.Since(start).Seconds())
	}
}
