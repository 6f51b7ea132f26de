package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"retail-intel/internal/metrics"
)

// MetricsMiddleware records request counts and latency per route. The
// matched route template is used as the endpoint label so path parameters
// do not explode cardinality.
func MetricsMiddleware(collector *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		collector.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
