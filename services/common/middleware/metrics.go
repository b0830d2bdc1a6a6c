package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/microshop/backend/services/common/metrics"
)

// Metrics creates a Gin middleware that records request counts and latencies
// into the process metrics registry. The route template is used as the
// endpoint label so /orders/:id stays a single series regardless of the
// concrete ID.
func Metrics(reg *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		reg.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
