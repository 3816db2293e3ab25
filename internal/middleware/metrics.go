package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civic-archive-api/internal/service"
)

// Metrics records request duration and count labelled by route template.
// Requests that match no route share the "unmatched" label so raw paths never become labels.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
