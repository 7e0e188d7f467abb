package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		// Label by route template, not the raw URL.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(method, path, status, time.Since(start), reqSize)
	}
}

// Timer measures one tool call.
type Timer struct {
	start     time.Time
	metrics   *Metrics
	tool      string
	precision string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, tool, precision string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   metrics,
		tool:      tool,
		precision: precision,
	}
}

// Stop records the call and returns its duration.
func (t *Timer) Stop(kind string) time.Duration {
	d := time.Since(t.start)
	t.metrics.RecordToolCall(t.tool, t.precision, kind, d)
	return d
}
