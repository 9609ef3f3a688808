package handlers

import (
	"strconv"
	"time"

	"controlling_pump/internal/metrics"

	"github.com/gin-gonic/gin"
)

// requestMetrics records latency per route and logs slow or failed requests.
func (h *Handler) requestMetrics(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	code := c.Writer.Status()
	elapsed := time.Since(start)
	metrics.HttpRequestLatencySeconds.
		WithLabelValues(c.Request.Method, route, strconv.Itoa(code)).
		Observe(elapsed.Seconds())

	if h.log == nil || route == "/ws" {
		return
	}
	if code >= 500 {
		h.log.Warnw("http_request", "method", c.Request.Method, "route", route, "code", code, "elapsed", elapsed.String())
	} else {
		h.log.Debugw("http_request", "method", c.Request.Method, "route", route, "code", code, "elapsed", elapsed.String())
	}
}
