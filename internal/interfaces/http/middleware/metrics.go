package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/prometheus"
)

// Metrics counts requests and observes their latency.  Routes are labelled
// by their pattern so path parameters do not explode cardinality.
func Metrics(m *prometheus.RadarMetrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		timer := prometheus.NewTimer(m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path))

		c.Next()

		timer.ObserveDuration()
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
