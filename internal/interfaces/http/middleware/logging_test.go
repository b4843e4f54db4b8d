package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/OpportunityRadar/internal/testutil"
)

func newLoggedRouter(logger logging.Logger, config LoggingConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogging(logger, config))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequestLogging_Levels(t *testing.T) {
	logger := testutil.NewMockLogger()
	config := DefaultLoggingConfig()
	config.SlowThreshold = time.Millisecond
	r := newLoggedRouter(logger, config)

	get(r, "/missing", nil)
	get(r, "/boom", nil)
	get(r, "/slow", nil)
	get(r, "/healthz", nil)

	assert.True(t, logger.HasMessage("warn", "HTTP request completed with client error"))
	assert.True(t, logger.HasMessage("error", "HTTP request completed with server error"))
	assert.True(t, logger.HasMessage("warn", "HTTP request completed (slow)"))
	assert.Len(t, logger.GetMessages(), 3)
}

func TestRequestLogging_Info(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := newLoggedRouter(logger, LoggingConfig{})

	get(r, "/ok?limit=2", nil)
	assert.True(t, logger.HasMessage("info", "HTTP request completed"))
}

func TestRequestID(t *testing.T) {
	r := newLoggedRouter(logging.NewNopLogger(), DefaultLoggingConfig())

	w := get(r, "/ok", map[string]string{HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = get(r, "/ok", nil)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestMetricsMiddleware(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mw"}, nil)
	require.NoError(t, err)
	m := prometheus.NewRadarMetrics(collector)

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/v1/opportunities/:category", func(c *gin.Context) { c.Status(http.StatusOK) })
	get(r, "/api/v1/opportunities/Kitchen", nil)
	get(r, "/nowhere", nil)

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `mw_http_requests_total{method="GET",path="/api/v1/opportunities/:category",status_code="200"} 1`)
	assert.Contains(t, body, `mw_http_requests_total{method="GET",path="unmatched",status_code="404"} 1`)

	nop := gin.New()
	nop.Use(Metrics(nil))
	nop.GET("/x", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	assert.Equal(t, http.StatusAccepted, get(nop, "/x", nil).Code)
}
