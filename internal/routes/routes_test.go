package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Conversly/lead-response/internal/api/knowledge"
	"github.com/Conversly/lead-response/internal/config"
	"github.com/Conversly/lead-response/internal/controllers"
	"github.com/Conversly/lead-response/internal/middleware"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newRouter(dbErr error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r, Dependencies{
		Config:    &config.Config{ServiceName: "lead-response", AllowedOrigins: []string{"https://app.example.org"}},
		Health:    map[string]controllers.Pinger{"database": pinger{err: dbErr}},
		Knowledge: knowledge.NewService(nil, nil, nil),
	})
	return r
}

func get(r *gin.Engine, path string, header ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthRoutes(t *testing.T) {
	r := newRouter(nil)
	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
	assert.Equal(t, http.StatusOK, get(r, "/health/live").Code)
	assert.Equal(t, http.StatusOK, get(r, "/health/ready").Code)
	assert.Contains(t, get(r, "/api/v1/status").Body.String(), `"sessions":"memory"`)

	down := newRouter(errors.New("connection refused"))
	w := get(down, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"down"`)
	assert.Equal(t, http.StatusOK, get(down, "/health/live").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(nil)
	get(r, "/health/live")
	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "api_requests_total")
}

func TestNotFoundAndRequestID(t *testing.T) {
	r := newRouter(nil)
	w := get(r, "/nope", "X-Request-ID", "rid-1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"not_found"`)
	assert.Equal(t, "rid-1", w.Header().Get("X-Request-ID"))

	w = get(r, "/health/live")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	r := newRouter(nil)
	w := get(r, "/health/live", "Origin", "https://app.example.org")
	assert.Equal(t, "https://app.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/health/live", "Origin", "https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(nil)
	req := httptest.NewRequest(http.MethodOptions, "/health/live", nil)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSWildcard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS([]string{"*"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/ping", "Origin", "https://anywhere.example.net")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
