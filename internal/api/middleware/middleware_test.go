package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/book-my-seat/internal/pkg/metrics"
)

func TestSetupMiddleware(t *testing.T) {
	e := echo.New()
	SetupMiddleware(e)

	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "test")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestSetupMiddleware_Preflight(t *testing.T) {
	e := echo.New()
	SetupMiddleware(e)
	e.POST("/checkouts", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodOptions, "/checkouts", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), HeaderUserID)
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name    string
		handler echo.HandlerFunc
		want    int
	}{
		{
			name:    "正常終了",
			handler: func(c echo.Context) error { return c.String(http.StatusOK, "success") },
			want:    http.StatusOK,
		},
		{
			name:    "HTTPErrorはステータスに変換される",
			handler: func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadRequest, "bad request") },
			want:    http.StatusBadRequest,
		},
		{
			name:    "サーバーエラー",
			handler: func(c echo.Context) error { return c.String(http.StatusInternalServerError, "internal error") },
			want:    http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(RequestLogger())
			e.GET("/test", tt.handler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestPrometheusMiddleware(t *testing.T) {
	e := echo.New()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	e.Use(PrometheusMiddleware(m))
	e.GET("/theaters/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/error", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request")
	})

	for _, path := range []string{"/theaters/a", "/theaters/b", "/error"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	// ルート定義単位で集計される
	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/theaters/:id", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/error", "400")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var foundDuration bool
	for _, f := range families {
		if f.GetName() == "http_request_duration_seconds" {
			foundDuration = true
		}
	}
	assert.True(t, foundDuration, "http_request_duration_seconds should be recorded")
}

func TestPrometheusMiddleware_NilMetrics(t *testing.T) {
	e := echo.New()
	e.Use(PrometheusMiddleware(nil))
	e.GET("/test", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
