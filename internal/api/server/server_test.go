package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/book-my-seat/internal/bootstrap"
	"github.com/sanosuguru/book-my-seat/internal/config"
)

func newApp(t *testing.T, srv config.ServerConfig) *bootstrap.App {
	t.Helper()
	app, err := bootstrap.Build(context.Background(), &config.Config{
		Env:      "test",
		Server:   srv,
		Storage:  config.StorageConfig{Driver: config.StorageDriverMemory},
		Checkout: config.DefaultCheckoutConfig(),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func get(e http.Handler, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNew(t *testing.T) {
	t.Run("依存先のないヘルスチェック", func(t *testing.T) {
		e := New(newApp(t, config.ServerConfig{}), nil)

		rec := get(e, "/api/v1/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	})

	t.Run("メトリクスは認証なしで公開される", func(t *testing.T) {
		e := New(newApp(t, config.ServerConfig{}), nil)

		rec := get(e, "/metrics", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("メトリクスにBasic認証をかけられる", func(t *testing.T) {
		e := New(newApp(t, config.ServerConfig{MetricsUser: "prom", MetricsPassword: "secret"}), nil)

		assert.Equal(t, http.StatusUnauthorized, get(e, "/metrics", nil).Code)

		rec := get(e, "/metrics", func(r *http.Request) { r.SetBasicAuth("prom", "secret") })
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("チェックアウトは利用者の識別が必要", func(t *testing.T) {
		e := New(newApp(t, config.ServerConfig{}), nil)

		rec := get(e, "/api/v1/bookings", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = get(e, "/api/v1/bookings", func(r *http.Request) { r.Header.Set("X-User-ID", "user-1") })
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}
