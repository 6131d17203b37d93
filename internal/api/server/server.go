// Package server は組み立て済みのサービスから HTTP サーバーを構築する
package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/book-my-seat/internal/api"
	"github.com/sanosuguru/book-my-seat/internal/api/handler"
	"github.com/sanosuguru/book-my-seat/internal/api/middleware"
	"github.com/sanosuguru/book-my-seat/internal/bootstrap"
	"github.com/sanosuguru/book-my-seat/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/book-my-seat/internal/infrastructure/redis"
	"github.com/sanosuguru/book-my-seat/internal/pkg/metrics"
)

// New は Echo インスタンスを作成し、ミドルウェアとルートを登録する
func New(app *bootstrap.App, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	srv := app.Config.Server
	metricsHandler := echo.WrapHandler(promhttp.Handler())
	if srv.MetricsAuthEnabled() {
		e.GET("/metrics", metricsHandler, middleware.MetricsBasicAuth(srv.MetricsUser, srv.MetricsPassword))
	} else {
		e.GET("/metrics", metricsHandler)
	}

	handler.RegisterRoutes(e, handler.Handlers{
		Theater:  handler.NewTheaterHandler(app.Theaters),
		Seat:     handler.NewSeatHandler(app.Seats),
		Checkout: handler.NewCheckoutHandler(app.Checkout),
		Booking:  handler.NewBookingHandler(app.Checkout),
		Health:   handler.NewHealthHandler(healthChecks(app)),
	}, middleware.Identity(app.Config.Auth.JWTSecret))

	return e
}

func healthChecks(app *bootstrap.App) map[string]handler.Checker {
	checks := make(map[string]handler.Checker)
	if app.DB != nil {
		db := app.DB
		checks["database"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	}
	if app.Redis != nil {
		client := app.Redis
		checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, client) }
	}
	return checks
}
