// Package bootstrap は設定から依存関係を組み立てる
// API サーバーと運用CLIで同じ組み立てを共有する
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/application"
	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/domain/booking"
	"github.com/sanosuguru/book-my-seat/internal/domain/checkout"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
	"github.com/sanosuguru/book-my-seat/internal/domain/transaction"
	"github.com/sanosuguru/book-my-seat/internal/infrastructure/memory"
	"github.com/sanosuguru/book-my-seat/internal/infrastructure/postgres"
	"github.com/sanosuguru/book-my-seat/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/book-my-seat/internal/infrastructure/redis"
	"github.com/sanosuguru/book-my-seat/internal/pkg/clock"
	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
	"github.com/sanosuguru/book-my-seat/internal/pkg/metrics"
)

// ErrUnknownStorageDriver は STORAGE_DRIVER が未対応の値の場合に返す
var ErrUnknownStorageDriver = errors.New("未対応のストレージドライバです")

// Repositories は永続化層の実装一式
type Repositories struct {
	TxManager transaction.Manager
	Theaters  theater.Repository
	Seats     seat.Repository
	Checkouts checkout.Repository
	Bookings  booking.Repository
}

// App は組み立て済みのサービスと外部接続を保持する
type App struct {
	Config *config.Config
	DB     *sqlx.DB        // memory ドライバの場合は nil
	Redis  *goredis.Client // Redis 無効時は nil

	Repos    Repositories
	Ledger   *application.BookingLedger
	Theaters *application.TheaterService
	Seats    *application.SeatService
	Checkout *application.CheckoutService

	publisher *rabbitmq.Publisher
}

// Option は Build の組み立てを変更する
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock はサービスが参照する時計を差し替える
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// Build は設定に従って App を組み立てる
// m が nil の場合はメトリクスを記録しない
func Build(ctx context.Context, cfg *config.Config, m *metrics.Metrics, opts ...Option) (*App, error) {
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}
	app := &App{Config: cfg}

	if err := app.openStorage(); err != nil {
		return nil, err
	}

	var (
		locker application.SeatLocker
		cache  application.AvailabilityCache
	)
	if cfg.Redis.Enabled {
		client, err := redisinfra.Connect(ctx, &cfg.Redis)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Redis = client
		locker = redisinfra.NewSeatLocker(redisinfra.NewLockManager(client), redisinfra.DefaultSeatLockOptions(), m)
		cache = redisinfra.NewSeatCache(client)
		logger.Info("Redisに接続しました", zap.String("addr", cfg.Redis.Addr()))
	}

	var notifier application.Notifier
	if cfg.RabbitMQ.URL != "" {
		app.publisher = rabbitmq.NewPublisher(cfg.RabbitMQ)
		notifier = app.publisher
	} else {
		notifier = application.NewLogNotifier(logger.Get())
	}

	r := app.Repos
	hold := cfg.Checkout.HoldDuration

	app.Ledger = application.NewBookingLedger(r.TxManager, r.Bookings, r.Seats, r.Checkouts, hold, o.clock)
	app.Ledger.SetMetrics(m)
	app.Ledger.SetSweepBatch(cfg.Worker.SweepBatch)

	app.Theaters = application.NewTheaterService(r.Theaters, cfg.Checkout)
	app.Seats = application.NewSeatService(r.Seats, r.Theaters, cache, o.clock)

	coOpts := []application.CheckoutOption{
		application.WithNotifier(notifier),
		application.WithMetrics(m),
		application.WithClock(o.clock),
	}
	if locker != nil {
		coOpts = append(coOpts, application.WithSeatLocker(locker))
	}
	if cache != nil {
		coOpts = append(coOpts, application.WithAvailabilityCache(cache))
	}
	app.Checkout = application.NewCheckoutService(
		r.TxManager,
		application.CheckoutRepositories{Theaters: r.Theaters, Seats: r.Seats, Checkouts: r.Checkouts, Bookings: r.Bookings},
		application.NewReservationManager(r.Seats, hold, o.clock),
		app.Ledger,
		cfg.Checkout,
		coOpts...,
	)
	return app, nil
}

func (a *App) openStorage() error {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return err
		}
		if cfg.Storage.AutoMigrate {
			if err := postgres.RunMigrations(db.DB, cfg.Storage.MigrationsPath); err != nil {
				_ = db.Close()
				return err
			}
		}
		a.DB = db
		a.Repos = Repositories{
			TxManager: postgres.NewTxManager(db),
			Theaters:  postgres.NewTheaterRepository(db),
			Seats:     postgres.NewSeatRepository(db),
			Checkouts: postgres.NewCheckoutRepository(db),
			Bookings:  postgres.NewBookingRepository(db),
		}
		logger.Info("データベースに接続しました", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	case config.StorageDriverMemory:
		store := memory.NewStore()
		a.Repos = Repositories{
			TxManager: memory.NewTxManager(store),
			Theaters:  memory.NewTheaterRepository(store),
			Seats:     memory.NewSeatRepository(store),
			Checkouts: memory.NewCheckoutRepository(store),
			Bookings:  memory.NewBookingRepository(store),
		}
		logger.Warn("インメモリストレージで起動しました。データはプロセス終了時に失われます")

	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageDriver, cfg.Storage.Driver)
	}
	return nil
}

// Close は送信中の通知を待ってから外部接続を閉じる
func (a *App) Close() {
	if a.Checkout != nil {
		a.Checkout.WaitNotifications()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.Warn("RabbitMQ接続のクローズに失敗", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("Redis接続のクローズに失敗", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.Warn("データベース接続のクローズに失敗", zap.Error(err))
		}
	}
}
