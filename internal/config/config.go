package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション設定を表す
type Config struct {
	Env      string
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Auth     AuthConfig
	Checkout CheckoutConfig
	Worker   WorkerConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MetricsUser / MetricsPassword が両方設定されている場合 /metrics に Basic 認証をかける
	MetricsUser     string
	MetricsPassword string
}

// StorageConfig は永続化先の設定
type StorageConfig struct {
	Driver         string // postgres | memory
	MigrationsPath string
	AutoMigrate    bool
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// RabbitMQConfig は予約確定通知の送信先設定
// URL が空の場合はログ出力のみの通知にフォールバックする
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// AuthConfig は利用者識別の設定
// JWTSecret が空の場合は X-User-ID ヘッダーで識別する
type AuthConfig struct {
	JWTSecret string
}

// CheckoutConfig は仮押さえ・価格の設定
type CheckoutConfig struct {
	HoldDuration       time.Duration
	DefaultTicketPrice int64 // 最小通貨単位
	Currency           string
}

// WorkerConfig はバックグラウンドワーカーの設定
type WorkerConfig struct {
	SweepInterval time.Duration
	SweepBatch    int
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Load は .env ファイル（存在すれば）と環境変数から設定を読み込む
// 既に設定済みの環境変数は .env で上書きしない
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv は環境変数のみから設定を読み込む
// DATABASE_URL / REDIS_URL が設定されている場合は個別の設定より優先する
func FromEnv() *Config {
	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			MetricsUser:     getEnv("METRICS_USER", ""),
			MetricsPassword: getEnv("METRICS_PASSWORD", ""),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
			AutoMigrate:    getBoolEnv("AUTO_MIGRATE", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "book_my_seat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   getEnv("RABBITMQ_URL", ""),
			Queue: getEnv("RABBITMQ_QUEUE", "booking.confirmed"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Checkout: CheckoutConfig{
			HoldDuration:       getDurationEnv("HOLD_DURATION", 5*time.Minute),
			DefaultTicketPrice: getInt64Env("DEFAULT_TICKET_PRICE", 25000),
			Currency:           strings.ToUpper(getEnv("CURRENCY", "INR")),
		},
		Worker: WorkerConfig{
			SweepInterval: getDurationEnv("WORKER_SWEEP_INTERVAL", 30*time.Second),
			SweepBatch:    getIntEnv("WORKER_SWEEP_BATCH", 100),
		},
	}

	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		applyDatabaseURL(&cfg.Database, raw)
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		applyRedisURL(&cfg.Redis, raw)
	}
	return cfg
}

func applyDatabaseURL(c *DatabaseConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	c.Host = u.Hostname()
	if port := u.Port(); port != "" {
		c.Port = port
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	c.DBName = strings.TrimPrefix(u.Path, "/")
	// マネージドDBはTLS前提のため、指定がなければ require
	c.SSLMode = "require"
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}
}

func applyRedisURL(c *RedisConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	c.Host = u.Hostname()
	if port := u.Port(); port != "" {
		c.Port = port
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
}

// DefaultCheckoutConfig はデフォルトの仮押さえ・価格設定を返す
func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		HoldDuration:       5 * time.Minute,
		DefaultTicketPrice: 25000,
		Currency:           "INR",
	}
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// MetricsAuthEnabled は /metrics に認証が必要かを返す
func (c *ServerConfig) MetricsAuthEnabled() bool {
	return c.MetricsUser != "" && c.MetricsPassword != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
