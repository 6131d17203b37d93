package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/book-my-seat/internal/pkg/logger"
	"github.com/sanosuguru/book-my-seat/internal/pkg/metrics"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除をアトミックに実行する
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// DistributedLock は Redis を使用した分散ロック
type DistributedLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// LockManager は分散ロックを管理する
type LockManager struct {
	client *redis.Client
}

func NewLockManager(client *redis.Client) *LockManager {
	return &LockManager{client: client}
}

// AcquireLock はロックを取得する
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*DistributedLock, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	lockValue := uuid.New().String()

	// キーが存在しない場合のみ設定
	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &DistributedLock{
		client: m.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// AcquireLockWithRetry はリトライ付きでロックを取得する
func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*DistributedLock, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lock, err := m.AcquireLock(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		lastErr = err
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, lastErr
}

// Key はロックの Redis キーを返す
func (l *DistributedLock) Key() string {
	return l.key
}

// Release はロックを解放する
func (l *DistributedLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// Extend はロックの有効期限を延長する
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.value, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("ロック延長に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	l.ttl = ttl
	return nil
}

// SeatLockOptions は座席ロックの取得パラメータ
type SeatLockOptions struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultSeatLockOptions はチェックアウト用のデフォルト値
func DefaultSeatLockOptions() SeatLockOptions {
	return SeatLockOptions{TTL: 10 * time.Second, MaxRetries: 3, RetryDelay: 100 * time.Millisecond}
}

// SeatLocker は上映回の座席集合に対する分散ロック
// 同じ座席集合を選んだチェックアウト同士をDBに到達する前に直列化する
type SeatLocker struct {
	manager *LockManager
	opts    SeatLockOptions
	metrics *metrics.Metrics
}

func NewSeatLocker(manager *LockManager, opts SeatLockOptions, m *metrics.Metrics) *SeatLocker {
	return &SeatLocker{manager: manager, opts: opts, metrics: m}
}

// LockSeats は座席集合のロックを取得し、解放関数を返す
func (l *SeatLocker) LockSeats(ctx context.Context, theaterID string, seatIDs []string) (func(context.Context), error) {
	key := SeatLockKey(theaterID, seatIDs)

	start := time.Now()
	lock, err := l.manager.AcquireLockWithRetry(ctx, key, l.opts.TTL, l.opts.MaxRetries, l.opts.RetryDelay)
	l.metrics.ObserveLock("acquire", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) {
		start := time.Now()
		err := lock.Release(ctx)
		l.metrics.ObserveLock("release", err == nil, time.Since(start))
		if err != nil {
			logger.Warn("座席ロックの解放に失敗しました", zap.String("key", lock.Key()), zap.Error(err))
		}
	}, nil
}

// SeatLockKey は座席IDからロックキーを生成する（ソートして順序に依存しないようにする）
func SeatLockKey(theaterID string, seatIDs []string) string {
	sorted := make([]string, len(seatIDs))
	copy(sorted, seatIDs)
	sort.Strings(sorted)
	return "seats:" + theaterID + ":" + strings.Join(sorted, ",")
}
