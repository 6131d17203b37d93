package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		logLevel string
	}{
		{"開発環境", "development", ""},
		{"本番環境", "production", ""},
		{"LOG_LEVEL指定", "development", "DEBUG"},
		{"無効なLOG_LEVELでも動作する", "production", "invalid_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)

			l := NewLogger(tt.env)

			require.NotNil(t, l)
			assert.NotPanics(t, func() { l.Info("test message") })
		})
	}
}

func TestNewLogger_LogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	l := NewLogger("production")

	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
}

func TestSetAndPackageFunctions(t *testing.T) {
	original := Get()
	defer Set(original)

	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))

	Info("チェックアウト開始", UserID("user-1"), TheaterID("theater-1"))
	Warn("期限切れ", CheckoutID("co-1"))
	Error("失敗", SeatIDs([]string{"s1", "s2"}))
	Debug("debug")
	With(zap.String("key", "value")).Info("with")

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, "user-1", entries[0].ContextMap()["user_id"])
	assert.Equal(t, "theater-1", entries[0].ContextMap()["theater_id"])
	assert.Equal(t, "co-1", entries[1].ContextMap()["checkout_id"])
	assert.Equal(t, []interface{}{"s1", "s2"}, entries[2].ContextMap()["seat_ids"])
	assert.Equal(t, "value", entries[4].ContextMap()["key"])
	assert.NotPanics(t, func() { _ = Sync() })
}
