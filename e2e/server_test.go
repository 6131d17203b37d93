package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/book-my-seat/internal/api/server"
	"github.com/sanosuguru/book-my-seat/internal/bootstrap"
	"github.com/sanosuguru/book-my-seat/internal/config"
	"github.com/sanosuguru/book-my-seat/internal/pkg/clock"
)

// TestServer はE2Eテスト用のサーバー
// インメモリストレージと差し替え可能な時計で API 全体を組み立てる
type TestServer struct {
	Echo  *echo.Echo
	App   *bootstrap.App
	Clock *clock.Fake
}

// NewTestServer はテストごとに独立したサーバーを作成する
func NewTestServer(t *testing.T, mutate ...func(*config.Config)) *TestServer {
	t.Helper()
	cfg := &config.Config{
		Env:      "test",
		Storage:  config.StorageConfig{Driver: config.StorageDriverMemory},
		Checkout: config.DefaultCheckoutConfig(),
		Worker:   config.WorkerConfig{SweepInterval: time.Minute, SweepBatch: 100},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	fake := clock.NewFake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	app, err := bootstrap.Build(context.Background(), cfg, nil, bootstrap.WithClock(fake))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return &TestServer{Echo: server.New(app, nil), App: app, Clock: fake}
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// As は X-User-ID ヘッダーで利用者を指定してリクエストする
func (s *TestServer) As(userID, method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.Request(method, path, body, map[string]string{"X-User-ID": userID})
}

type showing struct {
	TheaterID string
	SeatIDs   map[string]string // 座席番号 -> ID
}

// createShowing は上映回と rows × perRow の座席を作成する
func (s *TestServer) createShowing(t *testing.T, rows, perRow int) showing {
	t.Helper()
	rec := s.Request(http.MethodPost, "/api/v1/theaters", map[string]interface{}{
		"name":        "PVR Screen 1",
		"movie_id":    "movie-42",
		"movie_title": "Interstellar",
		"starts_at":   s.Clock.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var th map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &th))
	theaterID := th["id"].(string)

	rec = s.Request(http.MethodPost, fmt.Sprintf("/api/v1/theaters/%s/seats/bulk", theaterID),
		map[string]int{"rows": rows, "per_row": perRow}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var seats []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seats))

	ids := make(map[string]string, len(seats))
	for _, se := range seats {
		ids[se["seat_number"].(string)] = se["id"].(string)
	}
	return showing{TheaterID: theaterID, SeatIDs: ids}
}

func (sh showing) ids(numbers ...string) []string {
	out := make([]string, len(numbers))
	for i, n := range numbers {
		out[i] = sh.SeatIDs[n]
	}
	return out
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seatStatuses は座席番号ごとの読み取り時点の状態を返す
func (s *TestServer) seatStatuses(t *testing.T, theaterID string) map[string]string {
	t.Helper()
	rec := s.Request(http.MethodGet, fmt.Sprintf("/api/v1/theaters/%s/seats", theaterID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var seats []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seats))
	out := make(map[string]string, len(seats))
	for _, se := range seats {
		out[se["seat_number"].(string)] = se["status"].(string)
	}
	return out
}
