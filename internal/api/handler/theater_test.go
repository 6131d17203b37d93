package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/book-my-seat/internal/application"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
)

func sampleTheater() *theater.Theater {
	startsAt := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	t := theater.NewTheater("PVR Screen 1", "movie-42", "Interstellar", startsAt, 25000, "INR")
	t.ID = "theater-1"
	return t
}

func TestTheaterHandler_Create(t *testing.T) {
	body := `{"name":"PVR Screen 1","movie_id":"movie-42","movie_title":"Interstellar","starts_at":"2026-03-01T18:30:00Z","price":25000,"currency":"INR"}`

	t.Run("正常に上映回を作成できる", func(t *testing.T) {
		s := newTestServer()
		s.theaters.On("CreateTheater", mock.Anything, application.CreateTheaterInput{
			Name:       "PVR Screen 1",
			MovieID:    "movie-42",
			MovieTitle: "Interstellar",
			StartsAt:   time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC),
			Price:      25000,
			Currency:   "INR",
		}).Return(sampleTheater(), nil)

		rec := s.do(http.MethodPost, "/api/v1/theaters", "", body)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp TheaterResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "theater-1", resp.ID)
		assert.Equal(t, "2026-03-01T18:30:00Z", resp.StartsAt)
		s.theaters.AssertExpectations(t)
	})

	tests := []struct {
		name string
		body string
	}{
		{"名前がない", `{"movie_id":"m","starts_at":"2026-03-01T18:30:00Z"}`},
		{"開始時刻の形式が不正", `{"name":"n","movie_id":"m","starts_at":"2026/03/01"}`},
		{"通貨コードが小文字", `{"name":"n","movie_id":"m","starts_at":"2026-03-01T18:30:00Z","currency":"inr"}`},
		{"価格が負", `{"name":"n","movie_id":"m","starts_at":"2026-03-01T18:30:00Z","price":-1}`},
		{"JSONが壊れている", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name+"なら400", func(t *testing.T) {
			s := newTestServer()
			rec := s.do(http.MethodPost, "/api/v1/theaters", "", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			s.theaters.AssertNotCalled(t, "CreateTheater", mock.Anything, mock.Anything)
		})
	}
}

func TestTheaterHandler_GetByID(t *testing.T) {
	t.Run("取得", func(t *testing.T) {
		s := newTestServer()
		s.theaters.On("GetTheater", mock.Anything, "theater-1").Return(sampleTheater(), nil)

		rec := s.do(http.MethodGet, "/api/v1/theaters/theater-1", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"movie_title":"Interstellar"`)
	})

	t.Run("見つからなければ404", func(t *testing.T) {
		s := newTestServer()
		s.theaters.On("GetTheater", mock.Anything, "missing").Return(nil, theater.ErrTheaterNotFound)

		rec := s.do(http.MethodGet, "/api/v1/theaters/missing", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTheaterHandler_List(t *testing.T) {
	t.Run("全件", func(t *testing.T) {
		s := newTestServer()
		s.theaters.On("ListTheaters", mock.Anything, theater.ListFilter{Limit: 20}).
			Return([]*theater.Theater{sampleTheater()}, nil)

		rec := s.do(http.MethodGet, "/api/v1/theaters?limit=20", "", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []TheaterResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp, 1)
	})

	t.Run("movie_id で絞り込む", func(t *testing.T) {
		s := newTestServer()
		s.theaters.On("ListTheaters", mock.Anything, theater.ListFilter{MovieID: "movie-42", Offset: 5}).
			Return([]*theater.Theater{}, nil)

		rec := s.do(http.MethodGet, "/api/v1/theaters?movie_id=movie-42&offset=5", "", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		s.theaters.AssertExpectations(t)
	})
}

func TestTheaterHandler_UpdateAndDelete(t *testing.T) {
	body := `{"name":"Screen 2","movie_id":"movie-42","starts_at":"2026-03-01T21:00:00Z","price":30000}`

	t.Run("更新", func(t *testing.T) {
		s := newTestServer()
		updated := sampleTheater()
		updated.Name = "Screen 2"
		updated.Version = 1
		s.theaters.On("UpdateTheater", mock.Anything, mock.MatchedBy(func(in application.UpdateTheaterInput) bool {
			return in.ID == "theater-1" && in.Name == "Screen 2" && in.Price == 30000
		})).Return(updated, nil)

		rec := s.do(http.MethodPut, "/api/v1/theaters/theater-1", "", body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"version":1`)
	})

	t.Run("楽観的ロックの競合は409", func(t *testing.T) {
		s := newTestServer()
		s.theaters.On("UpdateTheater", mock.Anything, mock.Anything).Return(nil, theater.ErrOptimisticLockConflict)

		rec := s.do(http.MethodPut, "/api/v1/theaters/theater-1", "", body)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("削除", func(t *testing.T) {
		s := newTestServer()
		s.theaters.On("DeleteTheater", mock.Anything, "theater-1").Return(nil)

		rec := s.do(http.MethodDelete, "/api/v1/theaters/theater-1", "", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
