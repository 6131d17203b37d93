package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/book-my-seat/internal/application"
	"github.com/sanosuguru/book-my-seat/internal/domain/theater"
)

type TheaterHandler struct {
	theaterService TheaterServiceInterface
}

func NewTheaterHandler(s TheaterServiceInterface) *TheaterHandler {
	return &TheaterHandler{theaterService: s}
}

type TheaterRequest struct {
	Name       string `json:"name" validate:"required" example:"PVR Screen 1"`
	MovieID    string `json:"movie_id" validate:"required" example:"movie-42"`
	MovieTitle string `json:"movie_title" example:"Interstellar"`
	StartsAt   string `json:"starts_at" validate:"required" example:"2026-03-01T18:30:00+05:30"`
	Price      int64  `json:"price" validate:"gte=0" example:"25000"`
	Currency   string `json:"currency" validate:"currency" example:"INR"`
}

type TheaterResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MovieID    string `json:"movie_id"`
	MovieTitle string `json:"movie_title,omitempty"`
	StartsAt   string `json:"starts_at"`
	Price      int64  `json:"price"`
	Currency   string `json:"currency"`
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toTheaterResponse(t *theater.Theater) *TheaterResponse {
	return &TheaterResponse{
		ID:         t.ID,
		Name:       t.Name,
		MovieID:    t.MovieID,
		MovieTitle: t.MovieTitle,
		StartsAt:   t.StartsAt.Format(time.RFC3339),
		Price:      t.Price,
		Currency:   t.Currency,
		Version:    t.Version,
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  t.UpdatedAt.Format(time.RFC3339),
	}
}

func (r *TheaterRequest) bind(c echo.Context) (time.Time, error) {
	if err := c.Bind(r); err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(r); err != nil {
		return time.Time{}, err
	}
	startsAt, err := time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "開始時刻の形式が不正です")
	}
	return startsAt, nil
}

// Create godoc
// @Summary 上映回を作成
// @Tags theaters
// @Accept json
// @Produce json
// @Param request body TheaterRequest true "上映回情報"
// @Success 201 {object} TheaterResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /theaters [post]
func (h *TheaterHandler) Create(c echo.Context) error {
	var req TheaterRequest
	startsAt, err := req.bind(c)
	if err != nil {
		return err
	}

	t, err := h.theaterService.CreateTheater(c.Request().Context(), application.CreateTheaterInput{
		Name:       req.Name,
		MovieID:    req.MovieID,
		MovieTitle: req.MovieTitle,
		StartsAt:   startsAt,
		Price:      req.Price,
		Currency:   req.Currency,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTheaterResponse(t))
}

// GetByID godoc
// @Summary 上映回を取得
// @Tags theaters
// @Produce json
// @Param id path string true "上映回ID"
// @Success 200 {object} TheaterResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /theaters/{id} [get]
func (h *TheaterHandler) GetByID(c echo.Context) error {
	t, err := h.theaterService.GetTheater(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTheaterResponse(t))
}

// List godoc
// @Summary 上映回一覧を取得
// @Tags theaters
// @Produce json
// @Param movie_id query string false "映画ID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} TheaterResponse
// @Router /theaters [get]
func (h *TheaterHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	theaters, err := h.theaterService.ListTheaters(c.Request().Context(), theater.ListFilter{
		MovieID: c.QueryParam("movie_id"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return err
	}
	responses := make([]*TheaterResponse, len(theaters))
	for i, t := range theaters {
		responses[i] = toTheaterResponse(t)
	}
	return c.JSON(http.StatusOK, responses)
}

// Update godoc
// @Summary 上映回を更新
// @Tags theaters
// @Accept json
// @Produce json
// @Param id path string true "上映回ID"
// @Param request body TheaterRequest true "上映回情報"
// @Success 200 {object} TheaterResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "楽観的ロックの競合"
// @Router /theaters/{id} [put]
func (h *TheaterHandler) Update(c echo.Context) error {
	var req TheaterRequest
	startsAt, err := req.bind(c)
	if err != nil {
		return err
	}

	t, err := h.theaterService.UpdateTheater(c.Request().Context(), application.UpdateTheaterInput{
		ID:         c.Param("id"),
		Name:       req.Name,
		MovieID:    req.MovieID,
		MovieTitle: req.MovieTitle,
		StartsAt:   startsAt,
		Price:      req.Price,
		Currency:   req.Currency,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTheaterResponse(t))
}

// Delete godoc
// @Summary 上映回を削除
// @Tags theaters
// @Param id path string true "上映回ID"
// @Success 204
// @Failure 404 {object} api.ErrorResponse
// @Router /theaters/{id} [delete]
func (h *TheaterHandler) Delete(c echo.Context) error {
	if err := h.theaterService.DeleteTheater(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
