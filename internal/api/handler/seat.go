package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/book-my-seat/internal/application"
	"github.com/sanosuguru/book-my-seat/internal/domain/seat"
)

type SeatHandler struct {
	service SeatServiceInterface
}

func NewSeatHandler(s SeatServiceInterface) *SeatHandler {
	return &SeatHandler{service: s}
}

type CreateSeatRequest struct {
	SeatNumber string `json:"seat_number" validate:"required,max=10"`
}

// CreateSeatLayoutRequest は行（A〜Z）× 列の座席配置
type CreateSeatLayoutRequest struct {
	Rows   int `json:"rows" validate:"required,min=1,max=26"`
	PerRow int `json:"per_row" validate:"required,min=1,max=100"`
}

// SeatResponse は読み取り時点の状態を含む座席
// 仮押さえしている利用者は公開しない
type SeatResponse struct {
	ID         string `json:"id"`
	TheaterID  string `json:"theater_id"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
}

func toSeatResponse(v application.SeatView) SeatResponse {
	return SeatResponse{
		ID:         v.Seat.ID,
		TheaterID:  v.Seat.TheaterID,
		SeatNumber: v.Seat.SeatNumber,
		Status:     string(v.Status),
	}
}

// ListByTheater godoc
// @Summary 上映回の座席一覧を取得
// @Description 期限切れの仮押さえは available として返します
// @Tags seats
// @Produce json
// @Param theater_id path string true "上映回ID"
// @Param status query string false "available / reserved / booked で絞り込み"
// @Success 200 {array} SeatResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /theaters/{theater_id}/seats [get]
func (h *SeatHandler) ListByTheater(c echo.Context) error {
	views, err := h.service.ListSeats(c.Request().Context(), c.Param("theater_id"))
	if err != nil {
		return err
	}
	status := c.QueryParam("status")
	resp := make([]SeatResponse, 0, len(views))
	for _, v := range views {
		if status != "" && string(v.Status) != status {
			continue
		}
		resp = append(resp, toSeatResponse(v))
	}
	return c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary 座席を1席追加
// @Tags seats
// @Accept json
// @Produce json
// @Param theater_id path string true "上映回ID"
// @Param request body CreateSeatRequest true "座席番号"
// @Success 201 {object} SeatResponse
// @Failure 409 {object} api.ErrorResponse "座席番号の重複"
// @Router /theaters/{theater_id}/seats [post]
func (h *SeatHandler) Create(c echo.Context) error {
	var req CreateSeatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s, err := h.service.CreateSeat(c.Request().Context(), application.CreateSeatInput{
		TheaterID:  c.Param("theater_id"),
		SeatNumber: req.SeatNumber,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSeatResponse(application.SeatView{Seat: s, Status: seat.StatusAvailable}))
}

// CreateBulk godoc
// @Summary 座席配置を一括作成
// @Description A1..A{per_row}, B1.. の形式で rows × per_row 席を作成します
// @Tags seats
// @Accept json
// @Produce json
// @Param theater_id path string true "上映回ID"
// @Param request body CreateSeatLayoutRequest true "座席配置"
// @Success 201 {array} SeatResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /theaters/{theater_id}/seats/bulk [post]
func (h *SeatHandler) CreateBulk(c echo.Context) error {
	var req CreateSeatLayoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seats, err := h.service.CreateSeatLayout(c.Request().Context(), application.CreateSeatLayoutInput{
		TheaterID: c.Param("theater_id"),
		Rows:      req.Rows,
		PerRow:    req.PerRow,
	})
	if err != nil {
		return err
	}
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = toSeatResponse(application.SeatView{Seat: s, Status: seat.StatusAvailable})
	}
	return c.JSON(http.StatusCreated, resp)
}

// CountAvailable godoc
// @Summary 空席数を取得
// @Tags seats
// @Produce json
// @Param theater_id path string true "上映回ID"
// @Success 200 {object} map[string]int
// @Router /theaters/{theater_id}/seats/available/count [get]
func (h *SeatHandler) CountAvailable(c echo.Context) error {
	count, err := h.service.CountAvailableSeats(c.Request().Context(), c.Param("theater_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}
