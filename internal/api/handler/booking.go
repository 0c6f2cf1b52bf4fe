package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-restaurant-booking/internal/application"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/booking"
)

type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	OrgName             string    `json:"org_name" validate:"required"`
	StoreName           string    `json:"store_name" validate:"required"`
	CustomerName        string    `json:"customer_name" validate:"required"`
	CustomerPhoneNumber string    `json:"customer_phone_number" validate:"required"`
	GuestsCount         int       `json:"guests_count" validate:"required,min=1"`
	StartTime           time.Time `json:"start_time" validate:"required"`
	EndTime             time.Time `json:"end_time" validate:"required"`
	Notes               string    `json:"notes" validate:"max=500"`
}

// UpdateBookingRequest は PATCH の本文。省略したフィールドは変更しない
type UpdateBookingRequest struct {
	CustomerName        *string    `json:"customer_name"`
	CustomerPhoneNumber *string    `json:"customer_phone_number"`
	GuestsCount         *int       `json:"guests_count" validate:"omitempty,min=1"`
	StartTime           *time.Time `json:"start_time"`
	EndTime             *time.Time `json:"end_time"`
	Notes               *string    `json:"notes" validate:"omitempty,max=500"`
}

type BookingResponse struct {
	ID                  string    `json:"id"`
	OrgName             string    `json:"org_name"`
	StoreName           string    `json:"store_name"`
	CustomerName        string    `json:"customer_name"`
	CustomerPhoneNumber string    `json:"customer_phone_number"`
	GuestsCount         int       `json:"guests_count"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	Notes               string    `json:"notes,omitempty"`
	Status              string    `json:"status"`
	CreatedBy           string    `json:"created_by"`
	UpdatedBy           string    `json:"updated_by,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID: b.ID, OrgName: b.OrgName, StoreName: b.StoreName,
		CustomerName: b.CustomerName, CustomerPhoneNumber: b.CustomerPhoneNumber,
		GuestsCount: b.GuestsCount, StartTime: b.StartTime, EndTime: b.EndTime,
		Notes: b.Notes, Status: string(b.Status),
		CreatedBy: b.CreatedBy, UpdatedBy: b.UpdatedBy,
		CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

// Create godoc
// @Summary 予約を作成
// @Description 予約時間に掛かる全枠の収容人数を確認して予約を作成します
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse "店舗が見つからない"
// @Failure 409 {object} api.ErrorResponse "収容人数超過"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		OrgName:             req.OrgName,
		StoreName:           req.StoreName,
		CustomerName:        req.CustomerName,
		CustomerPhoneNumber: req.CustomerPhoneNumber,
		GuestsCount:         req.GuestsCount,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		Notes:               req.Notes,
		CreatedBy:           userID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// List godoc
// @Summary 店舗の予約一覧を取得
// @Description キャンセル済みを除く予約を作成日時の新しい順に返します
// @Tags bookings
// @Produce json
// @Param org_name query string true "組織名"
// @Param store_name query string true "店舗名"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	orgName, storeName := c.QueryParam("org_name"), c.QueryParam("store_name")
	if orgName == "" || storeName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "org_name と store_name が必要です")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	bookings, err := h.service.ListBookings(c.Request().Context(), orgName, storeName, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary 予約を取得
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.service.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Update godoc
// @Summary 予約を変更
// @Description 指定したフィールドのみ変更し、新旧の枠の予約数を差分で調整します
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "予約ID"
// @Param request body UpdateBookingRequest true "変更内容"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "収容人数超過または状態不正"
// @Router /bookings/{id} [patch]
func (h *BookingHandler) Update(c echo.Context) error {
	userID, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req UpdateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.UpdateBooking(c.Request().Context(), application.UpdateBookingInput{
		ID:                  c.Param("id"),
		CustomerName:        req.CustomerName,
		CustomerPhoneNumber: req.CustomerPhoneNumber,
		GuestsCount:         req.GuestsCount,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		Notes:               req.Notes,
		UpdatedBy:           userID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 予約をキャンセルし、枠の予約数を戻します
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.service.CancelBooking)
}

// Seat godoc
// @Summary 予約を着席済みにする
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /bookings/{id}/seat [post]
func (h *BookingHandler) Seat(c echo.Context) error {
	return h.transition(c, h.service.SeatBooking)
}

// Complete godoc
// @Summary 予約を完了にする
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /bookings/{id}/complete [post]
func (h *BookingHandler) Complete(c echo.Context) error {
	return h.transition(c, h.service.CompleteBooking)
}

func (h *BookingHandler) transition(c echo.Context, fn func(ctx context.Context, id, by string) (*booking.Booking, error)) error {
	userID, err := actorFrom(c)
	if err != nil {
		return err
	}
	b, err := fn(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
