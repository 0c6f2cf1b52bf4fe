package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type AvailabilityHandler struct {
	service AvailabilityServiceInterface
}

func NewAvailabilityHandler(s AvailabilityServiceInterface) *AvailabilityHandler {
	return &AvailabilityHandler{service: s}
}

// Get godoc
// @Summary 空き状況を取得
// @Description 店舗ローカル日付1日分の枠と、party_size 人以上空いている枠を返します
// @Tags availability
// @Produce json
// @Param org_name path string true "組織名"
// @Param store_name path string true "店舗名"
// @Param date query string true "日付（YYYY-MM-DD）"
// @Param party_size query int false "人数" default(0)
// @Success 200 {object} application.Availability
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 422 {object} api.ErrorResponse "店舗設定が不正"
// @Router /stores/{org_name}/{store_name}/availability [get]
func (h *AvailabilityHandler) Get(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date が必要です")
	}
	partySize := 0
	if raw := c.QueryParam("party_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "party_size は整数で指定してください")
		}
		partySize = n
	}
	a, err := h.service.GetAvailability(c.Request().Context(), c.Param("org_name"), c.Param("store_name"), date, partySize)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}
