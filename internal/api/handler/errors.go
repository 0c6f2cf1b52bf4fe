package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-restaurant-booking/internal/api"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/booking"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/store"
)

var badRequestErrors = []error{
	booking.ErrInvalidTimeRange,
	booking.ErrOrgNameInvalid,
	booking.ErrStoreNameInvalid,
	booking.ErrCustomerNameInvalid,
	booking.ErrPhoneNumberInvalid,
	booking.ErrGuestsCountInvalid,
	booking.ErrNotesTooLong,
	booking.ErrActorInvalid,
	slot.ErrInvalidDate,
	slot.ErrInvalidPartySize,
}

// CapacityDetails は収容人数超過時のレスポンス詳細
type CapacityDetails struct {
	SlotStart time.Time `json:"slot_start"`
	Reserved  int       `json:"reserved"`
	Requested int       `json:"requested"`
	Capacity  int       `json:"capacity"`
}

// toHTTPError はサービスのエラーをHTTPエラーに変換する
func toHTTPError(err error) error {
	var capErr *booking.CapacityExceededError
	switch {
	case errors.As(err, &capErr):
		return echo.NewHTTPError(http.StatusConflict, api.ErrorResponse{
			Error: booking.ErrCapacityExceeded.Error(),
			Details: CapacityDetails{
				SlotStart: capErr.SlotStart.UTC(),
				Reserved:  capErr.Reserved,
				Requested: capErr.Requested,
				Capacity:  capErr.Capacity,
			},
		})
	case errors.Is(err, booking.ErrCapacityExceeded), errors.Is(err, booking.ErrInvalidStatusTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, store.ErrStoreNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, slot.ErrLockTimeout):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, store.ErrInvalidConfiguration):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "内部サーバーエラー").SetInternal(err)
}

// actorFrom は X-User-ID ヘッダーから操作者を取り出す
func actorFrom(c echo.Context) (string, error) {
	userID := c.Request().Header.Get("X-User-ID")
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	return userID, nil
}
