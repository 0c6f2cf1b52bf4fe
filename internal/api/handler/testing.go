package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-restaurant-booking/internal/api"
)

// NewTestEcho はテスト用のEchoインスタンスを作成する（本番と同じバリデーターとエラーハンドラー）
func NewTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}
