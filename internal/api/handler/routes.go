package handler

import "github.com/labstack/echo/v4"

// RegisterRoutes は /health と /api/v1 配下のルートを登録する
func RegisterRoutes(e *echo.Echo, bookings *BookingHandler, availability *AvailabilityHandler, health *HealthHandler) {
	e.GET("/health", health.Check)

	v1 := e.Group("/api/v1")
	v1.POST("/bookings", bookings.Create)
	v1.GET("/bookings", bookings.List)
	v1.GET("/bookings/:id", bookings.GetByID)
	v1.PATCH("/bookings/:id", bookings.Update)
	v1.POST("/bookings/:id/cancel", bookings.Cancel)
	v1.POST("/bookings/:id/seat", bookings.Seat)
	v1.POST("/bookings/:id/complete", bookings.Complete)
	v1.GET("/stores/:org_name/:store_name/availability", availability.Get)
}
