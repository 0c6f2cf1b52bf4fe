package handler

import (
	"context"

	"github.com/sanosuguru/go-restaurant-booking/internal/application"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/booking"
)

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error)
	UpdateBooking(ctx context.Context, input application.UpdateBookingInput) (*booking.Booking, error)
	CancelBooking(ctx context.Context, id, cancelledBy string) (*booking.Booking, error)
	SeatBooking(ctx context.Context, id, updatedBy string) (*booking.Booking, error)
	CompleteBooking(ctx context.Context, id, updatedBy string) (*booking.Booking, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	ListBookings(ctx context.Context, orgName, storeName string, limit, offset int) ([]*booking.Booking, error)
}

// AvailabilityServiceInterface は空き状況サービスのインターフェース
type AvailabilityServiceInterface interface {
	GetAvailability(ctx context.Context, orgName, storeName, date string, partySize int) (*application.Availability, error)
}
