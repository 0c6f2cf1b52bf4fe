package booking

import (
	"time"

	"github.com/google/uuid"
)

// EventType は予約ライフサイクルイベントの種別
type EventType string

const (
	EventCreated   EventType = "booking.created"
	EventUpdated   EventType = "booking.updated"
	EventCancelled EventType = "booking.cancelled"
	EventSeated    EventType = "booking.seated"
	EventCompleted EventType = "booking.completed"
)

// Event はコミット後に外部へ通知する予約イベント
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	BookingID   string    `json:"booking_id"`
	OrgName     string    `json:"org_name"`
	StoreName   string    `json:"store_name"`
	Status      Status    `json:"status"`
	GuestsCount int       `json:"guests_count"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Actor       string    `json:"actor"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent は予約のスナップショットからイベントを作る
func NewEvent(t EventType, b *Booking, actor string) *Event {
	return &Event{
		ID:          uuid.New().String(),
		Type:        t,
		BookingID:   b.ID,
		OrgName:     b.OrgName,
		StoreName:   b.StoreName,
		Status:      b.Status,
		GuestsCount: b.GuestsCount,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Actor:       actor,
		OccurredAt:  time.Now().UTC(),
	}
}
