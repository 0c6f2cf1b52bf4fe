package booking

import (
	"time"
	"unicode/utf8"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
)

// Status は予約の状態を表す
type Status string

const (
	StatusBooked    Status = "booked"
	StatusSeated    Status = "seated"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// 入力値の制約
const (
	minNameLength  = 2
	maxNameLength  = 100
	minPhoneLength = 10
	maxPhoneLength = 15
	MinGuests      = 1
	MaxGuests      = 100
	maxNotesLength = 500
)

// Booking は店舗の来店予約エンティティを表す
type Booking struct {
	ID                  string
	OrgName             string
	StoreName           string
	CustomerName        string
	CustomerPhoneNumber string
	GuestsCount         int
	StartTime           time.Time
	EndTime             time.Time
	Notes               string
	Status              Status
	CreatedBy           string
	UpdatedBy           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// storedTime は DB の TIMESTAMPTZ(3) と同じミリ秒精度に切り捨てる
// 枠集合は保存後に読み直した時刻と同じ値から計算する
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NewBooking は新しい予約を作成する
func NewBooking(orgName, storeName, customerName, phone string, guests int, start, end time.Time, notes, createdBy string) *Booking {
	now := time.Now()
	return &Booking{
		OrgName:             orgName,
		StoreName:           storeName,
		CustomerName:        customerName,
		CustomerPhoneNumber: phone,
		GuestsCount:         guests,
		StartTime:           storedTime(start),
		EndTime:             storedTime(end),
		Notes:               notes,
		Status:              StatusBooked,
		CreatedBy:           createdBy,
		UpdatedBy:           createdBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if !lengthBetween(b.OrgName, minNameLength, maxNameLength) {
		return ErrOrgNameInvalid
	}
	if !lengthBetween(b.StoreName, minNameLength, maxNameLength) {
		return ErrStoreNameInvalid
	}
	if !lengthBetween(b.CustomerName, minNameLength, maxNameLength) {
		return ErrCustomerNameInvalid
	}
	if !lengthBetween(b.CustomerPhoneNumber, minPhoneLength, maxPhoneLength) {
		return ErrPhoneNumberInvalid
	}
	if b.GuestsCount < MinGuests || b.GuestsCount > MaxGuests {
		return ErrGuestsCountInvalid
	}
	if utf8.RuneCountInString(b.Notes) > maxNotesLength {
		return ErrNotesTooLong
	}
	if !b.EndTime.After(b.StartTime) {
		return ErrInvalidTimeRange
	}
	return nil
}

// ValidateActor は操作者IDを検証する
func ValidateActor(actor string) error {
	if !lengthBetween(actor, minNameLength, maxNameLength) {
		return ErrActorInvalid
	}
	return nil
}

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

// Slots は予約時間帯が掛かる枠開始時刻を返す
func (b *Booking) Slots(slotMinutes int) []time.Time {
	return slot.GenerateRangeSlots(b.StartTime, b.EndTime, slotMinutes)
}

// Dates は予約時間帯が店舗タイムゾーンで掛かる暦日を返す
func (b *Booking) Dates(loc *time.Location) []slot.Date {
	return slot.DatesSpanned(b.StartTime, b.EndTime, loc)
}

// IsBooked は枠を消費中（未着席）かを返す
func (b *Booking) IsBooked() bool {
	return b.Status == StatusBooked
}

// Seat は予約を着席済みにする
func (b *Booking) Seat(by string) error {
	return b.transition(StatusBooked, StatusSeated, by)
}

// Complete は着席済みの予約を完了にする
func (b *Booking) Complete(by string) error {
	return b.transition(StatusSeated, StatusCompleted, by)
}

// Cancel は予約をキャンセルする
func (b *Booking) Cancel(by string) error {
	return b.transition(StatusBooked, StatusCancelled, by)
}

func (b *Booking) transition(from, to Status, by string) error {
	if b.Status != from {
		return ErrInvalidStatusTransition
	}
	b.Status = to
	b.UpdatedBy = by
	b.UpdatedAt = time.Now()
	return nil
}

// UpdatePatch は予約更新の差分（nil は現在値を維持）
type UpdatePatch struct {
	CustomerName        *string
	CustomerPhoneNumber *string
	GuestsCount         *int
	StartTime           *time.Time
	EndTime             *time.Time
	Notes               *string
}

// ApplyPatch は差分を適用した新しい予約を返す（レシーバは変更しない）
func (b *Booking) ApplyPatch(p UpdatePatch, by string) (*Booking, error) {
	if !b.IsBooked() {
		return nil, ErrInvalidStatusTransition
	}
	next := *b
	if p.CustomerName != nil {
		next.CustomerName = *p.CustomerName
	}
	if p.CustomerPhoneNumber != nil {
		next.CustomerPhoneNumber = *p.CustomerPhoneNumber
	}
	if p.GuestsCount != nil {
		next.GuestsCount = *p.GuestsCount
	}
	if p.StartTime != nil {
		next.StartTime = storedTime(*p.StartTime)
	}
	if p.EndTime != nil {
		next.EndTime = storedTime(*p.EndTime)
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedBy = by
	next.UpdatedAt = time.Now()
	return &next, nil
}
