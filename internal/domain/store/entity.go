package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// Hours は曜日名（小文字の英語）ごとの [開店, 閉店]（HH:MM）
// 値が nil の曜日は定休日
type Hours map[string]*[2]string

// For は曜日の営業時間を返す
func (h Hours) For(day time.Weekday) (string, string, bool) {
	v, ok := h[strings.ToLower(day.String())]
	if !ok || v == nil {
		return "", "", false
	}
	return v[0], v[1], true
}

// ParseHours は store_hour カラムの JSON を解釈する
// 曜日の値は ["09:00","17:00"]、null、"closed" のいずれか
func ParseHours(raw []byte) (Hours, error) {
	hours := Hours{}
	if len(raw) == 0 {
		return hours, nil
	}
	var days map[string]json.RawMessage
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("%w: store_hour: %v", ErrInvalidConfiguration, err)
	}
	for day, v := range days {
		key := strings.ToLower(day)
		var pair [2]string
		if err := json.Unmarshal(v, &pair); err != nil {
			// null や "closed" は定休日
			hours[key] = nil
			continue
		}
		hours[key] = &pair
	}
	return hours, nil
}

// Store は予約エンジンが参照する店舗設定（読み取り専用）
type Store struct {
	ID                  string
	OrgName             string
	StoreName           string
	Timezone            string
	Hours               Hours
	DineInCapacity      int
	SlotDurationMinutes int
	IsActive            bool
}

// Validate は容量と枠幅、タイムゾーンを検証する
func (s *Store) Validate() error {
	if s.DineInCapacity <= 0 {
		return fmt.Errorf("%w: dinein_capacity=%d", ErrInvalidConfiguration, s.DineInCapacity)
	}
	if s.SlotDurationMinutes <= 0 {
		return fmt.Errorf("%w: slot_duration_minutes=%d", ErrInvalidConfiguration, s.SlotDurationMinutes)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Location は店舗のタイムゾーンを返す（未設定は UTC）
func (s *Store) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone=%q", ErrInvalidConfiguration, s.Timezone)
	}
	return loc, nil
}
