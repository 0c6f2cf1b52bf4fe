package slot

import (
	"fmt"
	"sort"
	"time"
)

// Date はタイムゾーンを持たない暦日（YYYY-MM-DD）
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate は YYYY-MM-DD 形式の日付を解釈する
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t, time.UTC), nil
}

// DateOf は瞬間 t の loc における暦日を返す
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// String は YYYY-MM-DD 形式を返す
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// StartIn は loc における当日 00:00 の瞬間を返す
func (d Date) StartIn(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays は n 日後の暦日を返す
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC), time.UTC)
}

// Before は d が other より前の暦日かを返す
func (d Date) Before(other Date) bool {
	return d.StartIn(time.UTC).Before(other.StartIn(time.UTC))
}

// DayRange は loc における当日の [開始, 翌日開始) を UTC で返す
func (d Date) DayRange(loc *time.Location) (time.Time, time.Time) {
	return d.StartIn(loc).UTC(), d.AddDays(1).StartIn(loc).UTC()
}

// OpeningHours は曜日ごとの営業時間を引く
// 定休日や未設定の場合 ok=false を返す
type OpeningHours interface {
	For(weekday time.Weekday) (open, close string, ok bool)
}

// GenerateDaySlots は店舗ローカル日付の営業時間を slotMinutes 刻みで区切った
// 枠開始時刻（UTC）を昇順で返す
// 定休日・営業時間不正（close <= open）・枠幅不正の場合は空を返す
func GenerateDaySlots(date Date, slotMinutes int, loc *time.Location, hours OpeningHours) []time.Time {
	if slotMinutes <= 0 || hours == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	dayStart := date.StartIn(loc)
	openStr, closeStr, ok := hours.For(dayStart.Weekday())
	if !ok {
		return nil
	}
	openAt, err := clockOn(date, openStr, loc)
	if err != nil {
		return nil
	}
	closeAt, err := clockOn(date, closeStr, loc)
	if err != nil || !closeAt.After(openAt) {
		return nil
	}

	step := time.Duration(slotMinutes) * time.Minute
	var slots []time.Time
	for cur := openAt; cur.Before(closeAt); cur = cur.Add(step) {
		slots = append(slots, cur.UTC())
	}
	return slots
}

// clockOn は HH:MM を loc の date 上の瞬間に変換する
func clockOn(date Date, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year, date.Month, date.Day, t.Hour(), t.Minute(), 0, 0, loc), nil
}

// FloorToSlot は t を時内の slotMinutes 境界へ切り捨てる（UTC）
func FloorToSlot(t time.Time, slotMinutes int) time.Time {
	u := t.UTC()
	minute := (u.Minute() / slotMinutes) * slotMinutes
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), minute, 0, 0, time.UTC)
}

// GenerateRangeSlots は [start, end) に掛かる枠開始時刻（UTC）を昇順で返す
// 営業時間は考慮しない。end > start なら少なくとも1枠を返す
func GenerateRangeSlots(start, end time.Time, slotMinutes int) []time.Time {
	if slotMinutes <= 0 || !end.After(start) {
		return nil
	}
	step := time.Duration(slotMinutes) * time.Minute
	var slots []time.Time
	for cur := FloorToSlot(start, slotMinutes); cur.Before(end); cur = cur.Add(step) {
		slots = append(slots, cur)
	}
	return slots
}

// DatesSpanned は [start, end] が loc で掛かる暦日を昇順で返す（両端を含む）
func DatesSpanned(start, end time.Time, loc *time.Location) []Date {
	if loc == nil {
		loc = time.UTC
	}
	first := DateOf(start, loc)
	last := DateOf(end, loc)
	var dates []Date
	for d := first; !last.Before(d); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// Union は複数の枠集合の和集合を重複なしの昇順で返す
func Union(sets ...[]time.Time) []time.Time {
	seen := make(map[int64]struct{})
	var out []time.Time
	for _, set := range sets {
		for _, s := range set {
			k := s.UnixMilli()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, s.UTC())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Contains は set に s と同じ瞬間の枠が含まれるかを返す
func Contains(set []time.Time, s time.Time) bool {
	for _, v := range set {
		if v.Equal(s) {
			return true
		}
	}
	return false
}
