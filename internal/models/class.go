package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Weekday is a three letter weekday marker (Mon..Sun).
type Weekday string

const (
	Monday    Weekday = "Mon"
	Tuesday   Weekday = "Tue"
	Wednesday Weekday = "Wed"
	Thursday  Weekday = "Thu"
	Friday    Weekday = "Fri"
	Saturday  Weekday = "Sat"
	Sunday    Weekday = "Sun"
)

var weekOrder = map[Weekday]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3, Friday: 4, Saturday: 5, Sunday: 6,
}

var stdWeekdays = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// WeekdayOf returns the marker for t in t's own location.
func WeekdayOf(t time.Time) Weekday {
	return stdWeekdays[t.Weekday()]
}

var fullNames = map[string]Weekday{
	"monday": Monday, "tuesday": Tuesday, "wednesday": Wednesday, "thursday": Thursday,
	"friday": Friday, "saturday": Saturday, "sunday": Sunday,
}

// ParseWeekday accepts short or full English day names, case-insensitively.
func ParseWeekday(raw string) (Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if day, ok := fullNames[s]; ok {
		return day, nil
	}
	for day := range weekOrder {
		if s == strings.ToLower(string(day)) {
			return day, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", raw)
}

// ScheduleDays is the set of weekdays a class runs on. A nil set places no
// weekday constraint on bookings.
type ScheduleDays []Weekday

// ParseScheduleDays validates, deduplicates and orders raw day names.
// An empty input yields nil.
func ParseScheduleDays(raw []string) (ScheduleDays, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seen := make(map[Weekday]struct{}, len(raw))
	days := make(ScheduleDays, 0, len(raw))
	for _, r := range raw {
		day, err := ParseWeekday(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return weekOrder[days[i]] < weekOrder[days[j]] })
	return days, nil
}

// Constrained reports whether the set restricts booking dates.
func (d ScheduleDays) Constrained() bool {
	return len(d) > 0
}

// Contains reports whether day is a member of the set.
func (d ScheduleDays) Contains(day Weekday) bool {
	for _, v := range d {
		if v == day {
			return true
		}
	}
	return false
}

// Allows reports whether a session may take place on t.
func (d ScheduleDays) Allows(t time.Time) bool {
	return !d.Constrained() || d.Contains(WeekdayOf(t))
}

// Value stores the set as a JSON array, or NULL when unset.
func (d ScheduleDays) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal([]Weekday(d))
	if err != nil {
		return nil, fmt.Errorf("marshal schedule days: %w", err)
	}
	return data, nil
}

// Scan reads a JSON array column.
func (d *ScheduleDays) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ScheduleDays", value)
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal schedule days: %w", err)
	}
	days, err := ParseScheduleDays(raw)
	if err != nil {
		return err
	}
	*d = days
	return nil
}

// Class is a recurring group session published by a teacher.
type Class struct {
	ID              string       `db:"id" json:"id"`
	TeacherID       string       `db:"teacher_id" json:"teacher_id"`
	Title           string       `db:"title" json:"title"`
	Amount          int64        `db:"amount" json:"amount"`
	Currency        string       `db:"currency" json:"currency"`
	DurationMinutes int          `db:"duration_minutes" json:"duration_minutes"`
	ScheduleDays    ScheduleDays `db:"schedule_days" json:"schedule_days"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// Duration returns the length of one session.
func (c *Class) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

// ReservationStatus tracks a class schedule day claim.
type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "held"
	ReservationCommitted ReservationStatus = "committed"
)

// ScheduleDayReservation records which booking holds a (class, weekday) pair.
type ScheduleDayReservation struct {
	ClassID   string            `db:"class_id" json:"class_id"`
	Weekday   Weekday           `db:"weekday" json:"weekday"`
	BookingID string            `db:"booking_id" json:"booking_id"`
	Status    ReservationStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}
