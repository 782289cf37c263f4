// Package core holds the domain model of the time-value ledger: the day
// grid and its slot ID scheme, activity logs, period resolution and the
// value math shared by every other package.
package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire format for day-precision dates.
const DateLayout = "2006-01-02"

const (
	// SlotWidthMinutes is the fixed width of one accounting slot.
	SlotWidthMinutes = 30
	// SlotsPerDay is how many slots a 24h day partitions into.
	SlotsPerDay = 24 * 60 / SlotWidthMinutes
	// HighValueThreshold is the block value from which a slot counts as high value.
	HighValueThreshold = 10000
)

type (
	Date struct {
		time.Time
	}

	// Activity is an immutable catalog entry. HourlyValue is signed whole
	// rupees per hour; negative values mark time sinks.
	Activity struct {
		ID          string
		Name        string
		Category    string
		HourlyValue int64
		SearchTags  []string
	}

	// TimeSlot is one half-open [Start, End) cell of the day grid. Slots are
	// regenerated on every read and hydrated from logs; only the binding is
	// persisted.
	TimeSlot struct {
		ID           string
		Start        time.Time
		End          time.Time
		ActivityID   string
		ActivityName string
		Value        int64
	}

	// ActivityLog is the persisted record of a filled slot. ID equals the
	// TimeSlot ID it was derived from and is the dedup key across local and
	// remote stores. ActivityName and HourlyValue are copied at write time
	// so historical aggregation survives later catalog edits.
	ActivityLog struct {
		ID           string
		ActivityID   string
		ActivityName string
		HourlyValue  int64
		BlockValue   int64
		SlotStart    time.Time
		SlotEnd      time.Time
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidSlotIndex = errors.New("invalid slot index")
	ErrInvalidSlotID    = errors.New("invalid slot id")
	ErrInvalidSlotWidth = errors.New("invalid slot width")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrActivityNotFound = errors.New("activity not found")
	ErrInvalidLog       = errors.New("invalid activity log")
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to the Date of its wall-clock day.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, t.Location())}
}

// ParseDate parses the "2006-01-02" wire format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (a Activity) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("activity id cannot be empty")
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("activity name cannot be empty")
	}
	if strings.TrimSpace(a.Category) == "" {
		return errors.New("activity category cannot be empty")
	}
	return nil
}

func (l ActivityLog) Validate() error {
	date, index, err := ParseSlotID(l.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(l.ActivityID) == "" {
		return ErrInvalidLog
	}
	if strings.TrimSpace(l.ActivityName) == "" {
		return ErrInvalidLog
	}
	start, end := SlotBounds(date, index)
	if !l.SlotStart.Equal(start) || !l.SlotEnd.Equal(end) {
		return ErrInvalidLog
	}
	return nil
}

// Date returns the calendar day the log belongs to.
func (l ActivityLog) Date() Date {
	return DateOf(l.SlotStart)
}
