package core

import (
	"fmt"
	"strconv"
	"time"
)

// GenerateSlots returns the canonical ordered slot sequence for one day:
// 48 contiguous half-hour slots, the first starting at midnight of d and
// the last ending at midnight of the next day. Pure function of the date;
// repeated calls yield identical IDs and bounds.
func GenerateSlots(d Date) []TimeSlot {
	slots := make([]TimeSlot, 0, SlotsPerDay)
	for i := 0; i < SlotsPerDay; i++ {
		start, end := SlotBounds(d, i)
		slots = append(slots, TimeSlot{
			ID:    fmt.Sprintf("%s-%02d", d.Format(DateLayout), i),
			Start: start,
			End:   end,
		})
	}
	return slots
}

// SlotBounds returns the [start, end) interval of slot index on day d.
// Bounds are built from wall-clock fields so the last slot lands exactly on
// the next day's midnight.
func SlotBounds(d Date, index int) (time.Time, time.Time) {
	year, month, day := d.Date()
	start := time.Date(year, month, day, 0, index*SlotWidthMinutes, 0, 0, d.Location())
	end := time.Date(year, month, day, 0, (index+1)*SlotWidthMinutes, 0, 0, d.Location())
	return start, end
}

// SlotID composes the stable storage key for slot index on day d.
func SlotID(d Date, index int) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	if index < 0 || index >= SlotsPerDay {
		return "", ErrInvalidSlotIndex
	}
	return fmt.Sprintf("%s-%02d", d.Format(DateLayout), index), nil
}

// ParseSlotID is the strict inverse of SlotID.
func ParseSlotID(id string) (Date, int, error) {
	if len(id) != len(DateLayout)+3 || id[len(DateLayout)] != '-' {
		return Date{}, 0, ErrInvalidSlotID
	}
	t, err := time.Parse(DateLayout, id[:len(DateLayout)])
	if err != nil {
		return Date{}, 0, ErrInvalidSlotID
	}
	raw := id[len(DateLayout)+1:]
	for _, r := range raw {
		if r < '0' || r > '9' {
			return Date{}, 0, ErrInvalidSlotID
		}
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index >= SlotsPerDay {
		return Date{}, 0, ErrInvalidSlotID
	}
	return Date{Time: t}, index, nil
}

// BlockValue converts an hourly value to the value of one widthMinutes-wide
// block, rounding half away from zero. Width must be positive.
func BlockValue(hourlyValue int64, widthMinutes int) (int64, error) {
	if widthMinutes <= 0 {
		return 0, ErrInvalidSlotWidth
	}
	num := hourlyValue * int64(widthMinutes)
	quo := num / 60
	rem := num % 60
	if rem != 0 {
		if rem < 0 {
			rem = -rem
		}
		if rem*2 >= 60 {
			if num > 0 {
				quo++
			} else {
				quo--
			}
		}
	}
	return quo, nil
}
