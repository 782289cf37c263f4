package core

import "time"

const (
	PeriodDay   PeriodKind = "day"
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
)

type (
	PeriodKind string

	// Period is an inclusive day range used for aggregation.
	Period struct {
		Kind  PeriodKind
		Start Date
		End   Date
	}
)

func (k PeriodKind) IsValid() bool {
	switch k {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return true
	}
	return false
}

func (k PeriodKind) String() string {
	return string(k)
}

// ResolvePeriod returns the period of the given kind containing anchor.
// Weeks start on Monday; months are calendar months.
func ResolvePeriod(kind PeriodKind, anchor Date) (Period, error) {
	if err := anchor.Validate(); err != nil {
		return Period{}, err
	}
	switch kind {
	case PeriodDay:
		return Period{Kind: kind, Start: anchor, End: anchor}, nil
	case PeriodWeek:
		// time.Weekday counts from Sunday
		offset := (int(anchor.Weekday()) + 6) % 7
		start := anchor.AddDays(-offset)
		return Period{Kind: kind, Start: start, End: start.AddDays(6)}, nil
	case PeriodMonth:
		year, month, _ := anchor.Date()
		start := Date{Time: time.Date(year, month, 1, 0, 0, 0, 0, anchor.Location())}
		end := Date{Time: start.AddDate(0, 1, -1)}
		return Period{Kind: kind, Start: start, End: end}, nil
	}
	return Period{}, ErrInvalidPeriod
}

// Previous returns the immediately preceding period of the same kind.
func (p Period) Previous() Period {
	switch p.Kind {
	case PeriodWeek:
		return Period{Kind: p.Kind, Start: p.Start.AddDays(-7), End: p.Start.AddDays(-1)}
	case PeriodMonth:
		start := Date{Time: p.Start.AddDate(0, -1, 0)}
		end := Date{Time: start.AddDate(0, 1, -1)}
		return Period{Kind: p.Kind, Start: start, End: end}
	}
	return Period{Kind: p.Kind, Start: p.Start.AddDays(-1), End: p.Start.AddDays(-1)}
}

// Contains reports whether t falls inside the period, treating the range as
// [Start 00:00, End+1day 00:00).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start.Time) && t.Before(p.End.AddDays(1).Time)
}

// Days enumerates every date of the period in order.
func (p Period) Days() []Date {
	var days []Date
	for d := p.Start; !d.After(p.End.Time); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
