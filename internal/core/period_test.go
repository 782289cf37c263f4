package core

import (
	"testing"
	"time"
)

func TestResolvePeriodDay(t *testing.T) {
	d := NewDate(2025, 6, 11)
	p, err := ResolvePeriod(PeriodDay, d)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !p.Start.Equal(d.Time) || !p.End.Equal(d.Time) {
		t.Fatalf("day period should span only the anchor, got %v..%v", p.Start, p.End)
	}
}

func TestResolvePeriodWeekStartsMonday(t *testing.T) {
	cases := []struct {
		anchor    Date
		wantStart string
		wantEnd   string
	}{
		{NewDate(2025, 6, 11), "2025-06-09", "2025-06-15"}, // Wednesday
		{NewDate(2025, 6, 9), "2025-06-09", "2025-06-15"},  // Monday itself
		{NewDate(2025, 6, 15), "2025-06-09", "2025-06-15"}, // Sunday belongs to preceding Monday
		{NewDate(2025, 1, 1), "2024-12-30", "2025-01-05"},  // week spans a year boundary
	}
	for i, tc := range cases {
		p, err := ResolvePeriod(PeriodWeek, tc.anchor)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if p.Start.String() != tc.wantStart || p.End.String() != tc.wantEnd {
			t.Fatalf("case %d: got %s..%s, want %s..%s", i, p.Start, p.End, tc.wantStart, tc.wantEnd)
		}
	}
}

func TestResolvePeriodMonth(t *testing.T) {
	p, err := ResolvePeriod(PeriodMonth, NewDate(2024, 2, 15))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if p.Start.String() != "2024-02-01" || p.End.String() != "2024-02-29" {
		t.Fatalf("got %s..%s", p.Start, p.End)
	}
}

func TestResolvePeriodInvalid(t *testing.T) {
	if _, err := ResolvePeriod(PeriodKind("year"), NewDate(2025, 1, 1)); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := ResolvePeriod(PeriodDay, Date{}); err == nil {
		t.Fatalf("expected error for zero anchor")
	}
}

func TestPeriodPrevious(t *testing.T) {
	day, _ := ResolvePeriod(PeriodDay, NewDate(2025, 3, 1))
	prev := day.Previous()
	if prev.Start.String() != "2025-02-28" || prev.End.String() != "2025-02-28" {
		t.Fatalf("previous day got %s..%s", prev.Start, prev.End)
	}

	week, _ := ResolvePeriod(PeriodWeek, NewDate(2025, 6, 11))
	prev = week.Previous()
	if prev.Start.String() != "2025-06-02" || prev.End.String() != "2025-06-08" {
		t.Fatalf("previous week got %s..%s", prev.Start, prev.End)
	}

	month, _ := ResolvePeriod(PeriodMonth, NewDate(2025, 3, 31))
	prev = month.Previous()
	if prev.Start.String() != "2025-02-01" || prev.End.String() != "2025-02-28" {
		t.Fatalf("previous month got %s..%s", prev.Start, prev.End)
	}
	if prev.Kind != PeriodMonth {
		t.Fatalf("previous period changed kind to %s", prev.Kind)
	}
}

func TestPeriodContains(t *testing.T) {
	p, _ := ResolvePeriod(PeriodWeek, NewDate(2025, 6, 11))
	in := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
	if !p.Contains(in) {
		t.Fatalf("expected %v inside %s..%s", in, p.Start, p.End)
	}
	out := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	if p.Contains(out) {
		t.Fatalf("expected next Monday midnight outside")
	}
	if !p.Contains(p.Start.Time) {
		t.Fatalf("expected start midnight inside")
	}
}

func TestPeriodDays(t *testing.T) {
	p, _ := ResolvePeriod(PeriodWeek, NewDate(2025, 6, 11))
	days := p.Days()
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if days[0].String() != "2025-06-09" || days[6].String() != "2025-06-15" {
		t.Fatalf("got %s..%s", days[0], days[6])
	}
}
