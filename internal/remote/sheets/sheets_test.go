package sheets

import (
	"testing"
)

// Rows as they come back from the Logs sheet: key, device, log ID,
// activity ID, activity name, hourly value, block value, start, end.
func validLogRow() []string {
	return []string{
		"device-a|2025-01-07-10",
		"device-a",
		"2025-01-07-10",
		"deep-work",
		"Deep Work",
		"5000",
		"2500",
		"2025-01-07T05:00:00Z",
		"2025-01-07T05:30:00Z",
	}
}

func TestParseLogRow(t *testing.T) {
	log, ok := parseLogRow(validLogRow())
	if !ok {
		t.Fatal("parseLogRow() rejected a well-formed row")
	}
	if log.ID != "2025-01-07-10" || log.ActivityID != "deep-work" || log.ActivityName != "Deep Work" {
		t.Errorf("parsed identity fields = %+v", log)
	}
	if log.HourlyValue != 5000 || log.BlockValue != 2500 {
		t.Errorf("parsed values = hourly %d block %d, want 5000/2500", log.HourlyValue, log.BlockValue)
	}
	if log.SlotStart.IsZero() || !log.SlotEnd.After(log.SlotStart) {
		t.Errorf("parsed bounds = %v..%v", log.SlotStart, log.SlotEnd)
	}
}

func TestParseLogRowRejectsMalformed(t *testing.T) {
	mutate := func(col int, val string) []string {
		row := validLogRow()
		row[col] = val
		return row
	}

	cases := []struct {
		name string
		row  []string
	}{
		{"non-numeric hourly value", mutate(5, "lots")},
		{"blank block value", mutate(6, "")},
		{"malformed start", mutate(7, "yesterday")},
		{"malformed end", mutate(8, "2025-01-07")},
		{"garbage log ID", mutate(2, "garbage")},
		{"blank activity ID", mutate(3, "")},
		{"start outside the slot", mutate(7, "2025-01-07T05:15:00Z")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := parseLogRow(tc.row); ok {
				t.Errorf("parseLogRow() accepted row %v", tc.row)
			}
		})
	}
}

func TestParseLogRowTrimsCells(t *testing.T) {
	row := validLogRow()
	row[2] = "  2025-01-07-10  "
	row[5] = " 5000 "

	log, ok := parseLogRow(row)
	if !ok {
		t.Fatal("parseLogRow() rejected a row with padded cells")
	}
	if log.ID != "2025-01-07-10" || log.HourlyValue != 5000 {
		t.Errorf("padded cells not trimmed: %+v", log)
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]interface{}{" padded ", 42, 3.5, ""})
	want := []string{"padded", "42", "3.5", ""}
	if len(got) != len(want) {
		t.Fatalf("toStrings() returned %d cells, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRowKey(t *testing.T) {
	if got := rowKey("device-a", "2025-01-07-10"); got != "device-a|2025-01-07-10" {
		t.Errorf("rowKey() = %q", got)
	}
}
