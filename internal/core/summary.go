package core

import "time"

// DailySummary is the compact per-day rollup pushed to the remote store next
// to the raw logs. Always rebuilt from the day's logs, never patched.
type DailySummary struct {
	Date        Date
	TotalValue  int64
	TotalHours  float64
	LoggedSlots int
	TopActivity string
	GeneratedAt time.Time
}

// BuildDailySummary derives the rollup for day d from its logs. Ties for the
// top activity break toward the lexicographically smaller name.
func BuildDailySummary(d Date, logs []ActivityLog, now time.Time) DailySummary {
	s := DailySummary{Date: d, GeneratedAt: now}
	valueByName := make(map[string]int64)
	for _, l := range logs {
		s.TotalValue += l.BlockValue
		s.LoggedSlots++
		valueByName[l.ActivityName] += l.BlockValue
	}
	s.TotalHours = float64(s.LoggedSlots) * SlotWidthMinutes / 60
	var bestName string
	var bestValue int64
	for name, value := range valueByName {
		if bestName == "" || value > bestValue || (value == bestValue && name < bestName) {
			bestName, bestValue = name, value
		}
	}
	s.TopActivity = bestName
	return s
}
