// Package stats computes period aggregates and annual projections over
// stored activity logs.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"

	"timeledger/internal/core"
)

// slotHours is the hour weight of one logged slot.
const slotHours = float64(core.SlotWidthMinutes) / 60

// LogSource provides the log collection the aggregator reads.
type LogSource interface {
	AllLogs(ctx context.Context) ([]core.ActivityLog, error)
}

// ValueTier is one fixed hourly-rate band of the value breakdown. Bounds
// are half-open [Min, Max); the outermost bands are unbounded.
type ValueTier struct {
	Label string
	Min   int64
	Max   int64
}

// ValueTiers are the eight fixed bands, in display order. Every breakdown
// carries all of them, including empty ones.
var ValueTiers = []ValueTier{
	{Label: "<0", Min: math.MinInt64, Max: 0},
	{Label: "0-499", Min: 0, Max: 500},
	{Label: "500-999", Min: 500, Max: 1000},
	{Label: "1000-2499", Min: 1000, Max: 2500},
	{Label: "2500-4999", Min: 2500, Max: 5000},
	{Label: "5000-9999", Min: 5000, Max: 10000},
	{Label: "10000-24999", Min: 10000, Max: 25000},
	{Label: "25000+", Min: 25000, Max: math.MaxInt64},
}

type (
	// ActivityEntry aggregates all logs sharing one activity name.
	ActivityEntry struct {
		Name  string  `json:"name"`
		Hours float64 `json:"hours"`
		Value int64   `json:"value"`
		Count int     `json:"count"`
	}

	// TierEntry aggregates all logs whose hourly rate falls in one band.
	TierEntry struct {
		Tier  string  `json:"tier"`
		Hours float64 `json:"hours"`
		Value int64   `json:"value"`
		Count int     `json:"count"`
	}

	// Growth compares a period against the previous one of the same kind,
	// in rounded percent.
	Growth struct {
		ValueGrowth int `json:"value_growth"`
		HoursGrowth int `json:"hours_growth"`
	}

	// PeriodStats is the full aggregate for one period. It is denormalized
	// on purpose: consumers get everything they render in one shape.
	PeriodStats struct {
		Period            string          `json:"period"`
		StartDate         string          `json:"start_date"`
		EndDate           string          `json:"end_date"`
		TotalHours        float64         `json:"total_hours"`
		TotalValue        int64           `json:"total_value"`
		AvgHourlyValue    float64         `json:"avg_hourly_value"`
		Efficiency        int             `json:"efficiency"`
		HighValueHours    float64         `json:"high_value_hours"`
		ZeroValueHours    float64         `json:"zero_value_hours"`
		ActivityBreakdown []ActivityEntry `json:"activity_breakdown"`
		TopActivity       *ActivityEntry  `json:"top_activity"`
		ValueBreakdown    []TierEntry     `json:"value_breakdown"`
		Growth            Growth          `json:"growth"`
	}
)

// Aggregator computes period stats on demand from the local store.
type Aggregator struct {
	logs LogSource
}

func NewAggregator(logs LogSource) *Aggregator {
	return &Aggregator{logs: logs}
}

// Stats aggregates the period of the given kind containing anchor. An empty
// period is not an error; all figures come back zeroed with the full tier
// scaffold in place.
func (a *Aggregator) Stats(ctx context.Context, kind core.PeriodKind, anchor core.Date) (*PeriodStats, error) {
	period, err := core.ResolvePeriod(kind, anchor)
	if err != nil {
		return nil, err
	}

	logs, err := a.logs.AllLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load activity logs: %w", err)
	}

	return Compute(period, logs), nil
}

// Compute aggregates the logs whose slot start falls inside period. Growth
// compares against the immediately preceding period over the same log set.
func Compute(period core.Period, logs []core.ActivityLog) *PeriodStats {
	stats := &PeriodStats{
		Period:    period.Kind.String(),
		StartDate: period.Start.String(),
		EndDate:   period.End.String(),
	}

	tiers := make([]TierEntry, len(ValueTiers))
	for i, tier := range ValueTiers {
		tiers[i] = TierEntry{Tier: tier.Label}
	}

	var positive, high, zero, count int
	byName := make(map[string]*ActivityEntry)

	for _, logEntry := range logs {
		if !period.Contains(logEntry.SlotStart) {
			continue
		}
		count++
		stats.TotalValue += logEntry.BlockValue

		if logEntry.BlockValue > 0 {
			positive++
		}
		if logEntry.BlockValue >= core.HighValueThreshold {
			high++
		}
		if logEntry.BlockValue == 0 {
			zero++
		}

		entry, ok := byName[logEntry.ActivityName]
		if !ok {
			entry = &ActivityEntry{Name: logEntry.ActivityName}
			byName[logEntry.ActivityName] = entry
		}
		entry.Hours += slotHours
		entry.Value += logEntry.BlockValue
		entry.Count++

		ti := tierIndex(logEntry.HourlyValue)
		tiers[ti].Hours += slotHours
		tiers[ti].Value += logEntry.BlockValue
		tiers[ti].Count++
	}

	stats.TotalHours = float64(count) * slotHours
	if stats.TotalHours > 0 {
		stats.AvgHourlyValue = float64(stats.TotalValue) / stats.TotalHours
	}
	if count > 0 {
		stats.Efficiency = int(math.Round(100 * float64(positive) / float64(count)))
	}
	stats.HighValueHours = float64(high) * slotHours
	stats.ZeroValueHours = float64(zero) * slotHours
	stats.ValueBreakdown = tiers

	stats.ActivityBreakdown = make([]ActivityEntry, 0, len(byName))
	for _, entry := range byName {
		stats.ActivityBreakdown = append(stats.ActivityBreakdown, *entry)
	}
	sort.Slice(stats.ActivityBreakdown, func(i, j int) bool {
		a, b := stats.ActivityBreakdown[i], stats.ActivityBreakdown[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if a.Hours != b.Hours {
			return a.Hours > b.Hours
		}
		return a.Name < b.Name
	})
	if len(stats.ActivityBreakdown) > 0 {
		top := stats.ActivityBreakdown[0]
		stats.TopActivity = &top
	}

	prevValue, prevHours := periodTotals(period.Previous(), logs)
	stats.Growth = Growth{
		ValueGrowth: growthPct(float64(stats.TotalValue), float64(prevValue)),
		HoursGrowth: growthPct(stats.TotalHours, prevHours),
	}

	return stats
}

// tierIndex buckets an hourly rate into ValueTiers. Bands are contiguous
// and ascending, so the first Max that exceeds the rate wins.
func tierIndex(hourlyValue int64) int {
	for i := 0; i < len(ValueTiers)-1; i++ {
		if hourlyValue < ValueTiers[i].Max {
			return i
		}
	}
	return len(ValueTiers) - 1
}

func periodTotals(period core.Period, logs []core.ActivityLog) (int64, float64) {
	var value int64
	count := 0
	for _, logEntry := range logs {
		if period.Contains(logEntry.SlotStart) {
			value += logEntry.BlockValue
			count++
		}
	}
	return value, float64(count) * slotHours
}

// growthPct rounds the relative change to whole percent. A zero previous
// period reads as 100% growth when anything was logged, 0% otherwise.
func growthPct(current, previous float64) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round((current - previous) / previous * 100))
}
