package stats

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"timeledger/internal/core"
)

// Projection assumptions. The raw daily total covers a 24h grid; the
// annual figure rescales it to a working day and a working year.
const (
	workingHoursPerDay = 8
	hoursPerDay        = 24
	workingDaysPerYear = 250
)

// projectionPolicy explains the fixed projection model to clients.
const projectionPolicy = "Annual projection rescales the day's total to 8 productive hours and multiplies by 250 working days."

// DaySource provides one day's logs for projection.
type DaySource interface {
	LogsForDate(ctx context.Context, d core.Date) ([]core.ActivityLog, error)
}

// Projection extrapolates one day's logged value to a working year.
type Projection struct {
	Date            string  `json:"date"`
	DailyTotal      int64   `json:"daily_total"`
	LoggedHours     float64 `json:"logged_hours"`
	AnnualValue     int64   `json:"annual_value"`
	ProjectedAnnual string  `json:"projected_annual"`
	Explanation     string  `json:"explanation"`
}

// Projector extrapolates daily totals to annual figures.
type Projector struct {
	logs DaySource
}

func NewProjector(logs DaySource) *Projector {
	return &Projector{logs: logs}
}

// Project computes the annual projection for date. An empty day is not an
// error and projects to "₹0".
func (p *Projector) Project(ctx context.Context, date core.Date) (*Projection, error) {
	if err := date.Validate(); err != nil {
		return nil, err
	}

	logs, err := p.logs.LogsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load logs for %s: %w", date, err)
	}

	var dailyTotal int64
	for _, logEntry := range logs {
		dailyTotal += logEntry.BlockValue
	}

	annual := ProjectAnnual(dailyTotal)
	return &Projection{
		Date:            date.String(),
		DailyTotal:      dailyTotal,
		LoggedHours:     float64(len(logs)) * slotHours,
		AnnualValue:     annual.Round(0).IntPart(),
		ProjectedAnnual: core.FormatRupees(annual),
		Explanation:     p.Explanation(),
	}, nil
}

// Explanation returns the static policy string behind the projection model.
func (p *Projector) Explanation() string {
	return projectionPolicy
}

// ProjectAnnual scales one day's value to a working year using decimal math.
func ProjectAnnual(dailyTotal int64) decimal.Decimal {
	return decimal.NewFromInt(dailyTotal).
		Mul(decimal.NewFromInt(workingHoursPerDay)).
		Div(decimal.NewFromInt(hoursPerDay)).
		Mul(decimal.NewFromInt(workingDaysPerYear))
}
