// Package sheets backs the remote store with a Google spreadsheet: one
// sheet for raw activity logs, one for daily summaries. Rows are keyed in
// column A by "<device>|<record id>", which makes upserts a column scan plus
// a row update or append.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"timeledger/internal/core"
	"timeledger/internal/remote"
)

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	logsSheet      string
	summariesSheet string
}

// Ensure interface conformance
var _ remote.Store = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: LOGS_SHEET_NAME (default "Logs"), SUMMARIES_SHEET_NAME
// (default "Summaries"); credentials via GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	logsSheet := strings.TrimSpace(os.Getenv("LOGS_SHEET_NAME"))
	if logsSheet == "" {
		logsSheet = "Logs"
	}
	summariesSheet := strings.TrimSpace(os.Getenv("SUMMARIES_SHEET_NAME"))
	if summariesSheet == "" {
		summariesSheet = "Summaries"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:            svc,
		spreadsheetID:  spreadsheetID,
		logsSheet:      logsSheet,
		summariesSheet: summariesSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

func rowKey(deviceID, recordID string) string {
	return deviceID + "|" + recordID
}

func (c *Client) UpsertLog(ctx context.Context, deviceID string, log core.ActivityLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row := []any{
		rowKey(deviceID, log.ID),
		deviceID,
		log.ID,
		log.ActivityID,
		log.ActivityName,
		log.HourlyValue,
		log.BlockValue,
		log.SlotStart.UTC().Format(time.RFC3339),
		log.SlotEnd.UTC().Format(time.RFC3339),
	}
	return c.upsertRow(ctx, c.logsSheet, rowKey(deviceID, log.ID), row, "I")
}

func (c *Client) UpsertDailySummary(ctx context.Context, deviceID string, summary core.DailySummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row := []any{
		rowKey(deviceID, summary.Date.String()),
		deviceID,
		summary.Date.String(),
		summary.TotalValue,
		summary.TotalHours,
		summary.LoggedSlots,
		summary.TopActivity,
		summary.GeneratedAt.UTC().Format(time.RFC3339),
	}
	return c.upsertRow(ctx, c.summariesSheet, rowKey(deviceID, summary.Date.String()), row, "H")
}

// upsertRow locates key in column A of sheetName and rewrites that row, or
// appends after the last used row when the key is new.
func (c *Client) upsertRow(ctx context.Context, sheetName, key string, row []any, lastCol string) error {
	keys, err := c.readCol(ctx, sheetName, "A:A")
	if err != nil {
		return fmt.Errorf("read keys from %s: %w", sheetName, err)
	}

	targetRow := len(keys) + 1
	for i, k := range keys {
		if k == key {
			targetRow = i + 1
			break
		}
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", sheetName, targetRow, lastCol, targetRow)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) LogsForDevice(ctx context.Context, deviceID string) ([]core.ActivityLog, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:I", c.logsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	var logs []core.ActivityLog
	for _, raw := range resp.Values {
		cols := toStrings(raw)
		if len(cols) < 9 || cols[1] != deviceID {
			continue
		}
		log, ok := parseLogRow(cols)
		if !ok {
			continue
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// Ping fetches spreadsheet metadata only, no row data.
func (c *Client) Ping(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("probe spreadsheet: %w", err)
	}
	return nil
}

func (c *Client) readCol(ctx context.Context, sheetName, col string) ([]string, error) {
	rng := fmt.Sprintf("%s!%s", sheetName, col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out, nil
}

func parseLogRow(cols []string) (core.ActivityLog, bool) {
	hourly, err := strconv.ParseInt(strings.TrimSpace(cols[5]), 10, 64)
	if err != nil {
		return core.ActivityLog{}, false
	}
	block, err := strconv.ParseInt(strings.TrimSpace(cols[6]), 10, 64)
	if err != nil {
		return core.ActivityLog{}, false
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(cols[7]))
	if err != nil {
		return core.ActivityLog{}, false
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(cols[8]))
	if err != nil {
		return core.ActivityLog{}, false
	}
	log := core.ActivityLog{
		ID:           strings.TrimSpace(cols[2]),
		ActivityID:   strings.TrimSpace(cols[3]),
		ActivityName: strings.TrimSpace(cols[4]),
		HourlyValue:  hourly,
		BlockValue:   block,
		SlotStart:    start,
		SlotEnd:      end,
	}
	if log.Validate() != nil {
		return core.ActivityLog{}, false
	}
	return log, true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
