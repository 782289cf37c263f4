package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message types carried on the sync queue. Every payload carries its type so
// a single queue can transport both kinds.
const (
	TypeLogSync        = "log_sync"
	TypeSummaryRefresh = "summary_refresh"
)

// LogSyncMessage asks the worker to push one activity log to the remote
// store. Contains only the slot-derived log ID, the worker fetches the full
// log from the local store. Deleted marks logs that no longer exist locally.
type LogSyncMessage struct {
	Type      string    `json:"type"`
	LogID     string    `json:"log_id"`
	Deleted   bool      `json:"deleted"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLogSyncMessage creates a new log sync message for the given log ID
func NewLogSyncMessage(logID string, deleted bool) *LogSyncMessage {
	return &LogSyncMessage{
		Type:      TypeLogSync,
		LogID:     logID,
		Deleted:   deleted,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LogSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a log sync message from JSON bytes
func LogSyncMessageFromJSON(data []byte) (*LogSyncMessage, error) {
	var msg LogSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Validate checks that the message carries a usable log ID
func (m *LogSyncMessage) Validate() error {
	if m.LogID == "" {
		return errors.New("log sync message has empty log ID")
	}
	return nil
}

// SummaryRefreshMessage asks the worker to rebuild and push the daily summary
// for one date. Date uses the YYYY-MM-DD layout.
type SummaryRefreshMessage struct {
	Type      string    `json:"type"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSummaryRefreshMessage creates a new summary refresh message for the given date
func NewSummaryRefreshMessage(date string) *SummaryRefreshMessage {
	return &SummaryRefreshMessage{
		Type:      TypeSummaryRefresh,
		Date:      date,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SummaryRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a summary refresh message from JSON bytes
func SummaryRefreshMessageFromJSON(data []byte) (*SummaryRefreshMessage, error) {
	var msg SummaryRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Validate checks that the message carries a well-formed date
func (m *SummaryRefreshMessage) Validate() error {
	if _, err := time.Parse("2006-01-02", m.Date); err != nil {
		return fmt.Errorf("summary refresh message has invalid date %q: %w", m.Date, err)
	}
	return nil
}

// envelope is the minimal shape peeked at before dispatching a delivery
type envelope struct {
	Type string `json:"type"`
}
