// Package memory is the in-process remote store used by tests and
// remote-less development runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"timeledger/internal/core"
	"timeledger/internal/remote"
)

type Store struct {
	mu        sync.RWMutex
	logs      map[string]map[string]core.ActivityLog   // deviceID -> log ID -> log
	summaries map[string]map[string]core.DailySummary  // deviceID -> date -> summary
}

var _ remote.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		logs:      make(map[string]map[string]core.ActivityLog),
		summaries: make(map[string]map[string]core.DailySummary),
	}
}

func (s *Store) UpsertLog(_ context.Context, deviceID string, log core.ActivityLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logs[deviceID] == nil {
		s.logs[deviceID] = make(map[string]core.ActivityLog)
	}
	s.logs[deviceID][log.ID] = log
	return nil
}

func (s *Store) UpsertDailySummary(_ context.Context, deviceID string, summary core.DailySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summaries[deviceID] == nil {
		s.summaries[deviceID] = make(map[string]core.DailySummary)
	}
	s.summaries[deviceID][summary.Date.String()] = summary
	return nil
}

func (s *Store) LogsForDevice(_ context.Context, deviceID string) ([]core.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]core.ActivityLog, 0, len(s.logs[deviceID]))
	for _, l := range s.logs[deviceID] {
		logs = append(logs, l)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
	return logs, nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

// SummaryForDate is a test hook into the stored summaries.
func (s *Store) SummaryForDate(deviceID string, d core.Date) (core.DailySummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[deviceID][d.String()]
	return summary, ok
}

// LogCount is a test hook counting stored logs for one device.
func (s *Store) LogCount(deviceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs[deviceID])
}
