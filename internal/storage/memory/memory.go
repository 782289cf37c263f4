// Package memory is the in-process Store used by tests and memory-backed runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"timeledger/internal/core"
	"timeledger/internal/storage"
)

type Store struct {
	mu       sync.RWMutex
	logs     map[string]core.ActivityLog
	lastSync time.Time
	deviceID string
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{logs: make(map[string]core.ActivityLog)}
}

func (s *Store) LogsForDate(_ context.Context, d core.Date) ([]core.ActivityLog, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	prefix := d.String() + "-"
	s.mu.RLock()
	defer s.mu.RUnlock()
	var logs []core.ActivityLog
	for id, l := range s.logs {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			logs = append(logs, l)
		}
	}
	sortLogs(logs)
	return logs, nil
}

func (s *Store) AllLogs(_ context.Context) ([]core.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]core.ActivityLog, 0, len(s.logs))
	for _, l := range s.logs {
		logs = append(logs, l)
	}
	sortLogs(logs)
	return logs, nil
}

func (s *Store) SaveLog(_ context.Context, log core.ActivityLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.ID] = log
	return nil
}

func (s *Store) DeleteLog(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, id)
	return nil
}

func (s *Store) LastSyncTime(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync, nil
}

func (s *Store) SetLastSyncTime(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = t
	return nil
}

func (s *Store) DeviceID(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceID == "" {
		s.deviceID = uuid.NewString()
	}
	return s.deviceID, nil
}

func (s *Store) Close() error {
	return nil
}

func sortLogs(logs []core.ActivityLog) {
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
}
