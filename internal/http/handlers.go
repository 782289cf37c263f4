package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"timeledger/internal/core"
	applog "timeledger/internal/log"
	ledgersync "timeledger/internal/sync"
)

type (
	// SlotView is the wire shape of one half-hour slot.
	SlotView struct {
		ID           string    `json:"id"`
		Start        time.Time `json:"start"`
		End          time.Time `json:"end"`
		ActivityID   string    `json:"activity_id,omitempty"`
		ActivityName string    `json:"activity_name,omitempty"`
		Value        int64     `json:"value"`
	}

	DayResponse struct {
		Date  string     `json:"date"`
		Slots []SlotView `json:"slots"`
	}

	ActivityView struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Category    string   `json:"category"`
		HourlyValue int64    `json:"hourly_value"`
		SearchTags  []string `json:"search_tags,omitempty"`
	}

	ActivitiesResponse struct {
		Items []ActivityView `json:"items"`
	}

	CategoriesResponse struct {
		Categories []string `json:"categories"`
	}

	BindSlotRequest struct {
		ActivityID string `json:"activity_id"`
	}

	// SyncStatusResponse merges the reconciler state with a live probe of
	// the remote store.
	SyncStatusResponse struct {
		Pushing      bool                        `json:"pushing"`
		LastSyncTime *time.Time                  `json:"last_sync_time"`
		DeviceID     string                      `json:"device_id"`
		Connection   ledgersync.ConnectionStatus `json:"connection"`
	}
)

func (req BindSlotRequest) Validate() error {
	if strings.TrimSpace(req.ActivityID) == "" {
		return errors.New("activity_id is required")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady verifies the collaborators a request would touch: the
// activity catalog and a day read against the local store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if len(s.directory.All()) == 0 {
		checks["catalog"] = "failed: activity catalog is empty"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["catalog"] = "ok"
	}

	if _, err := s.ledger.Day(ctx, core.DateOf(time.Now())); err != nil {
		checks["ledger"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	date, err := parseDateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	slots, err := s.ledger.Day(r.Context(), date)
	if err != nil {
		s.logServerError(r.Context(), "Day read failed", err, applog.OpRead)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, DayResponse{Date: date.String(), Slots: toSlotViews(slots)})
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	var activities []core.Activity
	if query == "" {
		activities = s.directory.All()
	} else {
		activities = s.directory.Search(query)
	}

	items := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		items = append(items, ActivityView{
			ID:          activity.ID,
			Name:        activity.Name,
			Category:    activity.Category,
			HourlyValue: activity.HourlyValue,
			SearchTags:  activity.SearchTags,
		})
	}

	writeJSON(w, http.StatusOK, ActivitiesResponse{Items: items})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: s.directory.Categories()})
}

// handleSlot dispatches /v1/slots/{id}/bind and /v1/slots/{id}/clear.
func (s *Server) handleSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/slots/")
	slotID, action, found := strings.Cut(rest, "/")
	if !found || slotID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected /v1/slots/{id}/bind or /v1/slots/{id}/clear")
		return
	}

	switch action {
	case "bind":
		s.handleBind(w, r, slotID)
	case "clear":
		s.handleClear(w, r, slotID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown slot action")
	}
}

func (s *Server) handleBind(w http.ResponseWriter, r *http.Request, slotID string) {
	var req BindSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	slot, err := s.ledger.Bind(r.Context(), slotID, req.ActivityID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrActivityNotFound):
			// The slot was cleared as part of the failed bind; return the
			// post-write state so clients can render it.
			s.invalidateSlot(slotID)
			writeJSON(w, http.StatusNotFound, toSlotView(slot))
		case errors.Is(err, core.ErrInvalidSlotID), errors.Is(err, core.ErrInvalidSlotIndex):
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		default:
			s.logServerError(r.Context(), "Bind failed", err, applog.OpBind)
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}

	s.invalidateSlot(slotID)
	structured := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	structured.LogSlotBound(r.Context(), slot.ID, slot.ActivityID, slot.ActivityName, slot.Value)
	writeJSON(w, http.StatusOK, toSlotView(slot))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request, slotID string) {
	slot, err := s.ledger.Clear(r.Context(), slotID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidSlotID), errors.Is(err, core.ErrInvalidSlotIndex):
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		default:
			s.logServerError(r.Context(), "Clear failed", err, applog.OpClear)
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}

	s.invalidateSlot(slotID)
	writeJSON(w, http.StatusOK, toSlotView(slot))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	kind := core.PeriodDay
	if raw := strings.TrimSpace(r.URL.Query().Get("period")); raw != "" {
		kind = core.PeriodKind(raw)
	}
	date, err := parseDateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	key := statsKey(kind, date)
	if body, ok := s.readCache.Get(key); ok {
		writeJSONBytes(w, http.StatusOK, body)
		return
	}

	periodStats, err := s.stats.Stats(r.Context(), kind, date)
	if err != nil {
		if errors.Is(err, core.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		s.logServerError(r.Context(), "Stats aggregation failed", err, applog.OpAggregate)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	body, err := json.Marshal(periodStats)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	s.readCache.Set(key, body)
	writeJSONBytes(w, http.StatusOK, body)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	date, err := parseDateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	key := projectionKey(date)
	if body, ok := s.readCache.Get(key); ok {
		writeJSONBytes(w, http.StatusOK, body)
		return
	}

	projection, err := s.projections.Project(r.Context(), date)
	if err != nil {
		s.logServerError(r.Context(), "Projection failed", err, applog.OpProject)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	body, err := json.Marshal(projection)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	s.readCache.Set(key, body)
	writeJSONBytes(w, http.StatusOK, body)
}

func (s *Server) handleSyncPush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	report := s.syncer.Push(r.Context())

	status := http.StatusOK
	if !report.Success && len(report.Errors) == 1 && report.Errors[0] == ledgersync.InProgressMessage {
		status = http.StatusConflict
	}

	writeJSON(w, status, report)
}

func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	report := s.syncer.Pull(r.Context())
	if report.Fetched > 0 {
		s.invalidateAll()
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	status, err := s.syncer.Status(r.Context())
	if err != nil {
		s.logServerError(r.Context(), "Status read failed", err, applog.OpRead)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SyncStatusResponse{
		Pushing:      status.Pushing,
		LastSyncTime: status.LastSyncTime,
		DeviceID:     status.DeviceID,
		Connection:   s.syncer.TestConnection(r.Context()),
	})
}

func (s *Server) logServerError(ctx context.Context, msg string, err error, operation string) {
	structured := applog.NewStructuredLogger(applog.FromContext(ctx))
	structured.LogError(ctx, msg, err, applog.ComponentHTTP, operation, applog.NewFields())
}

func toSlotView(slot core.TimeSlot) SlotView {
	return SlotView{
		ID:           slot.ID,
		Start:        slot.Start,
		End:          slot.End,
		ActivityID:   slot.ActivityID,
		ActivityName: slot.ActivityName,
		Value:        slot.Value,
	}
}

func toSlotViews(slots []core.TimeSlot) []SlotView {
	views := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, toSlotView(slot))
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONBytes(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"type": code, "detail": detail})
}
