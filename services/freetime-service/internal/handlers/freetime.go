package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/cache"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/interval"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/model"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/outbox"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/schedule"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/storage"
)

type FreeTimeHandler struct {
	repo       *storage.CalendarRepository
	outboxRepo *outbox.Repository
	results    *cache.Results
	logger     *slog.Logger
}

func NewFreeTimeHandler(repo *storage.CalendarRepository, outboxRepo *outbox.Repository, results *cache.Results, logger *slog.Logger) *FreeTimeHandler {
	return &FreeTimeHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		results:    results,
		logger:     logger,
	}
}

type windowPayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type rangePayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type previewRequest struct {
	Date            string             `json:"date"`
	Window          windowPayload      `json:"window"`
	Acceptable      *rangePayload      `json:"acceptable,omitempty"`
	DurationMinutes int                `json:"duration_minutes,omitempty"`
	SlotStepMinutes int                `json:"slot_step_minutes,omitempty"`
	Profiles        []schedule.Profile `json:"profiles"`
}

type intervalItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type freeTimeResponse struct {
	Free          []intervalItem `json:"free"`
	MeetingStarts []string       `json:"meeting_starts,omitempty"`
}

type upsertCalendarRequest struct {
	GroupID       string              `json:"group_id"`
	ParticipantID string              `json:"participant_id"`
	Date          string              `json:"date"`
	Events        []schedule.RawEvent `json:"events"`
}

type upsertCalendarResponse struct {
	GroupID       string `json:"group_id"`
	ParticipantID string `json:"participant_id"`
	Date          string `json:"date"`
	Events        int    `json:"events"`
}

type calendarItem struct {
	ParticipantID string `json:"participant_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

// Preview computes common free time for profiles supplied inline,
// without touching storage. This is the stateless entry point external
// callers use to evaluate a hypothetical group.
func (h *FreeTimeHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	day, err := parseDay(req.Date)
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	win, err := parseWindow(req.Window, day)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	acceptable := schedule.DefaultAcceptableRange()
	if req.Acceptable != nil {
		acceptable, err = parseRange(*req.Acceptable)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	free, err := schedule.Compute(req.Profiles, win, acceptable)
	if err != nil {
		status := http.StatusInternalServerError
		var perr *schedule.ParseError
		if errors.As(err, &perr) || errors.Is(err, schedule.ErrInvalidWindow) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, buildFreeTimeResponse(free, req.DurationMinutes, req.SlotStepMinutes))
}

// GroupFreeTime computes common free time over the stored calendars of a
// group for one day. Results are cached per calendar version.
func (h *FreeTimeHandler) GroupFreeTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	groupID := strings.TrimSpace(q.Get("group_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if groupID == "" || dateStr == "" {
		http.Error(w, "group_id and date are required", http.StatusBadRequest)
		return
	}

	day, err := parseDay(dateStr)
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	win, err := parseWindow(windowPayload{
		Start: strings.TrimSpace(q.Get("window_start")),
		End:   strings.TrimSpace(q.Get("window_end")),
	}, day)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := win.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	acceptable := schedule.DefaultAcceptableRange()
	if s := strings.TrimSpace(q.Get("acceptable_start")); s != "" || strings.TrimSpace(q.Get("acceptable_end")) != "" {
		acceptable, err = parseRange(rangePayload{
			Start: s,
			End:   strings.TrimSpace(q.Get("acceptable_end")),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	duration := intParam(q.Get("duration_minutes"))
	step := intParam(q.Get("slot_step_minutes"))

	ctx := r.Context()

	var cacheKey string
	if h.results != nil {
		version, err := h.results.Version(ctx, groupID, dateStr)
		if err != nil {
			h.logger.Warn("cache version lookup failed; recomputing", "err", err)
		} else {
			shape := fmt.Sprintf("%s-%s:%s-%s:%d:%d",
				q.Get("window_start"), q.Get("window_end"),
				acceptable.Start, acceptable.End, duration, step)
			cacheKey = cache.Key(groupID, dateStr, version, shape)
			if body, ok, err := h.results.Get(ctx, cacheKey); err != nil {
				h.logger.Warn("cache read failed; recomputing", "err", err)
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(body)
				return
			}
		}
	}

	participants, err := h.repo.ListParticipants(ctx, groupID)
	if err != nil {
		http.Error(w, "failed to load participants", http.StatusInternalServerError)
		return
	}

	// No registered participants means no group; nothing is claimed free.
	resp := freeTimeResponse{Free: []intervalItem{}}
	if len(participants) > 0 {
		events, err := h.repo.ListDayEvents(ctx, groupID, day)
		if err != nil {
			http.Error(w, "failed to load calendars", http.StatusInternalServerError)
			return
		}
		busy := busyMapFromEvents(participants, events, day)
		free := schedule.FilterAcceptable(schedule.CommonFree(busy, win), acceptable)
		resp = buildFreeTimeResponse(free, duration, step)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if cacheKey != "" {
		if err := h.results.Set(ctx, cacheKey, body); err != nil {
			h.logger.Warn("cache write failed", "err", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Calendars serves calendar storage: POST upserts one participant's busy
// events for a day, GET lists the stored events for a group/day.
func (h *FreeTimeHandler) Calendars(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.upsertCalendar(w, r)
	case http.MethodGet:
		h.listCalendar(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *FreeTimeHandler) upsertCalendar(w http.ResponseWriter, r *http.Request) {
	var req upsertCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.GroupID = strings.TrimSpace(req.GroupID)
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.GroupID == "" || req.ParticipantID == "" {
		http.Error(w, "group_id and participant_id are required", http.StatusBadRequest)
		return
	}

	day, err := parseDay(req.Date)
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	events, err := storedEvents(req, day)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.repo.ReplaceParticipantDay(ctx, tx, req.GroupID, req.ParticipantID, day, events); err != nil {
		http.Error(w, "failed to store calendar", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"group_id":       req.GroupID,
		"participant_id": req.ParticipantID,
		"date":           req.Date,
		"event_count":    len(events),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "calendar",
		AggregateID:   req.GroupID + "/" + req.ParticipantID,
		EventType:     outbox.EventParticipantUpdated,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	if h.results != nil {
		if err := h.results.BumpVersion(ctx, req.GroupID, req.Date); err != nil {
			h.logger.Warn("cache invalidation failed", "err", err, "group_id", req.GroupID)
		}
	}

	writeJSON(w, http.StatusOK, upsertCalendarResponse{
		GroupID:       req.GroupID,
		ParticipantID: req.ParticipantID,
		Date:          req.Date,
		Events:        len(events),
	})
}

func (h *FreeTimeHandler) listCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	groupID := strings.TrimSpace(q.Get("group_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if groupID == "" || dateStr == "" {
		http.Error(w, "group_id and date are required", http.StatusBadRequest)
		return
	}
	day, err := parseDay(dateStr)
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	events, err := h.repo.ListDayEvents(r.Context(), groupID, day)
	if err != nil {
		http.Error(w, "failed to load calendars", http.StatusInternalServerError)
		return
	}

	items := make([]calendarItem, 0, len(events))
	for _, ev := range events {
		items = append(items, calendarItem{
			ParticipantID: ev.ParticipantID,
			Start:         minuteClock(ev.StartMinute),
			End:           minuteClock(ev.EndMinute),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// storedEvents validates and converts an upsert request's events. Parse
// failures surface as the same participant-naming error the pipeline
// produces; inverted intervals are stored as-is and dropped at merge
// time, matching the in-memory path.
func storedEvents(req upsertCalendarRequest, day time.Time) ([]model.BusyEvent, error) {
	events := make([]model.BusyEvent, 0, len(req.Events))
	for _, ev := range req.Events {
		start, err := schedule.ParseClock(ev.Start)
		if err != nil {
			return nil, &schedule.ParseError{Participant: req.ParticipantID, Field: "start", Value: ev.Start}
		}
		end, err := schedule.ParseClock(ev.End)
		if err != nil {
			return nil, &schedule.ParseError{Participant: req.ParticipantID, Field: "end", Value: ev.End}
		}
		events = append(events, model.BusyEvent{
			ID:            uuid.NewString(),
			GroupID:       req.GroupID,
			ParticipantID: req.ParticipantID,
			Day:           day,
			StartMinute:   start.Minutes(),
			EndMinute:     end.Minutes(),
		})
	}
	return events, nil
}

func busyMapFromEvents(participants []string, events []model.BusyEvent, day time.Time) schedule.BusyMap {
	busy := make(schedule.BusyMap, len(participants))
	for _, id := range participants {
		busy[id] = nil
	}
	raw := make(map[string][]interval.Interval, len(participants))
	for _, ev := range events {
		raw[ev.ParticipantID] = append(raw[ev.ParticipantID], interval.Interval{
			Start: day.Add(time.Duration(ev.StartMinute) * time.Minute),
			End:   day.Add(time.Duration(ev.EndMinute) * time.Minute),
		})
	}
	for id, list := range raw {
		busy[id] = interval.Merge(list)
	}
	return busy
}

func buildFreeTimeResponse(free []interval.Interval, durationMins, stepMins int) freeTimeResponse {
	resp := freeTimeResponse{Free: make([]intervalItem, 0, len(free))}
	for _, f := range free {
		resp.Free = append(resp.Free, intervalItem{
			Start: f.Start.UTC().Format(time.RFC3339),
			End:   f.End.UTC().Format(time.RFC3339),
		})
	}
	if durationMins > 0 {
		if stepMins <= 0 {
			stepMins = durationMins
		}
		starts := interval.MeetingStarts(free,
			time.Duration(durationMins)*time.Minute,
			time.Duration(stepMins)*time.Minute)
		for _, s := range starts {
			resp.MeetingStarts = append(resp.MeetingStarts, s.UTC().Format(time.RFC3339))
		}
	}
	return resp
}

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
}

func parseWindow(p windowPayload, day time.Time) (schedule.Window, error) {
	start, err := schedule.ParseClock(p.Start)
	if err != nil {
		return schedule.Window{}, fmt.Errorf("invalid window.start %q: %w", p.Start, err)
	}
	end, err := schedule.ParseClock(p.End)
	if err != nil {
		return schedule.Window{}, fmt.Errorf("invalid window.end %q: %w", p.End, err)
	}
	return schedule.Window{Start: start.At(day), End: end.At(day)}, nil
}

func parseRange(p rangePayload) (schedule.AcceptableRange, error) {
	start, err := schedule.ParseClock(p.Start)
	if err != nil {
		return schedule.AcceptableRange{}, fmt.Errorf("invalid acceptable.start %q: %w", p.Start, err)
	}
	end, err := schedule.ParseClock(p.End)
	if err != nil {
		return schedule.AcceptableRange{}, fmt.Errorf("invalid acceptable.end %q: %w", p.End, err)
	}
	return schedule.AcceptableRange{Start: start, End: end}, nil
}

func intParam(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > 24*60 {
		return 0
	}
	return n
}

func minuteClock(m int) string {
	return schedule.Clock{Hour: m / 60, Minute: m % 60}.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
