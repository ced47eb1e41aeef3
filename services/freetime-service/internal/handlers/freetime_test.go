package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPreviewHandler(t *testing.T) *FreeTimeHandler {
	t.Helper()
	// Preview never touches storage, the outbox or the cache.
	return NewFreeTimeHandler(nil, nil, nil, discardLogger())
}

func postPreview(t *testing.T, h *FreeTimeHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/free-time/preview", strings.NewReader(body))
	rw := httptest.NewRecorder()
	h.Preview(rw, req)
	return rw
}

func TestPreview_AliceAndBob(t *testing.T) {
	h := newPreviewHandler(t)
	rw := postPreview(t, h, `{
		"date": "2026-03-14",
		"window": {"start": "00:00", "end": "23:59"},
		"profiles": [
			{"id": "Alice", "events": [
				{"start": "12:00", "end": "13:00"},
				{"start": "14:00", "end": "15:00"}
			]},
			{"id": "Bob", "events": [{"start": "09:00", "end": "13:00"}]}
		]
	}`)
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rw.Code, rw.Body.String())
	}

	var resp freeTimeResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	// 15:00-23:59 straddles the default 22:00 bound and is dropped whole.
	if len(resp.Free) != 1 {
		t.Fatalf("free = %v, want one interval", resp.Free)
	}
	if resp.Free[0].Start != "2026-03-14T13:00:00Z" || resp.Free[0].End != "2026-03-14T14:00:00Z" {
		t.Fatalf("free[0] = %+v, want 13:00-14:00", resp.Free[0])
	}
}

func TestPreview_MeetingStarts(t *testing.T) {
	h := newPreviewHandler(t)
	rw := postPreview(t, h, `{
		"date": "2026-03-14",
		"window": {"start": "09:00", "end": "10:00"},
		"acceptable": {"start": "00:00", "end": "23:59"},
		"duration_minutes": 30,
		"slot_step_minutes": 30,
		"profiles": [{"id": "solo", "events": []}]
	}`)
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rw.Code, rw.Body.String())
	}
	var resp freeTimeResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	want := []string{"2026-03-14T09:00:00Z", "2026-03-14T09:30:00Z"}
	if len(resp.MeetingStarts) != len(want) {
		t.Fatalf("meeting_starts = %v, want %v", resp.MeetingStarts, want)
	}
	for i := range want {
		if resp.MeetingStarts[i] != want[i] {
			t.Fatalf("meeting_starts[%d] = %s, want %s", i, resp.MeetingStarts[i], want[i])
		}
	}
}

func TestPreview_EmptyGroup(t *testing.T) {
	h := newPreviewHandler(t)
	rw := postPreview(t, h, `{
		"date": "2026-03-14",
		"window": {"start": "09:00", "end": "17:00"},
		"profiles": []
	}`)
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rw.Code, rw.Body.String())
	}
	var resp freeTimeResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if len(resp.Free) != 0 {
		t.Fatalf("free = %v, want empty for empty group", resp.Free)
	}
}

func TestPreview_MalformedTime(t *testing.T) {
	h := newPreviewHandler(t)
	rw := postPreview(t, h, `{
		"date": "2026-03-14",
		"window": {"start": "00:00", "end": "23:59"},
		"profiles": [{"id": "carol", "events": [{"start": "25:61", "end": "10:00"}]}]
	}`)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rw.Code)
	}
	body := rw.Body.String()
	if !strings.Contains(body, "carol") || !strings.Contains(body, "25:61") {
		t.Fatalf("error body %q should name participant and value", body)
	}
}

func TestPreview_InvalidWindow(t *testing.T) {
	h := newPreviewHandler(t)
	rw := postPreview(t, h, `{
		"date": "2026-03-14",
		"window": {"start": "17:00", "end": "09:00"},
		"profiles": [{"id": "a"}]
	}`)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rw.Code)
	}
}

func TestPreview_MethodNotAllowed(t *testing.T) {
	h := newPreviewHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/free-time/preview", nil)
	rw := httptest.NewRecorder()
	h.Preview(rw, req)
	if rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rw.Code)
	}
}

func TestPreview_BadJSON(t *testing.T) {
	h := newPreviewHandler(t)
	rw := postPreview(t, h, `{not json`)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rw.Code)
	}
}

func TestPreview_BadDate(t *testing.T) {
	h := newPreviewHandler(t)
	rw := postPreview(t, h, `{
		"date": "14/03/2026",
		"window": {"start": "09:00", "end": "17:00"},
		"profiles": [{"id": "a"}]
	}`)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rw.Code)
	}
}
