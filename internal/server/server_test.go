package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nick-dorsch/slotplan/internal/planner"
	"github.com/nick-dorsch/slotplan/internal/qualifications"
	"github.com/nick-dorsch/slotplan/internal/scheduler"
	"github.com/nick-dorsch/slotplan/pkg/models"
)

var fixedNow = time.Date(2025, 11, 1, 14, 30, 0, 0, time.UTC)

func newTestService() *planner.Service {
	clock := func() time.Time { return fixedNow }
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
	reg := qualifications.NewRegistry(models.Qualifications{
		Qualifications: map[string][]string{"inspection": {"Alice", "Bob"}},
		TeamMembers: map[string]models.MemberProfile{
			"Alice": {Role: "Inspector"},
			"Bob":   {Role: "Inspector"},
		},
	})
	return planner.New(
		scheduler.New(scheduler.DefaultConfig(), scheduler.WithClock(clock)),
		planner.WithClock(clock),
		planner.WithIDs(ids),
		planner.WithRegistry(qualifications.NewProvider(reg)),
	)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) planner.Result {
	t.Helper()
	var res planner.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to unmarshal result: %v\nBody: %s", err, w.Body.String())
	}
	return res
}

func slotOf(task *models.Task) string {
	return models.StringValue(task.ScheduledDate) + " " + models.StringValue(task.ScheduledTime)
}

func TestServer_API(t *testing.T) {
	srv := NewServer(newTestService(), WithClock(func() time.Time { return fixedNow }))
	h := srv.Handler()

	t.Run("POST /api/tasks", func(t *testing.T) {
		w := do(t, h, "POST", "/api/tasks", `{"name":"Boiler check","duration":2,"taskType":"inspection"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status Created, got %v: %s", w.Code, w.Body.String())
		}
		res := decodeResult(t, w)
		if res.Task == nil || res.Task.ID != "t1" {
			t.Fatalf("Expected task t1, got %+v", res.Task)
		}
		if slotOf(res.Task) != "2025-11-01 09:00:00" {
			t.Errorf("Unexpected slot %s", slotOf(res.Task))
		}
		if res.Task.Assignee() != "Alice" {
			t.Errorf("Expected Alice, got %q", res.Task.Assignee())
		}
	})

	t.Run("POST /api/tasks invalid", func(t *testing.T) {
		if w := do(t, h, "POST", "/api/tasks", `{"name":"x","duration":0}`); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status BadRequest, got %v", w.Code)
		}
		if w := do(t, h, "POST", "/api/tasks", `{not json`); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status BadRequest for bad body, got %v", w.Code)
		}
	})

	t.Run("GET /api/tasks", func(t *testing.T) {
		w := do(t, h, "GET", "/api/tasks", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		var tasks []models.Task
		if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
			t.Fatalf("Failed to unmarshal tasks: %v", err)
		}
		if len(tasks) != 1 || tasks[0].Name != "Boiler check" {
			t.Errorf("Unexpected tasks %+v", tasks)
		}
	})

	t.Run("GET /api/tasks/{id}", func(t *testing.T) {
		if w := do(t, h, "GET", "/api/tasks/t1", ""); w.Code != http.StatusOK {
			t.Errorf("Expected status OK, got %v", w.Code)
		}
		if w := do(t, h, "GET", "/api/tasks/nope", ""); w.Code != http.StatusNotFound {
			t.Errorf("Expected status NotFound, got %v", w.Code)
		}
	})

	t.Run("PUT /api/tasks/{id}", func(t *testing.T) {
		w := do(t, h, "PUT", "/api/tasks/t1", `{"notes":"bring ladder"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}
		res := decodeResult(t, w)
		if res.Task.Name != "Boiler check" || res.Task.Notes != "bring ladder" {
			t.Errorf("Unexpected task after update %+v", res.Task)
		}
		if w := do(t, h, "PUT", "/api/tasks/nope", `{}`); w.Code != http.StatusNotFound {
			t.Errorf("Expected status NotFound, got %v", w.Code)
		}
	})

	t.Run("POST /api/tasks/{id}/drop", func(t *testing.T) {
		w := do(t, h, "POST", "/api/tasks/t1/drop", `{"start":"2025-11-04T13:00:00"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}
		if res := decodeResult(t, w); slotOf(res.Task) != "2025-11-04 13:00:00" {
			t.Errorf("Unexpected slot %s", slotOf(res.Task))
		}
		if w := do(t, h, "POST", "/api/tasks/t1/drop", `{"start":"soon"}`); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status BadRequest, got %v", w.Code)
		}
	})

	t.Run("POST /api/tasks/{id}/resize", func(t *testing.T) {
		w := do(t, h, "POST", "/api/tasks/t1/resize", `{"end":"2025-11-04T16:00"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}
		if res := decodeResult(t, w); res.Task.Duration != 3 {
			t.Errorf("Expected duration 3, got %v", res.Task.Duration)
		}
	})

	t.Run("POST /api/tasks/{id}/assign", func(t *testing.T) {
		w := do(t, h, "POST", "/api/tasks/t1/assign", `{"member":"Bob"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}
		if res := decodeResult(t, w); res.Task.Assignee() != "Bob" {
			t.Errorf("Expected Bob, got %q", res.Task.Assignee())
		}
		if w := do(t, h, "POST", "/api/tasks/t1/assign", `{"member":"Mallory"}`); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status BadRequest, got %v", w.Code)
		}
	})

	t.Run("GET /api/events", func(t *testing.T) {
		var events []models.CalendarEvent
		w := do(t, h, "GET", "/api/events", "")
		if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
			t.Fatalf("Failed to unmarshal events: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(events))
		}
		if events[0].Start != "2025-11-04T13:00:00" || events[0].End != "2025-11-04T16:00:00" {
			t.Errorf("Unexpected event times %s - %s", events[0].Start, events[0].End)
		}
		if events[0].Color != "#3b82f6" {
			t.Errorf("Expected medium colour, got %s", events[0].Color)
		}
	})

	t.Run("GET /api/members and /api/task-types", func(t *testing.T) {
		var members []models.MemberProfile
		if err := json.Unmarshal(do(t, h, "GET", "/api/members", "").Body.Bytes(), &members); err != nil {
			t.Fatalf("Failed to unmarshal members: %v", err)
		}
		if len(members) != 2 {
			t.Errorf("Expected 2 members, got %d", len(members))
		}

		var types map[string][]string
		if err := json.Unmarshal(do(t, h, "GET", "/api/task-types", "").Body.Bytes(), &types); err != nil {
			t.Fatalf("Failed to unmarshal task types: %v", err)
		}
		if strings.Join(types["inspection"], ",") != "Alice,Bob" {
			t.Errorf("Unexpected task types %v", types)
		}
	})

	t.Run("POST /api/import csv body", func(t *testing.T) {
		body := "Task Name,Duration (hours),Preferred Date\nPaperwork,1,2025-11-05\n,2,\n"
		req := httptest.NewRequest("POST", "/api/import?format=csv", strings.NewReader(body))
		req.Header.Set("Content-Type", "text/csv")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}
		res := decodeResult(t, w)
		if len(res.Imported) != 1 || len(res.Skipped) != 1 {
			t.Fatalf("Unexpected import result %+v", res)
		}
		if got := slotOf(&res.Imported[0]); got != "2025-11-05 09:00:00" {
			t.Errorf("Unexpected slot %s", got)
		}
	})

	t.Run("POST /api/import multipart", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "rows.json")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		fw.Write([]byte(`[{"name":"Survey","hours":1.5,"type":"inspection","date":"2025-11-04"}]`))
		mw.Close()

		req := httptest.NewRequest("POST", "/api/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}
		res := decodeResult(t, w)
		if len(res.Imported) != 1 {
			t.Fatalf("Expected 1 imported task, got %+v", res)
		}
		if got := slotOf(&res.Imported[0]); got != "2025-11-04 09:00:00" {
			t.Errorf("Unexpected slot %s", got)
		}
		if res.Imported[0].Assignee() != "Alice" {
			t.Errorf("Expected Alice, got %q", res.Imported[0].Assignee())
		}
	})

	t.Run("GET /api/stats", func(t *testing.T) {
		var stats models.Stats
		if err := json.Unmarshal(do(t, h, "GET", "/api/stats", "").Body.Bytes(), &stats); err != nil {
			t.Fatalf("Failed to unmarshal stats: %v", err)
		}
		if stats.TotalTasks != 3 || stats.ScheduledTasks != 3 || stats.TotalHours != 5.5 || stats.WeekTasks != 3 {
			t.Errorf("Unexpected stats %+v", stats)
		}
	})

	t.Run("GET /api/export", func(t *testing.T) {
		w := do(t, h, "GET", "/api/export", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "task-planner-backup-2025-11-01.json") {
			t.Errorf("Unexpected Content-Disposition %q", cd)
		}
		var tasks []models.Task
		if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
			t.Fatalf("Failed to unmarshal export: %v", err)
		}
		if len(tasks) != 3 {
			t.Errorf("Expected 3 exported tasks, got %d", len(tasks))
		}

		w = do(t, h, "GET", "/api/export?format=yaml", "")
		if !strings.Contains(w.Header().Get("Content-Disposition"), ".yaml") {
			t.Errorf("Expected yaml file name, got %q", w.Header().Get("Content-Disposition"))
		}
		if !strings.Contains(w.Body.String(), "name: Boiler check") {
			t.Errorf("Expected yaml body, got %s", w.Body.String())
		}

		if w := do(t, h, "GET", "/api/export?format=xml", ""); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status BadRequest, got %v", w.Code)
		}
	})

	t.Run("DELETE /api/tasks/{id}", func(t *testing.T) {
		if w := do(t, h, "DELETE", "/api/tasks/t1", ""); w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		if w := do(t, h, "GET", "/api/tasks/t1", ""); w.Code != http.StatusNotFound {
			t.Errorf("Expected status NotFound after delete, got %v", w.Code)
		}
		if w := do(t, h, "DELETE", "/api/tasks/t1", ""); w.Code != http.StatusNotFound {
			t.Errorf("Expected status NotFound deleting twice, got %v", w.Code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	h := NewServer(newTestService(), WithRateLimit(1, 2)).Handler()

	for i := 0; i < 2; i++ {
		if w := do(t, h, "GET", "/api/stats", ""); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected status OK, got %v", i, w.Code)
		}
	}
	w := do(t, h, "GET", "/api/stats", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status TooManyRequests, got %v", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}

func TestRateLimitDisabled(t *testing.T) {
	h := NewServer(newTestService(), WithRateLimit(0, 0)).Handler()
	for i := 0; i < 50; i++ {
		if w := do(t, h, "GET", "/api/stats", ""); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected status OK, got %v", i, w.Code)
		}
	}
}

func TestUpdateTaskRejectedLeavesTaskUnchanged(t *testing.T) {
	svc := newTestService()
	h := NewServer(svc).Handler()

	w := do(t, h, "POST", "/api/tasks", `{"name":"Survey","duration":2,"preferredDate":"2025-11-04"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status Created, got %v: %s", w.Code, w.Body.String())
	}

	for _, body := range []string{
		`{"preferredDate":"not-a-date"}`,
		`{"duration":"long"}`,
		`{"name":`,
	} {
		if w := do(t, h, "PUT", "/api/tasks/t1", body); w.Code != http.StatusBadRequest {
			t.Errorf("PUT %s: expected status BadRequest, got %v: %s", body, w.Code, w.Body.String())
		}
	}

	task, err := svc.Get("t1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := models.StringValue(task.PreferredDate); got != "2025-11-04" {
		t.Errorf("Expected preferred date 2025-11-04 to survive, got %q", got)
	}
	if task.Duration != 2 || task.Name != "Survey" {
		t.Errorf("Unexpected task after rejected updates %+v", task)
	}
}
