//nolint:testpackage // Tests require internal access for thorough testing
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/export"
	"github.com/abatilo/duedate/internal/storage"
	"github.com/abatilo/duedate/internal/task"
)

//nolint:gochecknoglobals // test fixture
var testOrigins = []string{"http://localhost:3000"}

func seedTasks() []task.Task {
	return []task.Task{
		{
			ID: 1, Name: "Write report", DueDate: task.MustParseDate("2024-03-06"),
			Priority: task.PriorityHigh, Progress: task.ProgressInProgress,
		},
		{
			ID: 2, Name: "Review", DueDate: task.MustParseDate("2024-03-08"),
			Priority: task.PriorityLow, Progress: task.ProgressNotStarted,
		},
	}
}

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	st := storage.NewStore(storage.NewMemoryBackend(seedTasks()...), nil)
	return New(st, nil, testOrigins), st
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeTasks(t *testing.T, rec *httptest.ResponseRecorder) []task.Task {
	t.Helper()
	var tasks []task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode tasks: %v (body %q)", err, rec.Body.String())
	}
	return tasks
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return resp.Error
}

func TestListTasks(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if diff := cmp.Diff(seedTasks(), decodeTasks(t, rec)); diff != "" {
		t.Errorf("GET /tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestListTasksEmpty(t *testing.T) {
	s := New(storage.NewStore(storage.NewMemoryBackend(), nil), nil, nil)

	rec := do(t, s, http.MethodGet, "/tasks", "")
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestUpsertCreatesTask(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/tasks",
		`{"name":"Plan sprint","due_date":"2024-06-01","priority":"High","progress":"Not Started"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var saved task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if saved.ID != 3 {
		t.Errorf("ID = %d, want 3", saved.ID)
	}
	if saved.DueDate.String() != "2024-06-03" {
		t.Errorf("DueDate = %s, want Monday 2024-06-03", saved.DueDate)
	}

	tasks, _ := st.List(context.Background())
	if len(tasks) != 3 {
		t.Errorf("len(tasks) = %d, want 3", len(tasks))
	}
}

func TestUpsertUpdatesOnlyThatTask(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/tasks",
		`{"id":1,"name":"Write report","due_date":"2024-06-02","priority":"High","progress":"In Progress"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	tasks, _ := st.List(context.Background())
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
	if got := tasks[0].DueDate.String(); got != "2024-06-03" {
		t.Errorf("task 1 DueDate = %s, want 2024-06-03", got)
	}
	if diff := cmp.Diff(seedTasks()[1], tasks[1]); diff != "" {
		t.Errorf("task 2 changed (-want +got):\n%s", diff)
	}
}

func TestUpsertPartialBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want task.Task
	}{
		{
			name: "update with id name and due date",
			body: `{"id":1,"name":"Write report","due_date":"2024-03-13"}`,
			want: task.Task{
				ID: 1, Name: "Write report", DueDate: task.MustParseDate("2024-03-13"),
				Priority: task.PriorityHigh, Progress: task.ProgressInProgress,
			},
		},
		{
			name: "update with id and weekend due date",
			body: `{"id":1,"due_date":"2024-03-16"}`,
			want: task.Task{
				ID: 1, Name: "Write report", DueDate: task.MustParseDate("2024-03-18"),
				Priority: task.PriorityHigh, Progress: task.ProgressInProgress,
			},
		},
		{
			name: "create with name and due date",
			body: `{"name":"Plan","due_date":"2024-03-14"}`,
			want: task.Task{
				ID: 3, Name: "Plan", DueDate: task.MustParseDate("2024-03-14"),
				Priority: task.PriorityMedium, Progress: task.ProgressNotStarted,
			},
		},
	}

	ignoreBookkeeping := cmp.Transformer("clearBookkeeping", func(tk task.Task) task.Task {
		tk.CreatedAt, tk.LastModified = task.Date{}, task.Date{}
		return tk
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st := newTestServer(t)

			rec := do(t, s, http.MethodPost, "/tasks", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			var saved task.Task
			if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tt.want, saved, ignoreBookkeeping); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}

			tasks, _ := st.List(context.Background())
			stored := tasks[len(tasks)-1]
			if tt.want.ID == 1 {
				stored = tasks[0]
			}
			if diff := cmp.Diff(tt.want, stored, ignoreBookkeeping); diff != "" {
				t.Errorf("stored task mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpsertErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "unknown id",
			body:     `{"id":42,"name":"Ghost","due_date":"2024-06-05"}`,
			wantCode: http.StatusNotFound,
			wantMsg:  "task not found: 42",
		},
		{
			name:     "missing name",
			body:     `{"due_date":"2024-06-05"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid task: name",
		},
		{
			name:     "bad date",
			body:     `{"name":"x","due_date":"05/06/2024"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid date format",
		},
		{
			name:     "bad priority",
			body:     `{"name":"x","due_date":"2024-06-05","priority":"Urgent"}`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid priority: Urgent",
		},
		{
			name:     "malformed json",
			body:     `{"name":`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st := newTestServer(t)

			rec := do(t, s, http.MethodPost, "/tasks", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if msg := decodeError(t, rec); !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.wantMsg)
			}
			tasks, _ := st.List(context.Background())
			if diff := cmp.Diff(seedTasks(), tasks); diff != "" {
				t.Errorf("store changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeleteRejected(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s, http.MethodDelete, "/tasks/1", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET, POST" {
		t.Errorf("Allow = %q, want %q", allow, "GET, POST")
	}
	want := dderrors.UnsupportedOperationError{Op: "deleting tasks"}.Error()
	if msg := decodeError(t, rec); msg != want {
		t.Errorf("error = %q, want %q", msg, want)
	}

	tasks, _ := st.List(context.Background())
	if diff := cmp.Diff(seedTasks(), tasks); diff != "" {
		t.Errorf("DELETE changed the store (-want +got):\n%s", diff)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestUnknownMethod(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPut, "/tasks", "{}")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /tasks status = %d, want 405", rec.Code)
	}
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/export?format=csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "id,name,") {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/export", "")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("default Content-Type = %q, want application/json", ct)
	}

	rec = do(t, s, http.MethodGet, "/export?format=xlsx", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantCode   int
		wantOrigin string
	}{
		{"allowed preflight", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
		{"denied preflight", http.MethodOptions, "http://evil.test", http.StatusForbidden, ""},
		{"allowed request", http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"other origin request", http.MethodGet, "http://evil.test", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/tasks", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("response should carry a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want the incoming one", got)
	}
}

type failingStore struct{ err error }

func (f failingStore) List(context.Context) ([]task.Task, error) { return nil, f.err }
func (f failingStore) Upsert(context.Context, task.Task) (task.Task, error) {
	return task.Task{}, f.err
}
func (f failingStore) Delete(context.Context, int64) error { return f.err }

func TestStorageFailureIs500(t *testing.T) {
	s := New(failingStore{err: errors.New("disk full")}, nil, nil)

	rec := do(t, s, http.MethodGet, "/tasks", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "disk full" {
		t.Errorf("error = %q", msg)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{dderrors.ValidationError{Field: "name", Reason: "is required"}, http.StatusBadRequest},
		{dderrors.InvalidProgressError{Value: "x"}, http.StatusBadRequest},
		{export.UnknownFormatError{Format: "x"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", dderrors.TaskNotFoundError{ID: 1}), http.StatusNotFound},
		{dderrors.UnsupportedOperationError{Op: "deleting tasks"}, http.StatusMethodNotAllowed},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestListenAndServeShutsDown(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0", time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
