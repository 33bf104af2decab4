package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/abatilo/duedate/internal/client"
	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/server"
	"github.com/abatilo/duedate/internal/storage"
	"github.com/abatilo/duedate/internal/task"
)

func newAPI(t *testing.T, seed ...task.Task) (*client.Client, *storage.Store) {
	t.Helper()
	st := storage.NewStore(storage.NewMemoryBackend(seed...), nil)
	ts := httptest.NewServer(server.New(st, nil, nil).Handler())
	t.Cleanup(ts.Close)
	return client.New(ts.URL+"/", 5*time.Second), st
}

func TestListAndUpsert(t *testing.T) {
	seed := task.Task{
		ID: 1, Name: "Write report", DueDate: task.MustParseDate("2024-06-05"),
		Priority: task.PriorityHigh, Progress: task.ProgressInProgress,
	}
	c, _ := newAPI(t, seed)
	ctx := context.Background()

	tasks, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if diff := cmp.Diff([]task.Task{seed}, tasks); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	saved, err := c.Upsert(ctx, task.Task{Name: "Plan", DueDate: task.MustParseDate("2024-06-02")})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if saved.ID != 2 || saved.DueDate.String() != "2024-06-03" {
		t.Errorf("Upsert() = %+v, want id 2 due 2024-06-03", saved)
	}
}

func TestListEmpty(t *testing.T) {
	c, _ := newAPI(t)
	tasks, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("List() = %#v, want empty slice", tasks)
	}
}

func TestUpsertAPIError(t *testing.T) {
	c, _ := newAPI(t)

	_, err := c.Upsert(context.Background(), task.Task{ID: 9, Name: "Ghost", DueDate: task.MustParseDate("2024-06-05")})

	var apiErr dderrors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Upsert() error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "task not found: 9" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail field", `{"detail":"Task not found"}`, "Task not found"},
		{"plain text", "gateway timeout\n", "gateway timeout"},
		{"empty body", "", "502 Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := client.New(ts.URL, time.Second).List(context.Background())
			var apiErr dderrors.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want APIError", err)
			}
			if apiErr.Message != tt.want {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.want)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := client.New(url, time.Second).List(context.Background())
	var transport dderrors.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if transport.Op != "GET /tasks" {
		t.Errorf("Op = %q", transport.Op)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode([]task.Task{})
	}))
	defer ts.Close()
	defer close(release)

	_, err := client.New(ts.URL, 50*time.Millisecond).List(context.Background())
	var transport dderrors.TransportError
	if !errors.As(err, &transport) {
		t.Errorf("error = %v, want TransportError on timeout", err)
	}
}

func TestDeleteMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	err := client.New(ts.URL, time.Second).Delete(context.Background(), 1)

	var unsupported dderrors.UnsupportedOperationError
	if !errors.As(err, &unsupported) {
		t.Errorf("Delete() error = %v, want UnsupportedOperationError", err)
	}
	if hits.Load() != 0 {
		t.Errorf("Delete() made %d request(s), want 0", hits.Load())
	}
}
