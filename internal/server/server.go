// Package server exposes the task store over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/export"
	"github.com/abatilo/duedate/internal/task"
)

const (
	readHeaderTimeout = 5 * time.Second
	maxBodyBytes      = 1 << 20
)

// Store is the subset of storage.Store the handlers need.
type Store interface {
	List(ctx context.Context) ([]task.Task, error)
	Upsert(ctx context.Context, t task.Task) (task.Task, error)
	Delete(ctx context.Context, id int64) error
}

type Server struct {
	store          Store
	logger         *zap.Logger
	allowedOrigins []string
	handler        http.Handler
}

// New builds the server and its route table. Requests from allowedOrigins
// receive CORS headers.
func New(st Store, logger *zap.Logger, allowedOrigins []string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{store: st, logger: logger, allowedOrigins: allowedOrigins}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /tasks", s.handleList)
	mux.HandleFunc("POST /tasks", s.handleUpsert)
	mux.HandleFunc("DELETE /tasks/{id}", s.handleDelete)
	mux.HandleFunc("GET /export", s.handleExport)

	s.handler = s.withRequestID(s.withLogging(s.withCORS(mux)))
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// giving in-flight requests up to shutdownTimeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&t); err != nil {
		s.writeErr(w, r, badRequestError{err: err})
		return
	}
	saved, err := s.store.Upsert(r.Context(), t)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err := s.store.Delete(r.Context(), id); err != nil {
		w.Header().Set("Allow", "GET, POST")
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	data, err := export.NewExporter(s.store).Export(r.Context(), format)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	_, _ = w.Write(data)
}

// badRequestError marks a request body that could not be decoded.
type badRequestError struct {
	err error
}

func (e badRequestError) Error() string {
	var dateErr dderrors.InvalidDateError
	if errors.As(e.err, &dateErr) {
		return dateErr.Error()
	}
	return "invalid request body: " + e.err.Error()
}

func (e badRequestError) Unwrap() error {
	return e.err
}

// statusFor maps a handler error to its HTTP status code.
func statusFor(err error) int {
	var (
		badRequest  badRequestError
		validation  dderrors.ValidationError
		priority    dderrors.InvalidPriorityError
		progress    dderrors.InvalidProgressError
		date        dderrors.InvalidDateError
		missing     dderrors.MissingFieldsError
		format      export.UnknownFormatError
		notFound    dderrors.TaskNotFoundError
		unsupported dderrors.UnsupportedOperationError
	)
	switch {
	case errors.As(err, &badRequest), errors.As(err, &validation), errors.As(err, &priority),
		errors.As(err, &progress), errors.As(err, &date), errors.As(err, &missing), errors.As(err, &format):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unsupported):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
