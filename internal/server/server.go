// Package server exposes the supervisor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/planrunner/internal/events"
	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/supervisor"
	"github.com/codefionn/planrunner/internal/task"
)

// Supervisor is the part of *supervisor.Supervisor the API needs.
type Supervisor interface {
	Submit(goal string) string
	Status(id string) task.Status
	List() []task.Summary
	Reset() supervisor.ResetReport
	Health() supervisor.Health
}

// EventStore returns the recorded history of a task. *events.Journal
// implements it.
type EventStore interface {
	Events(taskID string) ([]events.Event, error)
}

// RunRequest is the body of POST /run.
type RunRequest struct {
	Task *string `json:"task"`
}

// RunResponse acknowledges a submission.
type RunResponse struct {
	TaskID  string     `json:"task_id"`
	Status  task.State `json:"status"`
	Message string     `json:"message"`
}

// TaskList is the body of GET /tasks.
type TaskList struct {
	Tasks []task.Summary `json:"tasks"`
}

// ResetResponse is the body of GET /reset.
type ResetResponse struct {
	Status string `json:"status"`
	supervisor.ResetReport
}

// TaskEvents is the body of GET /tasks/:task_id/events.
type TaskEvents struct {
	TaskID string         `json:"task_id"`
	Events []events.Event `json:"events"`
}

// ErrorResponse carries a client-facing error message.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Server provides the HTTP interface of the supervisor
type Server struct {
	sup     Supervisor
	journal EventStore
	stream  http.Handler
	router  *httprouter.Router
	server  *http.Server
	log     *logger.Logger
}

// New creates a server. journal and stream may be nil, which disables the
// history endpoint and the WebSocket stream respectively.
func New(addr string, sup Supervisor, journal EventStore, stream http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Global()
	}
	s := &Server{
		sup:     sup,
		journal: journal,
		stream:  stream,
		router:  httprouter.New(),
		log:     log.WithPrefix("http"),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.NewStdLogger(s.log, slog.LevelWarn),
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.POST("/run", s.handleRun)
	s.router.GET("/status/:task_id", s.handleStatus)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/tasks", s.handleTasks)
	s.router.GET("/tasks/:task_id/events", s.handleTaskEvents)
	s.router.GET("/reset", s.handleReset)
	s.router.GET("/events", s.handleStream)
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("Listening on %s", ln.Addr())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "invalid request body: " + err.Error()})
		return
	}
	if req.Task == nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "field \"task\" is required"})
		return
	}

	id := s.sup.Submit(*req.Task)
	s.writeJSON(w, http.StatusOK, RunResponse{TaskID: id, Status: task.StatePending, Message: "Task submitted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.writeJSON(w, http.StatusOK, s.sup.Status(ps.ByName("task_id")))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.writeJSON(w, http.StatusOK, s.sup.Health())
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.writeJSON(w, http.StatusOK, TaskList{Tasks: s.sup.List()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report := s.sup.Reset()
	s.writeJSON(w, http.StatusOK, ResetResponse{Status: "reset_complete", ResetReport: report})
}

func (s *Server) handleTaskEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if s.journal == nil {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "event journal is disabled"})
		return
	}
	id := ps.ByName("task_id")
	evs, err := s.journal.Events(id)
	if err != nil {
		s.log.Error("Failed to read events of %s: %v", logger.ShortID(id), err)
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, TaskEvents{TaskID: id, Events: evs})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.stream == nil {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "event stream is disabled"})
		return
	}
	s.stream.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("Failed to write response: %v", err)
	}
}
