// Package pprof exposes the runtime profiles of the serve process on a
// listener separate from the task API.
package pprof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	netpprof "net/http/pprof"
	"runtime"
	"sync"

	"github.com/codefionn/planrunner/internal/logger"
)

// Server serves /debug/pprof/.
type Server struct {
	addr string
	log  *logger.Logger

	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
}

// New creates a profiling server for addr ("localhost:6060").
func New(addr string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Global()
	}
	return &Server{addr: addr, log: log.WithPrefix("pprof")}
}

// Handler returns the profile routes.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", netpprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", netpprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", netpprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", netpprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", netpprof.Trace)
	for _, name := range []string{"goroutine", "heap", "block", "mutex", "threadcreate", "allocs"} {
		mux.Handle("/debug/pprof/"+name, netpprof.Handler(name))
	}
	return mux
}

// Start binds the listener and serves in the background. Block and mutex
// sampling are enabled while the server runs.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("pprof server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind pprof server: %w", err)
	}
	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)

	s.ln = ln
	s.server = &http.Server{Handler: Handler(), ErrorLog: logger.NewStdLogger(s.log, slog.LevelWarn)}
	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error: %v", err)
		}
	}()
	s.log.Info("Listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop shuts the server down and disables block and mutex sampling.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.ln = nil
	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
	if err != nil {
		return fmt.Errorf("failed to shut down pprof server: %w", err)
	}
	return nil
}
