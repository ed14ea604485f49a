package sandbox

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/codefionn/planrunner/internal/logger"
	"github.com/codefionn/planrunner/internal/procgroup"
	"github.com/codefionn/planrunner/internal/typeexpr"
)

//go:embed kernel.py
var kernelSource string

const kernelCloseWait = 2 * time.Second

// errKernelCrashed marks a kernel that died while serving a request.
var errKernelCrashed = errors.New("kernel exited")

// State is the variable namespace of one worker, backed by a persistent
// python kernel. The kernel is started on first use and restarted lazily
// after a crash, with an empty namespace.
type State struct {
	python string
	dir    string
	output io.Writer
	log    *logger.Logger

	mu           sync.Mutex
	kernel       *kernel
	seq          int64
	fingerprints map[string]uint64
	closed       bool
}

type kernel struct {
	cmd  *exec.Cmd
	req  *os.File
	resp *bufio.Reader
	done chan struct{}

	// waitErr is valid once done is closed.
	waitErr error
}

// NewState prepares a namespace whose kernel runs python in dir. Output the
// user's code writes straight to the process file descriptors (for example
// from subprocesses) goes to output, or to stderr when nil.
func NewState(python, dir string, output io.Writer, log *logger.Logger) *State {
	if python == "" {
		python = "python3"
	}
	if output == nil {
		output = os.Stderr
	}
	if log == nil {
		log = logger.Global()
	}
	return &State{
		python:       python,
		dir:          dir,
		output:       output,
		log:          log.WithPrefix("kernel"),
		fingerprints: make(map[string]uint64),
	}
}

type execRequest struct {
	ID    int64    `json:"id"`
	Op    string   `json:"op"`
	Code  string   `json:"code,omitempty"`
	Names []string `json:"names,omitempty"`
}

type stateEntry struct {
	Value   typeexpr.Value `json:"value"`
	Preview string         `json:"preview"`
}

type execResponse struct {
	ID     int64                 `json:"id"`
	Stdout string                `json:"stdout"`
	Stderr string                `json:"stderr"`
	Failed bool                  `json:"failed"`
	State  map[string]stateEntry `json:"state"`
	Error  string                `json:"error"`
}

type getResponse struct {
	ID    int64               `json:"id"`
	Vars  map[string]Variable `json:"vars"`
	Error string              `json:"error"`
}

// Exec runs code in the namespace. A traceback is reported in Stderr after
// whatever the code wrote to its own stderr. A kernel crash is reported as
// the block's stderr and does not return an error; ctx cancellation kills
// the kernel and does.
func (s *State) Exec(ctx context.Context, code string) (Result, error) {
	var resp execResponse
	if err := s.call(ctx, execRequest{Op: "exec", Code: code}, &resp); err != nil {
		if errors.Is(err, errKernelCrashed) {
			changed := s.resetFingerprints()
			return Result{Stderr: "Python kernel error: " + err.Error(), Changed: changed}, nil
		}
		return Result{}, err
	}
	if resp.Error != "" {
		return Result{Stderr: "Python kernel error: " + resp.Error}, nil
	}

	return Result{
		Stdout:  resp.Stdout,
		Stderr:  resp.Stderr,
		Changed: s.updateFingerprints(resp.State),
	}, nil
}

// Lookup reads the named variables from the namespace.
func (s *State) Lookup(ctx context.Context, names ...string) (map[string]Variable, error) {
	var resp getResponse
	if err := s.call(ctx, execRequest{Op: "get", Names: names}, &resp); err != nil {
		if errors.Is(err, errKernelCrashed) {
			s.resetFingerprints()
		}
		return nil, fmt.Errorf("python kernel error: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python kernel error: %s", resp.Error)
	}
	if resp.Vars == nil {
		resp.Vars = make(map[string]Variable)
	}
	return resp.Vars, nil
}

// Close stops the kernel. The State cannot be used afterwards.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.kernel == nil {
		return nil
	}
	k := s.kernel
	s.kernel = nil

	_ = k.req.Close()
	select {
	case <-k.done:
	case <-time.After(kernelCloseWait):
		_ = k.cmd.Process.Kill()
		<-k.done
	}
	return nil
}

func (s *State) call(ctx context.Context, req execRequest, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("python kernel is closed")
	}
	if s.kernel == nil {
		k, err := s.start()
		if err != nil {
			return err
		}
		s.kernel = k
	}
	k := s.kernel

	s.seq++
	req.ID = s.seq
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode kernel request: %w", err)
	}

	if _, err := k.req.Write(append(line, '\n')); err != nil {
		return s.crashed(k, err)
	}

	type reply struct {
		line []byte
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		l, err := k.resp.ReadBytes('\n')
		ch <- reply{l, err}
	}()

	select {
	case <-ctx.Done():
		s.kill(k)
		<-ch
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return s.crashed(k, r.err)
		}
		if err := json.Unmarshal(r.line, out); err != nil {
			return fmt.Errorf("decode kernel response: %w", err)
		}
		return nil
	}
}

func (s *State) start() (*kernel, error) {
	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKernelUnavailable, err)
	}
	respR, respW, err := os.Pipe()
	if err != nil {
		reqR.Close()
		reqW.Close()
		return nil, fmt.Errorf("%w: %v", ErrKernelUnavailable, err)
	}

	cmd := exec.Command(s.python, "-u", "-c", kernelSource)
	cmd.Dir = s.dir
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1", "PYTHONIOENCODING=utf-8")
	cmd.Stdout = s.output
	cmd.Stderr = s.output
	// fd 3 carries requests, fd 4 responses
	cmd.ExtraFiles = []*os.File{reqR, respW}

	if err := cmd.Start(); err != nil {
		reqR.Close()
		reqW.Close()
		respR.Close()
		respW.Close()
		return nil, fmt.Errorf("%w: %v", ErrKernelUnavailable, err)
	}
	reqR.Close()
	respW.Close()

	k := &kernel{
		cmd:  cmd,
		req:  reqW,
		resp: bufio.NewReaderSize(respR, 64*1024),
		done: make(chan struct{}),
	}
	go func() {
		k.waitErr = cmd.Wait()
		respR.Close()
		close(k.done)
	}()

	s.log.Debug("started python kernel pid=%d dir=%s", cmd.Process.Pid, s.dir)
	return k, nil
}

// crashed tears down a kernel that failed mid-request. Callers hold s.mu.
func (s *State) crashed(k *kernel, cause error) error {
	s.kill(k)
	code := procgroup.ExitCode(k.cmd.ProcessState)
	s.log.Warn("python kernel died (exit %d): %v", code, cause)
	return fmt.Errorf("%w with code %d", errKernelCrashed, code)
}

// kill stops k and forgets it. Callers hold s.mu.
func (s *State) kill(k *kernel) {
	_ = k.cmd.Process.Kill()
	_ = k.req.Close()
	<-k.done
	if s.kernel == k {
		s.kernel = nil
	}
}

func (s *State) resetFingerprints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make([]string, 0, len(s.fingerprints))
	for name := range s.fingerprints {
		changed = append(changed, name)
	}
	sort.Strings(changed)
	s.fingerprints = make(map[string]uint64)
	return changed
}

func (s *State) updateFingerprints(state map[string]stateEntry) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]uint64, len(state))
	var changed []string
	for name, entry := range state {
		fp := fingerprint(entry)
		next[name] = fp
		if prev, ok := s.fingerprints[name]; !ok || prev != fp {
			changed = append(changed, name)
		}
	}
	for name := range s.fingerprints {
		if _, ok := next[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	s.fingerprints = next
	return changed
}

func fingerprint(entry stateEntry) uint64 {
	h := xxhash.New()
	if data, err := json.Marshal(entry.Value); err == nil {
		_, _ = h.Write(data)
	}
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(entry.Preview)
	return h.Sum64()
}
