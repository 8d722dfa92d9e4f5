// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
	"k8s.io/utils/clock"
)

// Registry supervises the services deployed on this node. It launches
// them, tracks their root pids, and hands out consistent snapshots of the
// managed set to the chore keeper and the HTTP plane.
type Registry struct {
	logger *slog.Logger
	clock  clock.PassiveClock

	procFSPath string
	signal     func(pid int, sig syscall.Signal) error

	mu    sync.RWMutex
	procs map[int]*Process
}

// Options contains the registry configuration.
type Options struct {
	logger     *slog.Logger
	clock      clock.PassiveClock
	procFSPath string
	signal     func(pid int, sig syscall.Signal) error
}

type OptionFn func(*Options)

func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Options) { o.logger = logger }
}

func WithClock(c clock.PassiveClock) OptionFn {
	return func(o *Options) { o.clock = c }
}

func WithProcFSPath(path string) OptionFn {
	return func(o *Options) { o.procFSPath = path }
}

// WithSignalFn overrides signal delivery; tests use this to observe
// Stop without killing anything.
func WithSignalFn(fn func(pid int, sig syscall.Signal) error) OptionFn {
	return func(o *Options) { o.signal = fn }
}

func defaultOptions() *Options {
	return &Options{
		logger:     slog.Default(),
		clock:      clock.RealClock{},
		procFSPath: procfs.DefaultMountPoint,
		signal:     unix.Kill,
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...OptionFn) *Registry {
	opt := defaultOptions()
	for _, fn := range opts {
		fn(opt)
	}

	return &Registry{
		logger:     opt.logger.With("service", "registry"),
		clock:      opt.clock,
		procFSPath: opt.procFSPath,
		signal:     opt.signal,
		procs:      make(map[int]*Process),
	}
}

func (r *Registry) Name() string {
	return "registry"
}

// Run blocks until ctx is done. The registry has no work loop of its own;
// being a Runner is what gets Shutdown invoked when the run group exits.
func (r *Registry) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Manage launches the service described by spec and starts tracking it.
func (r *Registry) Manage(spec ServerSpec) (*Process, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server spec: %w", err)
	}

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch service %s: %w", spec.Name, err)
	}

	p := &Process{
		spec:      spec,
		pid:       cmd.Process.Pid,
		startedAt: r.clock.Now(),
		cmd:       cmd,
	}

	r.mu.Lock()
	r.procs[p.pid] = p
	r.mu.Unlock()

	go r.reapOnExit(p)

	r.logger.Info("service launched", "service", spec.Name, "pid", p.pid)
	return p, nil
}

// Adopt starts tracking an already-running process under spec. The
// registry does not own its lifecycle and only drops it via Reap.
func (r *Registry) Adopt(pid int, spec ServerSpec) (*Process, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server spec: %w", err)
	}

	p := NewProcess(pid, spec)
	p.startedAt = r.clock.Now()

	r.mu.Lock()
	r.procs[pid] = p
	r.mu.Unlock()

	r.logger.Info("service adopted", "service", spec.Name, "pid", pid)
	return p, nil
}

// reapOnExit waits for a launched service to exit and drops it from the
// managed set. This is also what collects the zombie after a kill.
func (r *Registry) reapOnExit(p *Process) {
	err := p.cmd.Wait()

	r.mu.Lock()
	delete(r.procs, p.pid)
	r.mu.Unlock()

	if err != nil {
		r.logger.Info("service exited", "service", p.spec.Name, "pid", p.pid, "reason", err)
	} else {
		r.logger.Info("service exited", "service", p.spec.Name, "pid", p.pid)
	}
}

// Processes returns a snapshot of the managed set, sorted by pid. Callers
// iterate the snapshot without holding any registry lock, which is what
// gives the chore keeper its consistent per-cycle view.
func (r *Registry) Processes() []*Process {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Process, 0, len(r.procs))
	for _, p := range r.procs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pid < out[j].pid })
	return out
}

// Find returns the managed process with the given pid.
func (r *Registry) Find(pid int) (*Process, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.procs[pid]
	return p, ok
}

// Stop asks a managed service to terminate with SIGTERM, escalating to
// SIGKILL after grace. The exit itself is observed by reapOnExit.
func (r *Registry) Stop(pid int, grace time.Duration) error {
	p, ok := r.Find(pid)
	if !ok {
		return fmt.Errorf("no managed service with pid %d", pid)
	}

	r.logger.Info("stopping service", "service", p.spec.Name, "pid", pid)
	if err := r.signal(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}

	if grace <= 0 {
		return nil
	}

	go func() {
		deadline := r.clock.Now().Add(grace)
		for r.clock.Now().Before(deadline) {
			if _, alive := r.Find(pid); !alive {
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		if _, alive := r.Find(pid); alive {
			r.logger.Warn("service ignored SIGTERM, escalating", "service", p.spec.Name, "pid", pid)
			_ = r.signal(pid, unix.SIGKILL)
		}
	}()
	return nil
}

// Reap drops adopted processes that are no longer alive according to
// procfs. Launched processes are reaped by their Wait goroutine instead.
func (r *Registry) Reap() {
	fs, err := procfs.NewFS(r.procFSPath)
	if err != nil {
		r.logger.Warn("cannot open procfs, skipping reap", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for pid, p := range r.procs {
		if p.cmd != nil {
			continue
		}
		if _, err := fs.Proc(pid); err != nil {
			r.logger.Info("adopted service gone", "service", p.spec.Name, "pid", pid)
			delete(r.procs, pid)
		}
	}
}

// Comm returns the kernel's comm value for a managed pid, for diagnostics.
func (r *Registry) Comm(pid int) string {
	fs, err := procfs.NewFS(r.procFSPath)
	if err != nil {
		return ""
	}
	proc, err := fs.Proc(pid)
	if err != nil {
		return ""
	}
	comm, err := proc.Comm()
	if err != nil {
		return ""
	}
	return comm
}

// Shutdown stops every launched service.
func (r *Registry) Shutdown() error {
	r.mu.RLock()
	pids := make([]int, 0, len(r.procs))
	for pid, p := range r.procs {
		if p.cmd != nil {
			pids = append(pids, pid)
		}
	}
	r.mu.RUnlock()

	for _, pid := range pids {
		if err := r.Stop(pid, 5*time.Second); err != nil {
			r.logger.Warn("failed to stop service during shutdown", "pid", pid, "error", err)
		}
	}
	return nil
}
