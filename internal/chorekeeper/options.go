// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package chorekeeper

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
	"k8s.io/utils/clock"
)

type Clock = clock.Clock

// Options contains the chore keeper wiring. The detection thresholds and
// the cadence are not here on purpose; behavior is driven entirely by the
// declared per-service capacities.
type Options struct {
	logger     *slog.Logger
	clock      Clock
	procFSPath string
	selfPID    int
	kill       func(pid int) error
}

type OptionFn func(*Options)

func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Options) { o.logger = logger }
}

func WithClock(c Clock) OptionFn {
	return func(o *Options) { o.clock = c }
}

// WithProcFSPath points the keeper at an alternative proc mount.
func WithProcFSPath(path string) OptionFn {
	return func(o *Options) { o.procFSPath = path }
}

// WithSelfPID overrides the pid used as the terminal condition of the
// ancestry walk. Defaults to this process's own pid.
func WithSelfPID(pid int) OptionFn {
	return func(o *Options) { o.selfPID = pid }
}

// WithKillFn overrides victim signaling; tests use this to observe kills.
func WithKillFn(fn func(pid int) error) OptionFn {
	return func(o *Options) { o.kill = fn }
}

func defaultOptions() Options {
	return Options{
		logger:     slog.Default(),
		clock:      clock.RealClock{},
		procFSPath: "/proc",
		selfPID:    os.Getpid(),
		kill: func(pid int) error {
			return unix.Kill(pid, unix.SIGKILL)
		},
	}
}
