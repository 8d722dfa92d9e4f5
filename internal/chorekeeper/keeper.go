// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

// Package chorekeeper watches the node for memory overload and, when it
// finds sustained thrashing, kills the most suitable managed service.
//
// The kernel's own out-of-memory killer acts too slowly for a co-tenant
// node and has no idea what the services are worth, so nodee does the job
// itself: it samples /proc once a second, aggregates each service's
// resource usage over all of its descendant processes, and only acts
// after eight consecutive seconds of thrashing.
package chorekeeper

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/la3lma/nodee/internal/registry"
)

// ProcessTable hands out the live set of managed services. Snapshots must
// be safe to iterate without coordination; the registry guarantees that.
type ProcessTable interface {
	Processes() []*registry.Process
}

const (
	// cycleInterval is the sampling cadence
	cycleInterval = time.Second
	// faultBackoff is added to the sleep after a swallowed cycle fault,
	// 1+9 = 10 seconds between attempts
	faultBackoff = 9 * time.Second
)

// Snapshot is the chore keeper's observable state after a cycle. The
// exporter and the HTTP plane read it without touching the loop.
type Snapshot struct {
	Timestamp time.Time
	VMStat    VMStat
	Momentary bool
	Sustained bool
	Kills     uint64
	// LastVictimPID is the pid most recently killed, 0 if none yet
	LastVictimPID int
}

// ChoreKeeper is the long-running supervisor task. It runs every chore on
// a single goroutine; only that goroutine mutates managed processes.
type ChoreKeeper struct {
	logger   *slog.Logger
	clock    Clock
	table    ProcessTable
	procPath string
	selfPID  int
	kill     func(pid int) error

	inert      bool
	window     thrashWindow
	kills      uint64
	lastVictim int

	snapshot atomic.Pointer[Snapshot]
}

// NewChoreKeeper creates a chore keeper supervising the given table.
func NewChoreKeeper(table ProcessTable, applyOpts ...OptionFn) *ChoreKeeper {
	opts := defaultOptions()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &ChoreKeeper{
		logger:   opts.logger.With("service", "chore-keeper"),
		clock:    opts.clock,
		table:    table,
		procPath: opts.procFSPath,
		selfPID:  opts.selfPID,
		kill:     opts.kill,
	}
}

func (ck *ChoreKeeper) Name() string {
	return "chore-keeper"
}

// Init probes whether this host exposes the proc files the chore keeper
// needs. When it does not, the keeper stays registered but inert: it
// never samples and never kills. That is deliberate; a node without a
// proc filesystem should run its services, just unsupervised.
func (ck *ChoreKeeper) Init() error {
	_, statErr := os.Stat(filepath.Join(ck.procPath, "1", "stat"))
	_, vmErr := os.Stat(filepath.Join(ck.procPath, "vmstat"))
	if statErr != nil || vmErr != nil {
		ck.inert = true
		ck.logger.Info("proc filesystem not usable, nodee will not watch for RAM overload",
			"procfs", ck.procPath)
	}

	ck.snapshot.Store(&Snapshot{Timestamp: ck.clock.Now()})
	return nil
}

// Run drives the chore loop until ctx is done. It returns an error only
// when the proc directory itself becomes unreadable, which means the
// environment is broken and the whole agent should go down.
func (ck *ChoreKeeper) Run(ctx context.Context) error {
	if ck.inert {
		<-ctx.Done()
		return nil
	}

	ck.logger.Info("watching for RAM overload", "procfs", ck.procPath)

	delay := cycleInterval
	for {
		select {
		case <-ctx.Done():
			ck.logger.Info("chore keeper stopped")
			return nil
		case <-ck.clock.After(delay):
		}

		next, err := ck.cycle()
		if err != nil {
			ck.logger.Error("environment broken, giving up", "error", err)
			return err
		}
		delay = next
	}
}

// Snapshot returns the state observed after the most recent cycle.
func (ck *ChoreKeeper) Snapshot() *Snapshot {
	s := ck.snapshot.Load()
	if s == nil {
		return &Snapshot{}
	}
	clone := *s
	return &clone
}

// cycle advances the whole pipeline once: sample, aggregate, detect,
// select, execute. Any fault escaping the pipeline is swallowed and the
// next sleep stretched, so one bad cycle can never take the keeper down
// or turn into a kill storm. The lone exception is scanProcesses failing
// to enumerate the proc directory, which is returned as fatal.
func (ck *ChoreKeeper) cycle() (next time.Duration, fatal error) {
	next = cycleInterval
	defer func() {
		if r := recover(); r != nil {
			ck.logger.Warn("chore cycle failed, backing off", "cause", r)
			next = cycleInterval + faultBackoff
		}
	}()

	vm, err := readVMStat(filepath.Join(ck.procPath, "vmstat"))
	if err != nil {
		// no signal; the zero sample reads as "not thrashing"
		ck.logger.Debug("vmstat sample discarded", "error", err)
		vm = VMStat{}
	}

	view, err := scanProcesses(ck.procPath)
	if err != nil {
		return next, err
	}

	rollup(view, ck.selfPID)
	procs := ck.table.Processes()
	writeback(view, procs)

	ck.window.shift(momentaryThrashing(vm))

	if ck.window.sustained() {
		if victim := selectVictim(procs); victim != nil {
			ck.execute(victim)
		}
	}

	ck.publish(vm)
	return next, nil
}

// execute kills the victim outright and suppresses the freshest verdict.
// SIGKILL rather than anything gentler: the node is already degraded, and
// a service that could veto its own death would defeat the point.
func (ck *ChoreKeeper) execute(victim *registry.Process) {
	if err := ck.kill(victim.PID()); err != nil {
		ck.logger.Warn("failed to kill service", "service", victim.Spec().Name,
			"pid", victim.PID(), "error", err)
	} else {
		ck.logger.Info("killed service to relieve memory pressure",
			"service", victim.Spec().Name,
			"pid", victim.PID(),
			"rssPages", victim.CurrentRSS(),
			"recentPageFaults", victim.RecentPageFaults())
	}

	ck.kills++
	ck.lastVictim = victim.PID()
	ck.window.suppress()
}

func (ck *ChoreKeeper) publish(vm VMStat) {
	ck.snapshot.Store(&Snapshot{
		Timestamp:     ck.clock.Now(),
		VMStat:        vm,
		Momentary:     ck.window[0],
		Sustained:     ck.window.sustained(),
		Kills:         ck.kills,
		LastVictimPID: ck.lastVictim,
	})
}
