// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package registry

import (
	"os/exec"
	"sync/atomic"
	"time"
)

// Process is one managed service as seen by the registry. The chore keeper
// updates currentRSS and pageFaults once per sampling cycle from its own
// goroutine; the HTTP plane and the exporter read them concurrently, hence
// the atomics.
type Process struct {
	spec      ServerSpec
	pid       int
	startedAt time.Time

	cmd *exec.Cmd // nil for adopted processes

	currentRSS atomic.Int64 // pages, aggregated over all descendants
	pageFaults atomic.Int64 // major faults observed last cycle
}

// NewProcess tracks an already-running process under the given spec,
// without owning its lifecycle. Used when re-attaching to services and by
// tests.
func NewProcess(pid int, spec ServerSpec) *Process {
	return &Process{
		spec: spec,
		pid:  pid,
	}
}

func (p *Process) PID() int {
	return p.pid
}

func (p *Process) Spec() ServerSpec {
	return p.spec
}

func (p *Process) StartedAt() time.Time {
	return p.startedAt
}

// SetCurrentRSS records the aggregated RSS, in pages, observed this cycle.
func (p *Process) SetCurrentRSS(pages int64) {
	p.currentRSS.Store(pages)
}

// SetPageFaults records the aggregated major fault count observed this cycle.
func (p *Process) SetPageFaults(count int64) {
	p.pageFaults.Store(count)
}

// CurrentRSS returns the most recently observed aggregated RSS in pages.
func (p *Process) CurrentRSS() int64 {
	return p.currentRSS.Load()
}

// RecentPageFaults returns the major fault count observed last cycle.
func (p *Process) RecentPageFaults() int64 {
	return p.pageFaults.Load()
}
