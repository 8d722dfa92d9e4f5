// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package chorekeeper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/la3lma/nodee/internal/registry"
)

const nodeePID = 50

func view(procs ...RunningProcess) map[int]*RunningProcess {
	m := make(map[int]*RunningProcess, len(procs))
	for _, p := range procs {
		cp := p
		m[cp.PID] = &cp
	}
	return m
}

func TestRollup(t *testing.T) {
	t.Run("descendants roll up into the service root", func(t *testing.T) {
		v := view(
			RunningProcess{PID: 1, PPID: 0, RSS: 10, MajFlt: 1},
			RunningProcess{PID: nodeePID, PPID: 1, RSS: 20, MajFlt: 2},
			RunningProcess{PID: 100, PPID: nodeePID, RSS: 600, MajFlt: 5},
			RunningProcess{PID: 101, PPID: 100, RSS: 300, MajFlt: 7},
			RunningProcess{PID: 102, PPID: 101, RSS: 100, MajFlt: 11},
		)

		rollup(v, nodeePID)

		assert.Equal(t, int64(1000), v[100].RSS, "root carries the whole tree")
		assert.Equal(t, int64(23), v[100].MajFlt)
		// intermediate and leaf keep their own sampled values
		assert.Equal(t, int64(300), v[101].RSS)
		assert.Equal(t, int64(100), v[102].RSS)
	})

	t.Run("two services do not bleed into each other", func(t *testing.T) {
		v := view(
			RunningProcess{PID: 100, PPID: nodeePID, RSS: 600},
			RunningProcess{PID: 101, PPID: 100, RSS: 300},
			RunningProcess{PID: 200, PPID: nodeePID, RSS: 400},
			RunningProcess{PID: 201, PPID: 200, RSS: 50},
		)

		rollup(v, nodeePID)

		assert.Equal(t, int64(900), v[100].RSS)
		assert.Equal(t, int64(450), v[200].RSS)
	})

	t.Run("processes outside any service halt at a root", func(t *testing.T) {
		v := view(
			RunningProcess{PID: 1, PPID: 0, RSS: 10},
			RunningProcess{PID: 300, PPID: 1, RSS: 70},
		)

		rollup(v, nodeePID)

		assert.Equal(t, int64(80), v[1].RSS, "system processes attribute to init")
	})

	t.Run("missing parent halts the walk without inventing entries", func(t *testing.T) {
		v := view(
			RunningProcess{PID: 400, PPID: 9999, RSS: 30},
		)

		rollup(v, nodeePID)

		assert.Len(t, v, 1)
		assert.Equal(t, int64(30), v[400].RSS)
	})

	t.Run("ppid cycle terminates", func(t *testing.T) {
		v := view(
			RunningProcess{PID: 250, PPID: 251, RSS: 5},
			RunningProcess{PID: 251, PPID: 250, RSS: 5},
		)

		rollup(v, nodeePID) // must not hang
	})
}

type stubTable struct {
	procs []*registry.Process
}

func (s stubTable) Processes() []*registry.Process {
	return s.procs
}

func TestWriteback(t *testing.T) {
	spec := registry.ServerSpec{Name: "svc", Argv: []string{"svc"}}

	t.Run("observed pids get their totals", func(t *testing.T) {
		p := registry.NewProcess(100, spec)
		v := view(RunningProcess{PID: 100, PPID: nodeePID, RSS: 1000, MajFlt: 42})

		writeback(v, []*registry.Process{p})

		assert.Equal(t, int64(1000), p.CurrentRSS())
		assert.Equal(t, int64(42), p.RecentPageFaults())
	})

	t.Run("pids gone this cycle get zeros, not stale values", func(t *testing.T) {
		p := registry.NewProcess(100, spec)
		p.SetCurrentRSS(1000)
		p.SetPageFaults(42)

		writeback(view(), []*registry.Process{p})

		assert.Equal(t, int64(0), p.CurrentRSS())
		assert.Equal(t, int64(0), p.RecentPageFaults())
	})
}
