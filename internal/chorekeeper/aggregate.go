// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package chorekeeper

import "github.com/la3lma/nodee/internal/registry"

// rollup attributes every sampled process to its root: the ancestor whose
// parent is nodee itself (pid self) or whose ppid is 0. Each descendant's
// rss and majflt are added into that root's entry, so a service's root
// process ends up carrying the totals for its whole tree. A process whose
// ancestry leads to a pid absent from the view is attributed to nobody.
//
// The walk is iterative and bounded by the view size, so a malformed view
// with a ppid cycle cannot hang the cycle.
func rollup(view map[int]*RunningProcess, self int) {
	for _, sample := range view {
		root := sample.PID
		for steps := len(view); steps > 0; steps-- {
			node, ok := view[root]
			if !ok || node.PPID == 0 || node.PPID == self {
				break
			}
			root = node.PPID
		}

		if root == sample.PID {
			continue // the root accounts for itself
		}
		if r, ok := view[root]; ok {
			r.RSS += sample.RSS
			r.MajFlt += sample.MajFlt
		}
	}
}

// writeback pushes the aggregated totals into the managed set. A managed
// pid that was not observed this cycle gets zeros; stale values from a
// previous cycle never survive.
func writeback(view map[int]*RunningProcess, procs []*registry.Process) {
	for _, p := range procs {
		if e, ok := view[p.PID()]; ok {
			p.SetCurrentRSS(e.RSS)
			p.SetPageFaults(e.MajFlt)
		} else {
			p.SetCurrentRSS(0)
			p.SetPageFaults(0)
		}
	}
}
