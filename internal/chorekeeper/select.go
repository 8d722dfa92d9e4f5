// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package chorekeeper

import "github.com/la3lma/nodee/internal/registry"

// selectVictim walks the selection policies in strict priority order and
// returns the first one's pick, or nil when nothing is managed.
func selectVictim(procs []*registry.Process) *registry.Process {
	if victim := furthestOverPeak(procs); victim != nil {
		return victim
	}
	if victim := furthestOverTypical(procs); victim != nil {
		return victim
	}
	if victim := thrashingMost(procs); victim != nil {
		return victim
	}
	if victim := leastValuable(procs); victim != nil {
		return victim
	}
	return biggest(procs)
}

// furthestOverPeak picks the service whose RSS exceeds its declared peak
// by the largest margin. Nil when nobody is over peak.
func furthestOverPeak(procs []*registry.Process) *registry.Process {
	var victim *registry.Process
	var worst int64
	for _, p := range procs {
		over := p.CurrentRSS() - p.Spec().ExpectedPeakMemory
		if over > 0 && (victim == nil || over > worst) {
			victim = p
			worst = over
		}
	}
	return victim
}

// furthestOverTypical picks the service whose RSS exceeds its declared
// typical usage by the largest margin. Nil when nobody is over.
func furthestOverTypical(procs []*registry.Process) *registry.Process {
	var victim *registry.Process
	var worst int64
	for _, p := range procs {
		over := p.CurrentRSS() - p.Spec().ExpectedTypicalMemory
		if over > 0 && (victim == nil || over > worst) {
			victim = p
			worst = over
		}
	}
	return victim
}

// thrashingMost picks the service with strictly the most recent major
// page faults, nil when all services fault equally (including all zero):
// killing is only justified when somebody is noticeably worse served than
// somebody else.
func thrashingMost(procs []*registry.Process) *registry.Process {
	var worst, least *registry.Process
	for _, p := range procs {
		if worst == nil || p.RecentPageFaults() > worst.RecentPageFaults() {
			worst = p
		}
		if least == nil || p.RecentPageFaults() < least.RecentPageFaults() {
			least = p
		}
	}
	if worst == nil || worst.RecentPageFaults() <= least.RecentPageFaults() {
		return nil
	}
	return worst
}

// leastValuable picks the service with the lowest declared value, nil
// when every service is equally valuable.
func leastValuable(procs []*registry.Process) *registry.Process {
	var min, max *registry.Process
	for _, p := range procs {
		if min == nil || p.Spec().Value < min.Spec().Value {
			min = p
		}
		if max == nil || p.Spec().Value > max.Spec().Value {
			max = p
		}
	}
	if min == nil || min.Spec().Value >= max.Spec().Value {
		return nil
	}
	return min
}

// biggest picks the service with the largest RSS. Nil only when nothing
// is managed.
func biggest(procs []*registry.Process) *registry.Process {
	var victim *registry.Process
	for _, p := range procs {
		if victim == nil || p.CurrentRSS() > victim.CurrentRSS() {
			victim = p
		}
	}
	return victim
}
