// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/la3lma/nodee/internal/chorekeeper"
	"github.com/la3lma/nodee/internal/registry"
)

// ChoreStats is the chore keeper's observable state.
type ChoreStats interface {
	Snapshot() *chorekeeper.Snapshot
}

// ProcessTable hands out the managed services to label metrics with.
type ProcessTable interface {
	Processes() []*registry.Process
}

// ChoreCollector exposes the chore keeper's view of the node: the vmstat
// levels it sampled, its thrashing verdicts, the kills it has performed,
// and per-service resource usage.
type ChoreCollector struct {
	stats ChoreStats
	table ProcessTable

	freePages     *prom.Desc
	majorFaults   *prom.Desc
	pagedOut      *prom.Desc
	thrashing     *prom.Desc
	sustained     *prom.Desc
	kills         *prom.Desc
	managed       *prom.Desc
	serviceRSS    *prom.Desc
	serviceFaults *prom.Desc
}

var _ prom.Collector = (*ChoreCollector)(nil)

func NewChoreCollector(stats ChoreStats, table ProcessTable) *ChoreCollector {
	return &ChoreCollector{
		stats: stats,
		table: table,

		freePages: prom.NewDesc(
			"nodee_vmstat_free_pages",
			"Free RAM pages at the last sample",
			nil, nil),
		majorFaults: prom.NewDesc(
			"nodee_vmstat_major_page_faults",
			"Kernel pgmajfault counter at the last sample",
			nil, nil),
		pagedOut: prom.NewDesc(
			"nodee_vmstat_pages_paged_out",
			"Kernel pgpgout counter at the last sample",
			nil, nil),
		thrashing: prom.NewDesc(
			"nodee_thrashing",
			"Momentary thrashing verdict of the last cycle (0 or 1)",
			nil, nil),
		sustained: prom.NewDesc(
			"nodee_thrashing_sustained",
			"Whether the last eight momentary verdicts were all true (0 or 1)",
			nil, nil),
		kills: prom.NewDesc(
			"nodee_kills_total",
			"Services killed to relieve memory pressure",
			nil, nil),
		managed: prom.NewDesc(
			"nodee_managed_services",
			"Services currently managed on this node",
			nil, nil),
		serviceRSS: prom.NewDesc(
			"nodee_service_rss_pages",
			"Aggregated RSS of a managed service and its descendants, in pages",
			[]string{"service"}, nil),
		serviceFaults: prom.NewDesc(
			"nodee_service_major_page_faults",
			"Aggregated major page faults of a managed service, last cycle",
			[]string{"service"}, nil),
	}
}

func (c *ChoreCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.freePages
	ch <- c.majorFaults
	ch <- c.pagedOut
	ch <- c.thrashing
	ch <- c.sustained
	ch <- c.kills
	ch <- c.managed
	ch <- c.serviceRSS
	ch <- c.serviceFaults
}

func (c *ChoreCollector) Collect(ch chan<- prom.Metric) {
	s := c.stats.Snapshot()

	ch <- prom.MustNewConstMetric(c.freePages, prom.GaugeValue, float64(s.VMStat.NrFreePages))
	ch <- prom.MustNewConstMetric(c.majorFaults, prom.GaugeValue, float64(s.VMStat.PgMajFault))
	ch <- prom.MustNewConstMetric(c.pagedOut, prom.GaugeValue, float64(s.VMStat.PgPgOut))
	ch <- prom.MustNewConstMetric(c.thrashing, prom.GaugeValue, boolToFloat(s.Momentary))
	ch <- prom.MustNewConstMetric(c.sustained, prom.GaugeValue, boolToFloat(s.Sustained))
	ch <- prom.MustNewConstMetric(c.kills, prom.CounterValue, float64(s.Kills))

	procs := c.table.Processes()
	ch <- prom.MustNewConstMetric(c.managed, prom.GaugeValue, float64(len(procs)))
	for _, p := range procs {
		name := p.Spec().Name
		ch <- prom.MustNewConstMetric(c.serviceRSS, prom.GaugeValue, float64(p.CurrentRSS()), name)
		ch <- prom.MustNewConstMetric(c.serviceFaults, prom.GaugeValue, float64(p.RecentPageFaults()), name)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
