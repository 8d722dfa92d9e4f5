// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package prometheus

import (
	"fmt"
	"log/slog"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/la3lma/nodee/internal/service"
)

type Initializer = service.Initializer

// APIRegistry is where the /metrics endpoint gets published.
type APIRegistry interface {
	Register(endpoint, summary, description string, handler http.Handler) error
}

type Opts struct {
	logger          *slog.Logger
	debugCollectors map[string]bool
}

func DefaultOpts() Opts {
	return Opts{
		logger: slog.Default(),
		debugCollectors: map[string]bool{
			"go": true,
		},
	}
}

type OptionFn func(*Opts)

func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithDebugCollectors selects the runtime collectors to expose
// ("go", "process").
func WithDebugCollectors(names []string) OptionFn {
	return func(o *Opts) {
		o.debugCollectors = make(map[string]bool)
		for _, name := range names {
			o.debugCollectors[name] = true
		}
	}
}

// Exporter publishes chore keeper and service metrics for Prometheus.
type Exporter struct {
	logger          *slog.Logger
	stats           ChoreStats
	table           ProcessTable
	server          APIRegistry
	registry        *prom.Registry
	debugCollectors map[string]bool
}

var _ Initializer = (*Exporter)(nil)

// NewExporter creates the exporter; metrics appear once Init has run.
func NewExporter(stats ChoreStats, table ProcessTable, s APIRegistry, applyOpts ...OptionFn) *Exporter {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Exporter{
		logger:          opts.logger.With("service", "prometheus"),
		stats:           stats,
		table:           table,
		server:          s,
		registry:        prom.NewRegistry(),
		debugCollectors: opts.debugCollectors,
	}
}

func collectorForName(name string) (prom.Collector, error) {
	switch name {
	case "go":
		return collectors.NewGoCollector(), nil
	case "process":
		return collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), nil
	default:
		return nil, fmt.Errorf("unknown debug collector: %s", name)
	}
}

func (e *Exporter) Name() string {
	return "prometheus-exporter"
}

func (e *Exporter) Init() error {
	for name, enabled := range e.debugCollectors {
		if !enabled {
			continue
		}
		c, err := collectorForName(name)
		if err != nil {
			return err
		}
		if err := e.registry.Register(c); err != nil {
			return fmt.Errorf("failed to register debug collector %s: %w", name, err)
		}
	}

	if err := e.registry.Register(NewChoreCollector(e.stats, e.table)); err != nil {
		return fmt.Errorf("failed to register chore collector: %w", err)
	}

	handler := promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	return e.server.Register("/metrics", "Metrics", "Prometheus metrics", handler)
}
