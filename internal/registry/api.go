// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIRegistry is where the control plane endpoints get published.
type APIRegistry interface {
	Register(endpoint, summary, description string, handler http.Handler) error
}

// API exposes the registry over HTTP: list, deploy, stop.
type API struct {
	logger   *slog.Logger
	registry *Registry
	grace    time.Duration
}

func NewAPI(r *Registry, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		logger:   logger.With("service", "registry-api"),
		registry: r,
		grace:    5 * time.Second,
	}
}

func (a *API) Name() string {
	return "registry-api"
}

// Attach registers the control plane endpoints.
func (a *API) Attach(s APIRegistry) error {
	if err := s.Register("/api/v1/services", "services", "Managed services: GET lists, POST deploys",
		http.HandlerFunc(a.handleServices)); err != nil {
		return err
	}
	return s.Register("/api/v1/services/", "service", "One managed service: DELETE stops it",
		http.HandlerFunc(a.handleService))
}

// serviceInfo is the JSON rendering of one managed service.
type serviceInfo struct {
	Name                  string    `json:"name"`
	PID                   int       `json:"pid"`
	RSSPages              int64     `json:"rssPages"`
	RecentPageFaults      int64     `json:"recentPageFaults"`
	ExpectedTypicalMemory int64     `json:"expectedTypicalMemory"`
	ExpectedPeakMemory    int64     `json:"expectedPeakMemory"`
	Value                 int       `json:"value"`
	StartedAt             time.Time `json:"startedAt"`
}

func infoFor(p *Process) serviceInfo {
	spec := p.Spec()
	return serviceInfo{
		Name:                  spec.Name,
		PID:                   p.PID(),
		RSSPages:              p.CurrentRSS(),
		RecentPageFaults:      p.RecentPageFaults(),
		ExpectedTypicalMemory: spec.ExpectedTypicalMemory,
		ExpectedPeakMemory:    spec.ExpectedPeakMemory,
		Value:                 spec.Value,
		StartedAt:             p.StartedAt(),
	}
}

func (a *API) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listServices(w)

	case http.MethodPost:
		a.deployService(w, r)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) listServices(w http.ResponseWriter) {
	procs := a.registry.Processes()
	out := make([]serviceInfo, 0, len(procs))
	for _, p := range procs {
		out = append(out, infoFor(p))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		a.logger.Error("failed to encode service list", "error", err)
	}
}

func (a *API) deployService(w http.ResponseWriter, r *http.Request) {
	var spec ServerSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, fmt.Sprintf("bad server spec: %v", err), http.StatusBadRequest)
		return
	}

	p, err := a.registry.Manage(spec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(infoFor(p)); err != nil {
		a.logger.Error("failed to encode deploy response", "error", err)
	}
}

func (a *API) handleService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/services/")
	pid, err := strconv.Atoi(rest)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad pid %q", rest), http.StatusBadRequest)
		return
	}

	if err := a.registry.Stop(pid, a.grace); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
