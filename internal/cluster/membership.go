// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

// Package cluster announces this nodee to the rest of the cluster through
// an ephemeral ZooKeeper node. Whoever schedules services onto nodes
// watches <chroot>/nodes to learn which nodees are alive.
package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/samuel/go-zookeeper/zk"

	"github.com/la3lma/nodee/internal/version"
)

const sessionTimeout = 10 * time.Second

// Membership is a Runner that keeps an ephemeral registration alive for
// as long as the agent runs. With no servers configured it stays idle.
type Membership struct {
	logger   *slog.Logger
	servers  []string
	chroot   string
	hostname string
	endpoint string
}

type Opts struct {
	logger   *slog.Logger
	hostname string
	endpoint string
}

type OptionFn func(*Opts)

func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) { o.logger = logger }
}

// WithEndpoint records the HTTP endpoint other cluster members should
// use to reach this node's control plane.
func WithEndpoint(endpoint string) OptionFn {
	return func(o *Opts) { o.endpoint = endpoint }
}

// WithHostname overrides the announced hostname.
func WithHostname(name string) OptionFn {
	return func(o *Opts) { o.hostname = name }
}

func defaultOpts() Opts {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return Opts{
		logger:   slog.Default(),
		hostname: host,
	}
}

// NewMembership creates the membership service for the given ensemble.
func NewMembership(servers []string, chroot string, applyOpts ...OptionFn) *Membership {
	opts := defaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Membership{
		logger:   opts.logger.With("service", "cluster-membership"),
		servers:  servers,
		chroot:   chroot,
		hostname: opts.hostname,
		endpoint: opts.endpoint,
	}
}

func (m *Membership) Name() string {
	return "cluster-membership"
}

// nodePath is where this nodee registers itself.
func (m *Membership) nodePath() string {
	return path.Join(m.chroot, "nodes", m.hostname)
}

// payload is the JSON document stored in the registration node.
func (m *Membership) payload() ([]byte, error) {
	return json.Marshal(struct {
		Hostname string `json:"hostname"`
		Endpoint string `json:"endpoint,omitempty"`
		Version  string `json:"version,omitempty"`
	}{
		Hostname: m.hostname,
		Endpoint: m.endpoint,
		Version:  version.Info().Version,
	})
}

func (m *Membership) Run(ctx context.Context) error {
	if len(m.servers) == 0 {
		m.logger.Info("no ZooKeeper servers configured, cluster membership disabled")
		<-ctx.Done()
		return nil
	}

	conn, events, err := zk.Connect(m.servers, sessionTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to ZooKeeper: %w", err)
	}
	defer conn.Close()

	registered := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			switch ev.State {
			case zk.StateHasSession:
				// a fresh session lost any previous ephemeral node
				if err := m.register(conn); err != nil {
					m.logger.Warn("failed to register with cluster", "error", err)
					registered = false
					continue
				}
				if !registered {
					m.logger.Info("registered with cluster", "path", m.nodePath())
				}
				registered = true

			case zk.StateExpired, zk.StateDisconnected:
				m.logger.Warn("ZooKeeper session interrupted", "state", ev.State.String())
				registered = false
			}
		}
	}
}

// register creates the chroot chain and the ephemeral node for this host.
func (m *Membership) register(conn *zk.Conn) error {
	if err := ensurePath(conn, path.Join(m.chroot, "nodes")); err != nil {
		return err
	}

	data, err := m.payload()
	if err != nil {
		return err
	}

	_, err = conn.Create(m.nodePath(), data, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		// left over from our previous session; replace the payload
		_, err = conn.Set(m.nodePath(), data, -1)
	}
	return err
}

// ensurePath creates every component of p that does not exist yet.
func ensurePath(conn *zk.Conn, p string) error {
	current := ""
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		current = current + "/" + part
		_, err := conn.Create(current, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return fmt.Errorf("failed to create %s: %w", current, err)
		}
	}
	return nil
}
