// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"golang.org/x/sys/unix"

	"github.com/la3lma/nodee/internal/chorekeeper"
	"github.com/la3lma/nodee/internal/cluster"
	"github.com/la3lma/nodee/internal/config"
	"github.com/la3lma/nodee/internal/exporter/prometheus"
	"github.com/la3lma/nodee/internal/logger"
	"github.com/la3lma/nodee/internal/registry"
	"github.com/la3lma/nodee/internal/server"
	"github.com/la3lma/nodee/internal/service"
	"github.com/la3lma/nodee/internal/version"
)

// exSoftware is the sysexits.h status for "internal software error",
// used when the proc filesystem breaks underneath us.
const exSoftware = 70

func main() {
	cfg, err := parseArgsAndConfig()
	if err != nil {
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	logVersionInfo(log)
	log.Debug("effective configuration", "config", cfg.String())

	reg := registry.NewRegistry(
		registry.WithLogger(log),
		registry.WithProcFSPath(cfg.Host.ProcFS),
	)

	keeper := chorekeeper.NewChoreKeeper(reg,
		chorekeeper.WithLogger(log),
		chorekeeper.WithProcFSPath(cfg.Host.ProcFS),
	)

	apiServer := server.NewAPIServer(
		server.WithLogger(log),
		server.WithListen(cfg.Web.ListenAddresses, cfg.Web.ConfigFile),
	)

	exporter := prometheus.NewExporter(keeper, reg, apiServer,
		prometheus.WithLogger(log),
	)

	endpoint := ""
	if len(cfg.Web.ListenAddresses) > 0 {
		endpoint = cfg.Web.ListenAddresses[0]
	}
	membership := cluster.NewMembership(cfg.Cluster.Servers, cfg.Cluster.Chroot,
		cluster.WithLogger(log),
		cluster.WithEndpoint(endpoint),
	)

	services := []service.Service{
		apiServer,
		exporter,
		reg,
		keeper,
		membership,
		service.NewSignalHandler(log, os.Interrupt, unix.SIGTERM),
	}

	if err := service.Init(log, services); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	if err := registry.NewAPI(reg, log).Attach(apiServer); err != nil {
		log.Error("failed to attach control plane", "error", err)
		os.Exit(1)
	}

	log.Info("Starting nodee")
	if err := service.Run(context.Background(), log, services); err != nil {
		log.Error("nodee terminated with an error", "error", err)
		if errors.Is(err, chorekeeper.ErrProcUnreadable) {
			os.Exit(exSoftware)
		}
		os.Exit(1)
	}
	log.Info("Graceful shutdown completed")
}

func logVersionInfo(log *slog.Logger) {
	v := version.Info()
	log.Info("nodee version information",
		"version", v.Version,
		"buildTime", v.BuildTime,
		"gitBranch", v.GitBranch,
		"gitCommit", v.GitCommit,
		"goVersion", v.GoVersion,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
	)
}

func parseArgsAndConfig() (*config.Config, error) {
	app := kingpin.New("nodee", "Per-node service runner for cloudname-style clusters.")

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log := logger.New("info", "text", os.Stderr)
	cfg := config.DefaultConfig()
	if *configFile != "" {
		loaded, err := config.FromFile(*configFile)
		if err != nil {
			log.Error("error loading config file", "path", *configFile, "error", err)
			return nil, err
		}
		cfg = loaded
	}

	// command line flags override config file settings
	if err := updateConfig(cfg); err != nil {
		log.Error("error applying command line flags", "error", err)
		return nil, err
	}

	return cfg, nil
}
