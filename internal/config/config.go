// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the default listen address of the HTTP API.
const DefaultPort = ":9731"

// Config is the complete nodee configuration. The chore keeper itself has
// no tunables; everything here is ambient (logging, listen addresses,
// mount points, cluster membership).
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	Web struct {
		// ListenAddresses are the addresses the HTTP API listens on
		ListenAddresses []string `yaml:"listenAddresses"`
		// ConfigFile is an optional exporter-toolkit TLS/auth config
		ConfigFile string `yaml:"configFile"`
	}

	Host struct {
		// ProcFS is the proc filesystem mount point
		ProcFS string `yaml:"procfs"`
	}

	Cluster struct {
		// Servers is the ZooKeeper ensemble; membership is disabled when empty
		Servers []string `yaml:"servers"`
		// Chroot is the base path nodee registers itself under
		Chroot string `yaml:"chroot"`
	}

	Config struct {
		Log     Log     `yaml:"log"`
		Web     Web     `yaml:"web"`
		Host    Host    `yaml:"host"`
		Cluster Cluster `yaml:"cluster"`
	}
)

const (
	LogLevelFlag    = "log.level"
	LogFormatFlag   = "log.format"
	WebListenFlag   = "web.listen-address"
	WebConfigFlag   = "web.config.file"
	HostProcFSFlag  = "host.procfs"
	ZkServersFlag   = "cluster.zookeeper"
	ZkChrootFlag    = "cluster.chroot"
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Web: Web{
			ListenAddresses: []string{DefaultPort},
		},
		Host: Host{
			ProcFS: "/proc",
		},
		Cluster: Cluster{
			Chroot: "/nodee",
		},
	}
}

// Load reads configuration from r on top of the defaults.
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromFile loads configuration from a file.
func FromFile(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Load(file)
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(strings.ToLower(c.Log.Level))
	c.Log.Format = strings.TrimSpace(strings.ToLower(c.Log.Format))
	c.Host.ProcFS = strings.TrimSpace(c.Host.ProcFS)
	c.Cluster.Chroot = strings.TrimSpace(c.Cluster.Chroot)
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []error

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %q", c.Log.Level))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %q", c.Log.Format))
	}

	if c.Host.ProcFS == "" {
		errs = append(errs, errors.New("host.procfs must not be empty"))
	}

	if len(c.Cluster.Servers) > 0 && !strings.HasPrefix(c.Cluster.Chroot, "/") {
		errs = append(errs, fmt.Errorf("cluster.chroot must be an absolute path: %q", c.Cluster.Chroot))
	}

	return errors.Join(errs...)
}

// String renders the effective configuration as YAML.
func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}
	return string(out)
}

// ConfigUpdaterFn applies parsed command line flags to a Config.
type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with the kingpin app and
// returns an updater that overlays explicitly-set flags onto a Config,
// so that flags override config file settings.
func RegisterFlags(app *kingpin.Application) ConfigUpdaterFn {
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		flagsSet = map[string]bool{}
		for _, element := range ctx.Elements {
			if flag, ok := element.Clause.(*kingpin.FlagClause); ok && element.Value != nil {
				flagsSet[flag.Model().Name] = true
			}
		}
		return nil
	})

	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag(LogFormatFlag, "Logging format: text or json").Default("text").Enum("text", "json")
	webListen := app.Flag(WebListenFlag, "Address on which to expose the HTTP API. Repeatable.").Default(DefaultPort).Strings()
	webConfig := app.Flag(WebConfigFlag, "Path to exporter-toolkit web config file (TLS, auth)").Default("").String()
	procFS := app.Flag(HostProcFSFlag, "Path to the proc filesystem").Default("/proc").String()
	zkServers := app.Flag(ZkServersFlag, "ZooKeeper server to register with. Repeatable.").Strings()
	zkChroot := app.Flag(ZkChrootFlag, "ZooKeeper base path for cluster membership").Default("/nodee").String()

	return func(cfg *Config) error {
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}
		if flagsSet[LogFormatFlag] {
			cfg.Log.Format = *logFormat
		}
		if flagsSet[WebListenFlag] {
			cfg.Web.ListenAddresses = *webListen
		}
		if flagsSet[WebConfigFlag] {
			cfg.Web.ConfigFile = *webConfig
		}
		if flagsSet[HostProcFSFlag] {
			cfg.Host.ProcFS = *procFS
		}
		if flagsSet[ZkServersFlag] {
			cfg.Cluster.Servers = *zkServers
		}
		if flagsSet[ZkChrootFlag] {
			cfg.Cluster.Chroot = *zkChroot
		}

		cfg.sanitize()
		return cfg.Validate()
	}
}
