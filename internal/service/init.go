// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package service

import (
	"fmt"
	"log/slog"
	"os"
)

// Init runs Init on every service that implements Initializer, in order.
// If one fails, services initialized so far are shut down in reverse and
// the failure is returned.
func Init(logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	var initErr error
	done := make([]Service, 0, len(services))

	for _, s := range services {
		init, ok := s.(Initializer)
		if !ok {
			logger.Debug("skipping initialization", "service", s.Name(),
				"reason", "service does not implement Initializer")
			continue
		}

		logger.Info("Initializing service", "service", s.Name())
		if err := init.Init(); err != nil {
			initErr = fmt.Errorf("failed to initialize service %s: %w", s.Name(), err)
			break
		}
		done = append(done, s)
	}

	if initErr == nil {
		return nil
	}

	logger.Info("Shutting down services initialized so far")
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		sd, ok := s.(Shutdowner)
		if !ok {
			continue
		}
		if err := sd.Shutdown(); err != nil {
			logger.Error("failed to shutdown service", "service", s.Name(), "error", err)
		}
	}
	return initErr
}
