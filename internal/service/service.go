// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package service

import "context"

// Service is the minimal contract every nodee service satisfies.
type Service interface {
	// Name returns the name of the service
	Name() string
}

// Initializer is implemented by services that need one-time setup
// before the run group starts.
type Initializer interface {
	Service
	Init() error
}

// Runner is implemented by services that run in the background. Run is
// expected to block until ctx is done or the service fails.
type Runner interface {
	Service
	Run(ctx context.Context) error
}

// Shutdowner is implemented by services that need cleanup on exit.
type Shutdowner interface {
	Service
	Shutdown() error
}
