// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package registry

import (
	"errors"
	"fmt"
)

// ServerSpec is the capacity declaration a service is deployed with. The
// memory figures are in pages and are the only input the chore keeper has
// when it decides which service to kill, so operators should declare them
// honestly.
type ServerSpec struct {
	// Name identifies the service on this node
	Name string `json:"name" yaml:"name"`

	// Argv is the command to launch, argv[0] being the executable
	Argv []string `json:"argv" yaml:"argv"`

	// Dir is the working directory, inherited when empty
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// ExpectedTypicalMemory is the RSS the service normally needs, in pages
	ExpectedTypicalMemory int64 `json:"expectedTypicalMemory" yaml:"expectedTypicalMemory"`

	// ExpectedPeakMemory is the RSS the service may legitimately reach, in pages
	ExpectedPeakMemory int64 `json:"expectedPeakMemory" yaml:"expectedPeakMemory"`

	// Value ranks the service against its co-tenants; higher is more valuable
	Value int `json:"value" yaml:"value"`
}

// Validate checks the spec for obvious mistakes.
func (s ServerSpec) Validate() error {
	var errs []error

	if s.Name == "" {
		errs = append(errs, errors.New("service name must not be empty"))
	}
	if len(s.Argv) == 0 {
		errs = append(errs, errors.New("argv must not be empty"))
	}
	if s.ExpectedTypicalMemory < 0 {
		errs = append(errs, fmt.Errorf("expectedTypicalMemory must not be negative: %d", s.ExpectedTypicalMemory))
	}
	if s.ExpectedPeakMemory < 0 {
		errs = append(errs, fmt.Errorf("expectedPeakMemory must not be negative: %d", s.ExpectedPeakMemory))
	}
	if s.ExpectedPeakMemory > 0 && s.ExpectedPeakMemory < s.ExpectedTypicalMemory {
		errs = append(errs, fmt.Errorf("expectedPeakMemory (%d) must not be below expectedTypicalMemory (%d)",
			s.ExpectedPeakMemory, s.ExpectedTypicalMemory))
	}

	return errors.Join(errs...)
}
