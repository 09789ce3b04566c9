/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package policy

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoCPUs is returned when the host reports no CPUs.
	ErrNoCPUs = errors.New("could not determine number of CPUs")
	// ErrArmed is returned by Capture when a snapshot is already held.
	ErrArmed = errors.New("policies already captured")

	// ErrLimits is returned when the hardware limits of a CPU are unknown.
	ErrLimits = errors.New("could not determine hardware frequency limits")
	// ErrBelowMinimum is returned when the target is below the hardware minimum.
	ErrBelowMinimum = errors.New("below hardware minimum")
	// ErrAboveMaximum is returned when the target is above the hardware maximum.
	ErrAboveMaximum = errors.New("above hardware maximum")
	// ErrSetMaxFrequency is returned when the governor rejected the new maximum.
	ErrSetMaxFrequency = errors.New("failed to set maximum frequency")

	// ErrRestore is returned when a captured policy could not be written back.
	ErrRestore = errors.New("failed to reset policy")
)

// CPUError is the failure of a single CPU.
type CPUError struct {
	CPU int
	Err error
}

func (e *CPUError) Error() string {
	return fmt.Sprintf("CPU %d: %s", e.CPU, e.Err)
}

func (e *CPUError) Unwrap() error {
	return e.Err
}

func cpuError(cpu int, err error) error {
	return &CPUError{CPU: cpu, Err: err}
}
