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

// Package policy captures the frequency scaling policy of every CPU,
// clamps the maximum frequency and puts the captured policy back.
package policy

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/sergelogvinov/cpu-throttle/pkg/frequency"
	"github.com/sergelogvinov/cpu-throttle/pkg/governor"
)

// Controller owns the snapshot of the original CPU policies.
//
// It is UNARMED until Capture succeeds and ARMED until Restore runs.
// The controller is not safe for concurrent use.
type Controller struct {
	governor governor.Governor
	logger   logr.Logger

	cpus []int

	// snapshot[i] is the captured policy of cpus[i], nil when not captured or already restored.
	snapshot    []*governor.Policy
	fingerprint string
}

// NewController enumerates the CPUs once, the list does not change afterwards.
func NewController(g governor.Governor, logger logr.Logger) (*Controller, error) {
	cpus, err := g.CPUs()
	if err != nil {
		return nil, fmt.Errorf("could not determine CPUs: %w", err)
	}

	if cpus.IsEmpty() {
		return nil, ErrNoCPUs
	}

	return &Controller{
		governor: g,
		logger:   logger,
		cpus:     cpus.List(),
		snapshot: make([]*governor.Policy, cpus.Size()),
	}, nil
}

// CPUs returns the managed CPUs in increasing order.
func (c *Controller) CPUs() []int {
	return append([]int(nil), c.cpus...)
}

// Armed reports whether a captured policy is waiting to be restored.
func (c *Controller) Armed() bool {
	return lo.SomeBy(c.snapshot, func(p *governor.Policy) bool { return p != nil })
}

// Capture reads the current policy of every CPU. Any failure aborts the capture
// and leaves the controller unarmed, nothing is rolled back.
func (c *Controller) Capture() error {
	if c.Armed() {
		return ErrArmed
	}

	captured := make([]*governor.Policy, len(c.cpus))

	for i, cpu := range c.cpus {
		p, err := c.governor.Policy(cpu)
		if err != nil {
			return cpuError(cpu, fmt.Errorf("could not retrieve current policy: %w", err))
		}

		c.logger.V(1).Info("Captured CPU policy", "cpu", cpu, "governor", p.Governor, "min", frequency.Format(p.Min), "max", frequency.Format(p.Max))

		captured[i] = p
	}

	c.snapshot = captured
	c.fingerprint = fingerprint(c.cpus, captured)

	c.logger.V(1).Info("Captured CPU frequency scaling policies", "cpus", len(c.cpus), "fingerprint", c.fingerprint)

	return nil
}

// Apply sets the maximum frequency of every CPU to target. Every CPU is attempted,
// a CPU whose hardware limits exclude target is left untouched.
// The returned error aggregates one *CPUError per CPU that did not accept target.
func (c *Controller) Apply(target frequency.KHz) error {
	c.logger.Info("Setting maximum frequency", "target", target.String())

	var errs error

	for _, cpu := range c.cpus {
		if err := c.applyCPU(cpu, target); err != nil {
			c.logger.Error(err, "Failed to set maximum frequency", "cpu", cpu)

			errs = multierr.Append(errs, err)
		}

		// The effective value may differ from the request, show what the driver did.
		c.logPolicy(cpu)
	}

	return errs
}

func (c *Controller) applyCPU(cpu int, target frequency.KHz) error {
	limits, err := c.governor.HardwareLimits(cpu)
	if err != nil {
		return cpuError(cpu, fmt.Errorf("%w: %w", ErrLimits, err))
	}

	switch {
	case target < limits.Min:
		return cpuError(cpu, fmt.Errorf("target frequency (%s) is %w (%s)", target, ErrBelowMinimum, limits.Min))
	case target > limits.Max:
		return cpuError(cpu, fmt.Errorf("target frequency (%s) is %w (%s)", target, ErrAboveMaximum, limits.Max))
	}

	if err := c.governor.SetMaxFrequency(cpu, target); err != nil {
		return cpuError(cpu, fmt.Errorf("%w: %w", ErrSetMaxFrequency, err))
	}

	return nil
}

// Restore puts back the captured policy of every CPU. Each slot is cleared before
// its policy is written, so a CPU is restored at most once however often Restore runs.
// Failures are logged and aggregated, they never stop the remaining CPUs.
func (c *Controller) Restore() error {
	c.logger.Info("Resetting CPU frequency scaling policies")

	var (
		errs     error
		restored int
	)

	for i, cpu := range c.cpus {
		p := c.snapshot[i]
		c.snapshot[i] = nil

		if p == nil {
			c.logger.Info("Missing policy", "cpu", cpu)

			continue
		}

		c.logger.Info("CPU policy", "cpu", cpu, "governor", p.Governor, "min", frequency.Format(p.Min), "max", frequency.Format(p.Max))

		if err := c.governor.SetPolicy(cpu, p); err != nil {
			c.logger.Error(err, "Failed to reset policy", "cpu", cpu)

			errs = multierr.Append(errs, cpuError(cpu, fmt.Errorf("%w: %w", ErrRestore, err)))

			continue
		}

		restored++
	}

	if restored > 0 {
		c.verify()
	}

	return errs
}

// verify compares the policies after restore with the captured ones.
func (c *Controller) verify() {
	current := make([]*governor.Policy, len(c.cpus))

	for i, cpu := range c.cpus {
		p, err := c.governor.Policy(cpu)
		if err != nil {
			c.logger.V(1).Info("Could not read back policy", "cpu", cpu, "error", err.Error())

			return
		}

		current[i] = p
	}

	got := fingerprint(c.cpus, current)
	if got != c.fingerprint {
		c.logger.Info("Restored policies differ from the captured ones", "captured", c.fingerprint, "current", got)

		return
	}

	c.logger.V(1).Info("Restored CPU frequency scaling policies", "fingerprint", got)
}

func (c *Controller) logPolicy(cpu int) {
	p, err := c.governor.Policy(cpu)
	if err != nil {
		c.logger.Error(err, "Failed to read policy", "cpu", cpu)

		return
	}

	c.logger.Info("CPU policy", "cpu", cpu, "governor", p.Governor, "min", frequency.Format(p.Min), "max", frequency.Format(p.Max))
}
