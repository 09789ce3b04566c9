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

// Package governor reads and changes the frequency scaling policy of CPUs.
package governor

import (
	"fmt"

	"github.com/sergelogvinov/cpu-throttle/pkg/frequency"

	"k8s.io/utils/cpuset"
)

// Policy is the frequency scaling policy of one CPU.
type Policy struct {
	Governor string
	Min      frequency.KHz
	Max      frequency.KHz
}

func (p *Policy) String() string {
	return fmt.Sprintf("governor=%s min=%s max=%s", p.Governor, frequency.Format(p.Min), frequency.Format(p.Max))
}

// Limits are the frequencies a CPU supports in hardware.
type Limits struct {
	Min frequency.KHz
	Max frequency.KHz
}

// Contains reports whether f is within the hardware limits.
func (l *Limits) Contains(f frequency.KHz) bool {
	return f >= l.Min && f <= l.Max
}

// Governor is the host frequency scaling subsystem.
type Governor interface {
	// CPUs returns the CPUs whose policy can be managed.
	CPUs() (cpuset.CPUSet, error)
	// Policy returns the current policy of a CPU.
	Policy(cpu int) (*Policy, error)
	// HardwareLimits returns the supported frequency range of a CPU.
	HardwareLimits(cpu int) (*Limits, error)
	// SetPolicy replaces the whole policy of a CPU.
	SetPolicy(cpu int, p *Policy) error
	// SetMaxFrequency changes only the maximum frequency of a CPU.
	SetMaxFrequency(cpu int, f frequency.KHz) error
}
