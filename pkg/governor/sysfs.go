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

package governor

import (
	"fmt"

	"github.com/sergelogvinov/cpu-throttle/pkg/frequency"
	utilsys "github.com/sergelogvinov/cpu-throttle/pkg/utils/sys"

	"k8s.io/utils/cpuset"
)

const (
	scalingMinFile = "scaling_min_freq"
	scalingMaxFile = "scaling_max_freq"
	cpuMinFreqFile = "cpuinfo_min_freq"
	cpuMaxFreqFile = "cpuinfo_max_freq"
)

// Sysfs manages CPU policies through the kernel cpufreq sysfs interface.
type Sysfs struct {
	root string
}

var _ Governor = &Sysfs{}

// NewSysfs returns a governor for /sys/devices/system/cpu.
func NewSysfs() *Sysfs {
	return NewSysfsWithRoot(utilsys.CPUSysfsRoot)
}

// NewSysfsWithRoot returns a governor for a cpufreq tree mounted at root.
func NewSysfsWithRoot(root string) *Sysfs {
	return &Sysfs{root: root}
}

// CPUs returns the online CPUs.
func (s *Sysfs) CPUs() (cpuset.CPUSet, error) {
	return utilsys.OnlineCPUs(s.root)
}

// Policy reads the scaling governor and the scaling min/max of cpu.
func (s *Sysfs) Policy(cpu int) (*Policy, error) {
	governor, err := utilsys.ReadCPUGovernor(s.root, cpu)
	if err != nil {
		return nil, err
	}

	minFreq, err := s.read(cpu, scalingMinFile)
	if err != nil {
		return nil, err
	}

	maxFreq, err := s.read(cpu, scalingMaxFile)
	if err != nil {
		return nil, err
	}

	return &Policy{Governor: governor, Min: minFreq, Max: maxFreq}, nil
}

// HardwareLimits reads the cpuinfo min/max of cpu.
func (s *Sysfs) HardwareLimits(cpu int) (*Limits, error) {
	minFreq, err := s.read(cpu, cpuMinFreqFile)
	if err != nil {
		return nil, err
	}

	maxFreq, err := s.read(cpu, cpuMaxFreqFile)
	if err != nil {
		return nil, err
	}

	return &Limits{Min: minFreq, Max: maxFreq}, nil
}

// SetPolicy writes min and max in the order that keeps min <= max at every step,
// the kernel rejects a write that would invert the range.
func (s *Sysfs) SetPolicy(cpu int, p *Policy) error {
	if p == nil {
		return fmt.Errorf("CPU %d: nil policy", cpu)
	}

	if p.Min > p.Max {
		return fmt.Errorf("CPU %d: invalid policy %s", cpu, p)
	}

	currentMax, err := s.read(cpu, scalingMaxFile)
	if err != nil {
		return err
	}

	if p.Min > currentMax {
		err = s.writeMaxMin(cpu, p)
	} else {
		err = s.writeMinMax(cpu, p)
	}

	if err != nil {
		return err
	}

	return utilsys.SetCPUGovernor(s.root, cpu, p.Governor)
}

// SetMaxFrequency writes scaling_max_freq of cpu.
func (s *Sysfs) SetMaxFrequency(cpu int, f frequency.KHz) error {
	return utilsys.WriteCPUFreqValue(s.root, cpu, scalingMaxFile, uint64(f))
}

func (s *Sysfs) writeMinMax(cpu int, p *Policy) error {
	if err := utilsys.WriteCPUFreqValue(s.root, cpu, scalingMinFile, uint64(p.Min)); err != nil {
		return err
	}

	return utilsys.WriteCPUFreqValue(s.root, cpu, scalingMaxFile, uint64(p.Max))
}

func (s *Sysfs) writeMaxMin(cpu int, p *Policy) error {
	if err := utilsys.WriteCPUFreqValue(s.root, cpu, scalingMaxFile, uint64(p.Max)); err != nil {
		return err
	}

	return utilsys.WriteCPUFreqValue(s.root, cpu, scalingMinFile, uint64(p.Min))
}

func (s *Sysfs) read(cpu int, name string) (frequency.KHz, error) {
	value, err := utilsys.ReadCPUFreqValue(s.root, cpu, name)
	if err != nil {
		return 0, err
	}

	return frequency.KHz(value), nil
}
