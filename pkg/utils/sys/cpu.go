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

package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"k8s.io/utils/cpuset"
)

// CPUSysfsRoot is the kernel directory holding per-CPU cpufreq attributes.
const CPUSysfsRoot = "/sys/devices/system/cpu"

// OnlineCPUs returns the CPUs listed in <root>/online.
func OnlineCPUs(root string) (cpuset.CPUSet, error) {
	onlineFile := filepath.Join(root, "online")

	data, err := os.ReadFile(onlineFile)
	if err != nil {
		return cpuset.New(), fmt.Errorf("failed to read %s: %w", onlineFile, err)
	}

	cpus, err := cpuset.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return cpuset.New(), fmt.Errorf("failed to parse %s: %w", onlineFile, err)
	}

	return cpus, nil
}

func cpufreqFile(root string, cpuID int, name string) string {
	return filepath.Join(root, fmt.Sprintf("cpu%d", cpuID), "cpufreq", name)
}

// ReadCPUFreqValue reads a numeric cpufreq attribute, e.g. scaling_max_freq.
func ReadCPUFreqValue(root string, cpuID int, name string) (uint64, error) {
	file := cpufreqFile(root, cpuID, name)

	data, err := os.ReadFile(file)
	if err != nil {
		return 0, fmt.Errorf("failed to read CPU %d %s: %w", cpuID, name, err)
	}

	value, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse CPU %d %s: %w", cpuID, name, err)
	}

	return value, nil
}

func WriteCPUFreqValue(root string, cpuID int, name string, value uint64) error {
	file := cpufreqFile(root, cpuID, name)

	if err := os.WriteFile(file, []byte(strconv.FormatUint(value, 10)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write CPU %d %s: %w", cpuID, name, err)
	}

	return nil
}

func ReadCPUGovernor(root string, cpuID int) (string, error) {
	data, err := os.ReadFile(cpufreqFile(root, cpuID, "scaling_governor"))
	if err != nil {
		return "", fmt.Errorf("failed to read CPU %d governor: %w", cpuID, err)
	}

	return strings.TrimSpace(string(data)), nil
}

// SetCPUGovernor switches the governor of a CPU, it does nothing if the governor is already active.
func SetCPUGovernor(root string, cpuID int, governor string) error {
	current, err := ReadCPUGovernor(root, cpuID)
	if err != nil {
		return err
	}

	if current == governor {
		return nil
	}

	if !checkCPUGovernorAvailable(root, cpuID, governor) {
		return fmt.Errorf("CPU governor %s not available on CPU %d", governor, cpuID)
	}

	err = os.WriteFile(cpufreqFile(root, cpuID, "scaling_governor"), []byte(governor+"\n"), 0o644)
	if err != nil {
		return fmt.Errorf("failed to set CPU governor for CPU %d: %w", cpuID, err)
	}

	return nil
}

// checkCPUGovernorAvailable checks if a CPU governor is available on a specific CPU
func checkCPUGovernorAvailable(root string, cpuID int, governor string) bool {
	data, err := os.ReadFile(cpufreqFile(root, cpuID, "scaling_available_governors"))
	if err != nil {
		return false
	}

	for availableGov := range strings.FieldsSeq(string(data)) {
		if availableGov == governor {
			return true
		}
	}

	return false
}
