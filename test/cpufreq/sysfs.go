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

// Package cpufreq builds fake cpufreq sysfs trees for tests.
package cpufreq

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"k8s.io/utils/cpuset"
)

// CPU describes the cpufreq attributes of one fake CPU.
type CPU struct {
	Governor   string
	Available  []string
	ScalingMin uint64
	ScalingMax uint64
	HWMin      uint64
	HWMax      uint64
}

var (
	// Laptop4 is a four CPU machine scaling between 400 MHz and 4.2 GHz.
	Laptop4 = map[int]CPU{
		0: {Governor: "powersave", Available: []string{"performance", "powersave"}, ScalingMin: 400000, ScalingMax: 4200000, HWMin: 400000, HWMax: 4200000},
		1: {Governor: "powersave", Available: []string{"performance", "powersave"}, ScalingMin: 400000, ScalingMax: 4200000, HWMin: 400000, HWMax: 4200000},
		2: {Governor: "powersave", Available: []string{"performance", "powersave"}, ScalingMin: 400000, ScalingMax: 4200000, HWMin: 400000, HWMax: 4200000},
		3: {Governor: "powersave", Available: []string{"performance", "powersave"}, ScalingMin: 400000, ScalingMax: 4200000, HWMin: 400000, HWMax: 4200000},
	}

	// Hybrid2 has a performance core and an efficiency core with different limits.
	Hybrid2 = map[int]CPU{
		0: {Governor: "schedutil", Available: []string{"performance", "schedutil"}, ScalingMin: 800000, ScalingMax: 5000000, HWMin: 800000, HWMax: 5000000},
		1: {Governor: "schedutil", Available: []string{"performance", "schedutil"}, ScalingMin: 800000, ScalingMax: 3000000, HWMin: 800000, HWMax: 3000000},
	}
)

// NewTree writes a cpufreq tree for the given CPUs under a temporary directory and returns its root.
func NewTree(t *testing.T, cpus map[int]CPU) string {
	t.Helper()

	root := t.TempDir()

	ids := make([]int, 0, len(cpus))
	for id := range cpus {
		ids = append(ids, id)
	}

	writeFile(t, filepath.Join(root, "online"), cpuset.New(ids...).String())

	for id, cpu := range cpus {
		dir := filepath.Join(root, fmt.Sprintf("cpu%d", id), "cpufreq")

		writeFile(t, filepath.Join(dir, "scaling_governor"), cpu.Governor)
		writeFile(t, filepath.Join(dir, "scaling_available_governors"), strings.Join(cpu.Available, " "))
		writeFile(t, filepath.Join(dir, "scaling_min_freq"), strconv.FormatUint(cpu.ScalingMin, 10))
		writeFile(t, filepath.Join(dir, "scaling_max_freq"), strconv.FormatUint(cpu.ScalingMax, 10))
		writeFile(t, filepath.Join(dir, "cpuinfo_min_freq"), strconv.FormatUint(cpu.HWMin, 10))
		writeFile(t, filepath.Join(dir, "cpuinfo_max_freq"), strconv.FormatUint(cpu.HWMax, 10))
	}

	return root
}

// ReadValue returns the trimmed content of a cpufreq attribute.
func ReadValue(t *testing.T, root string, cpu int, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(root, fmt.Sprintf("cpu%d", cpu), "cpufreq", name))
	require.NoError(t, err)

	return strings.TrimSpace(string(data))
}

// Remove deletes a cpufreq attribute to simulate a driver without it.
func Remove(t *testing.T, root string, cpu int, name string) {
	t.Helper()

	require.NoError(t, os.Remove(filepath.Join(root, fmt.Sprintf("cpu%d", cpu), "cpufreq", name)))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content+"\n"), 0o644))
}
