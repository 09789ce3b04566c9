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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k8s.io/utils/cpuset"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOnlineCPUs(t *testing.T) {
	testCases := []struct {
		name     string
		online   string
		expected cpuset.CPUSet
		error    bool
	}{
		{
			name:     "range",
			online:   "0-3\n",
			expected: cpuset.New(0, 1, 2, 3),
		},
		{
			name:     "with offline cpu",
			online:   "0-1,3\n",
			expected: cpuset.New(0, 1, 3),
		},
		{
			name:   "garbage",
			online: "zero\n",
			error:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, filepath.Join(root, "online"), tc.online)

			cpus, err := OnlineCPUs(root)
			if tc.error {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
			assert.True(t, tc.expected.Equals(cpus), "got %s", cpus)
		})
	}
}

func TestOnlineCPUsMissing(t *testing.T) {
	_, err := OnlineCPUs(t.TempDir())
	assert.Error(t, err)
}

func TestCPUFreqValue(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cpu2", "cpufreq", "scaling_max_freq"), "3400000\n")

	value, err := ReadCPUFreqValue(root, 2, "scaling_max_freq")
	assert.NoError(t, err)
	assert.Equal(t, uint64(3400000), value)

	assert.NoError(t, WriteCPUFreqValue(root, 2, "scaling_max_freq", 1200000))

	value, err = ReadCPUFreqValue(root, 2, "scaling_max_freq")
	assert.NoError(t, err)
	assert.Equal(t, uint64(1200000), value)

	_, err = ReadCPUFreqValue(root, 3, "scaling_max_freq")
	assert.Error(t, err)
}

func TestSetCPUGovernor(t *testing.T) {
	testCases := []struct {
		name      string
		available string
		governor  string
		expected  string
		error     bool
	}{
		{
			name:      "same governor",
			available: "",
			governor:  "powersave",
			expected:  "powersave",
		},
		{
			name:      "available governor",
			available: "performance powersave\n",
			governor:  "performance",
			expected:  "performance",
		},
		{
			name:      "unavailable governor",
			available: "performance powersave\n",
			governor:  "schedutil",
			expected:  "powersave",
			error:     true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, filepath.Join(root, "cpu0", "cpufreq", "scaling_governor"), "powersave\n")

			if tc.available != "" {
				writeFile(t, filepath.Join(root, "cpu0", "cpufreq", "scaling_available_governors"), tc.available)
			}

			err := SetCPUGovernor(root, 0, tc.governor)
			if tc.error {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			governor, err := ReadCPUGovernor(root, 0)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, governor)
		})
	}
}
