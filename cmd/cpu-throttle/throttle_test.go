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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sergelogvinov/cpu-throttle/pkg/governor"
	"github.com/sergelogvinov/cpu-throttle/pkg/launcher"
	"github.com/sergelogvinov/cpu-throttle/test/cpufreq"

	"k8s.io/klog/v2/ktesting"
)

func newTestCmd(t *testing.T, root string, privileged bool, stdout *bytes.Buffer) *throttleCmd {
	t.Helper()

	logger, _ := ktesting.NewTestContext(t)

	return &throttleCmd{
		governor:   governor.NewSysfsWithRoot(root),
		privileged: func() bool { return privileged },
		logger:     logger,
		launcherOpts: []launcher.Option{
			launcher.WithCredential(nil),
			launcher.WithStdio(strings.NewReader(""), stdout, &bytes.Buffer{}),
		},
	}
}

func assertRestored(t *testing.T, root string, cpus map[int]cpufreq.CPU) {
	t.Helper()

	for id, cpu := range cpus {
		assert.Equal(t, cpu.Governor, cpufreq.ReadValue(t, root, id, "scaling_governor"), "cpu %d", id)
		assert.Equal(t, formatUint(cpu.ScalingMin), cpufreq.ReadValue(t, root, id, "scaling_min_freq"), "cpu %d", id)
		assert.Equal(t, formatUint(cpu.ScalingMax), cpufreq.ReadValue(t, root, id, "scaling_max_freq"), "cpu %d", id)
	}
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func TestThrottle(t *testing.T) {
	testCases := []struct {
		name     string
		args     func(root, marker string) []string
		notRoot  bool
		mutate   func(t *testing.T, root string)
		expected int
		stdout   string
		ran      bool
	}{
		{
			name: "missing command",
			args: func(_, _ string) []string {
				return []string{"2GHz"}
			},
			expected: ExitFailure,
		},
		{
			name: "invalid frequency",
			args: func(_, marker string) []string {
				return []string{"fast", "touch", marker}
			},
			expected: ExitFailure,
		},
		{
			name: "not privileged",
			args: func(_, marker string) []string {
				return []string{"2GHz", "touch", marker}
			},
			notRoot:  true,
			expected: ExitFailure,
		},
		{
			name: "capture fails",
			args: func(_, marker string) []string {
				return []string{"2GHz", "touch", marker}
			},
			mutate: func(t *testing.T, root string) {
				cpufreq.Remove(t, root, 3, "scaling_governor")
			},
			expected: ExitFailure,
		},
		{
			name: "command sees the clamp and its exit status is kept",
			args: func(root, marker string) []string {
				return []string{"2GHz", "/bin/sh", "-c", `touch "$1"; cat "$2"; exit 7`, "sh", marker, filepath.Join(root, "cpu1", "cpufreq", "scaling_max_freq")}
			},
			expected: 7,
			stdout:   "2000000\n",
			ran:      true,
		},
		{
			name: "command flags are not parsed",
			args: func(_, marker string) []string {
				return []string{"1.5g", "/bin/sh", "-c", `touch "$1"; echo "$2"`, "sh", marker, "--verbosity"}
			},
			expected: 0,
			stdout:   "--verbosity\n",
			ran:      true,
		},
		{
			name: "below every hardware minimum still runs the command",
			args: func(_, marker string) []string {
				return []string{"100 kHz", "touch", marker}
			},
			expected: ExitFailure,
			ran:      true,
		},
		{
			name: "strict mode skips the command",
			args: func(_, marker string) []string {
				return []string{"--strict", "100 kHz", "touch", marker}
			},
			expected: ExitFailure,
		},
		{
			name: "command not found",
			args: func(_, _ string) []string {
				return []string{"2GHz", "cpu-throttle-no-such-command"}
			},
			expected: launcher.ExitNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root := cpufreq.NewTree(t, cpufreq.Laptop4)
			if tc.mutate != nil {
				tc.mutate(t, root)
			}

			marker := filepath.Join(t.TempDir(), "ran")

			var stdout bytes.Buffer

			c := newTestCmd(t, root, !tc.notRoot, &stdout)

			assert.Equal(t, tc.expected, run(context.Background(), c, tc.args(root, marker)))
			assert.Equal(t, tc.stdout, stdout.String())

			_, err := os.Stat(marker)
			assert.Equal(t, tc.ran, err == nil, "command ran")

			if tc.mutate == nil {
				assertRestored(t, root, cpufreq.Laptop4)
			}
		})
	}
}

func TestThrottleNotPrivilegedLeavesPolicies(t *testing.T) {
	root := cpufreq.NewTree(t, cpufreq.Laptop4)
	c := newTestCmd(t, root, false, &bytes.Buffer{})

	assert.Equal(t, ExitFailure, run(context.Background(), c, []string{"2GHz", "true"}))
	assertRestored(t, root, cpufreq.Laptop4)
}

func TestThrottleCancelled(t *testing.T) {
	root := cpufreq.NewTree(t, cpufreq.Hybrid2)
	c := newTestCmd(t, root, true, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	code := run(ctx, c, []string{"1GHz", "/bin/sh", "-c", "exec sleep 5 >/dev/null 2>&1"})
	assert.Equal(t, launcher.ExitAbnormal, code)
	assertRestored(t, root, cpufreq.Hybrid2)
}

func TestThrottleSignalRestores(t *testing.T) {
	root := cpufreq.NewTree(t, cpufreq.Hybrid2)
	c := newTestCmd(t, root, true, &bytes.Buffer{})

	// The child signals its parent, the test process, while it is being waited for.
	code := run(context.Background(), c, []string{"1GHz", "/bin/sh", "-c", "kill -TERM $PPID; exec sleep 5 >/dev/null 2>&1"})
	assert.Equal(t, launcher.ExitAbnormal, code)
	assertRestored(t, root, cpufreq.Hybrid2)
}

func TestVersion(t *testing.T) {
	root := cpufreq.NewTree(t, cpufreq.Laptop4)
	c := newTestCmd(t, root, true, &bytes.Buffer{})

	assert.Equal(t, 0, run(context.Background(), c, []string{"--version"}))
}

func TestThrottleUsage(t *testing.T) {
	testCases := []struct {
		name  string
		args  []string
		usage bool
	}{
		{
			name:  "missing command",
			args:  []string{"2GHz"},
			usage: true,
		},
		{
			name:  "unknown flag",
			args:  []string{"--fast", "2GHz", "true"},
			usage: true,
		},
		{
			name: "frequency quoting the word flag",
			args: []string{"flag", "true"},
		},
		{
			name: "frequency quoting the word arg(s)",
			args: []string{"arg(s)", "true"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root := cpufreq.NewTree(t, cpufreq.Laptop4)

			var stderr bytes.Buffer

			c := newTestCmd(t, root, true, &bytes.Buffer{})
			c.stderr = &stderr

			assert.Equal(t, ExitFailure, run(context.Background(), c, tc.args))
			assert.Contains(t, stderr.String(), "Error:")
			assert.Equal(t, tc.usage, strings.Contains(stderr.String(), "Usage:"), stderr.String())
		})
	}
}
