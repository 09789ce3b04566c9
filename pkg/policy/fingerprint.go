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

	"github.com/mitchellh/hashstructure/v2"
	"github.com/samber/lo"

	"github.com/sergelogvinov/cpu-throttle/pkg/governor"
)

type cpuPolicy struct {
	CPU    int
	Policy governor.Policy
}

// fingerprint hashes the policies of all CPUs, a missing policy hashes as its zero value.
func fingerprint(cpus []int, policies []*governor.Policy) string {
	entries := lo.Map(cpus, func(cpu int, i int) cpuPolicy {
		entry := cpuPolicy{CPU: cpu}
		if policies[i] != nil {
			entry.Policy = *policies[i]
		}

		return entry
	})

	return fmt.Sprint(lo.Must(hashstructure.Hash(entries, hashstructure.FormatV2, nil)))
}
