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
	"syscall"

	"golang.org/x/sys/unix"
)

// IsPrivileged reports whether the process runs with an effective uid of root,
// e.g. from a setuid root binary.
func IsPrivileged() bool {
	return unix.Geteuid() == 0
}

// RealCredential returns the identity of the user who started the process,
// before any setuid bit took effect. Supplementary groups are inherited unchanged.
func RealCredential() *syscall.Credential {
	return &syscall.Credential{
		Uid:         uint32(unix.Getuid()), //nolint:gosec
		Gid:         uint32(unix.Getgid()), //nolint:gosec
		NoSetGroups: true,
	}
}
