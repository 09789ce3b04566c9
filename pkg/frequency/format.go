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

package frequency

import (
	"math"
	"math/big"

	"github.com/dustin/go-humanize"
)

// Format returns the value as a decimal string with thousands separated by commas.
func Format(f KHz) string {
	if f > math.MaxInt64 {
		return humanize.BigComma(new(big.Int).SetUint64(uint64(f)))
	}

	return humanize.Comma(int64(f))
}
