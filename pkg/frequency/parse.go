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

// Package frequency parses and formats CPU frequencies expressed in kHz.
package frequency

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrSyntax is returned when the text is not a valid frequency.
	ErrSyntax = errors.New("invalid frequency syntax")
	// ErrRange is returned when the frequency does not fit in a KHz value.
	ErrRange = errors.New("frequency out of range")
)

// KHz is a frequency in kilohertz.
type KHz uint64

// String returns the grouped decimal value with its unit.
func (f KHz) String() string {
	return Format(f) + " kHz"
}

const (
	multiplierKHz = 1
	multiplierMHz = 1000
	multiplierGHz = 1000 * 1000
)

// Parse converts a human readable frequency like "1,234.56 MHz" or "800k"
// into kHz. Without a unit suffix the value is in kHz. Digits below 1 kHz
// are truncated.
//
// The whole input must match, any trailing garbage is an error.
func Parse(s string) (KHz, error) {
	// The result is val * multi / scale, scale is 0 until a decimal point is seen.
	var val, scale uint64

	multi := uint64(multiplierKHz)

	i := skipSpace(s, 0)
	if i == len(s) || !isDigit(s[i]) {
		return 0, syntaxError(s, "must start with a digit")
	}

digits:
	for ; i < len(s); i++ {
		c := s[i]

		switch {
		case isDigit(c):
			d := uint64(c - '0')
			if val > (math.MaxUint64-d)/10 {
				return 0, rangeError(s)
			}

			val = 10*val + d

			if scale != 0 {
				if scale > math.MaxUint64/10 {
					return 0, rangeError(s)
				}

				scale *= 10
			}
		case c == '.' || c == ',':
			// The previous character is always a digit here.
			if i+1 == len(s) || !isDigit(s[i+1]) {
				return 0, syntaxError(s, fmt.Sprintf("separator %q must be followed by a digit", c))
			}

			if c == '.' {
				if scale != 0 {
					return 0, syntaxError(s, "more than one decimal point")
				}

				scale = 1
			}
		default:
			break digits
		}
	}

	if scale == 0 {
		scale = 1
	}

	i = skipSpace(s, i)
	if i < len(s) {
		switch toLower(s[i]) {
		case 'k':
			multi = multiplierKHz
		case 'm':
			multi = multiplierMHz
		case 'g':
			multi = multiplierGHz
		default:
			return 0, syntaxError(s, fmt.Sprintf("unknown unit %q", s[i]))
		}

		i++

		if i < len(s) && !isSpace(s[i]) {
			if i+1 >= len(s) || toLower(s[i]) != 'h' || toLower(s[i+1]) != 'z' {
				return 0, syntaxError(s, "unit must end in Hz")
			}

			i += 2
		}
	}

	if i = skipSpace(s, i); i < len(s) {
		return 0, syntaxError(s, "unexpected trailing characters")
	}

	// multi and scale are both powers of 10, so one divides the other.
	if multi > scale {
		multi /= scale
		if val > math.MaxUint64/multi {
			return 0, rangeError(s)
		}

		return KHz(val * multi), nil
	}

	return KHz(val / (scale / multi)), nil
}

func syntaxError(s, reason string) error {
	return fmt.Errorf("parsing frequency %q: %s: %w", s, reason, ErrSyntax)
}

func rangeError(s string) error {
	return fmt.Errorf("parsing frequency %q: %w", s, ErrRange)
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}

	return false
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}

	return c
}
