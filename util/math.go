// Copyright 2026 The go-lume Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"errors"
)

// ErrInt64Overflow reports an int64 addition whose result cannot be
// represented. Balance arithmetic treats this as a consensus fault,
// never as a recoverable condition.
var ErrInt64Overflow = errors.New("int64 overflow")

// Find the max between two int values
func MaxInt(x int, y int) int {
	if x >= y {
		return x
	}
	return y
}

// Find the min between two int values
func MinInt(x int, y int) int {
	if x <= y {
		return x
	}
	return y
}

// Find the max between two int64 values
func MaxInt64(x int64, y int64) int64 {
	if x >= y {
		return x
	}
	return y
}

// Find the min between two int64 values
func MinInt64(x int64, y int64) int64 {
	if x <= y {
		return x
	}
	return y
}

// AddExactInt64 returns x+y, failing with ErrInt64Overflow when the
// sum wraps instead of silently producing a bogus balance.
func AddExactInt64(x int64, y int64) (int64, error) {
	sum := x + y
	if (x > 0 && y > 0 && sum < 0) || (x < 0 && y < 0 && sum >= 0) {
		return 0, ErrInt64Overflow
	}
	return sum, nil
}
