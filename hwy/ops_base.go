// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hwy

import "math"

// This file provides pure Go (scalar) implementations of the Highway
// operations this module actually uses. Architecture-specific versions
// would replace these via build tags; on platforms without one, these
// scalar forms are also what HWY_NO_SIMD selects.

// Load creates a vector by loading data from a slice.
func Load[T Lanes](src []T) Vec[T] {
	n := min(len(src), MaxLanes[T]())
	data := make([]T, n)
	copy(data, src[:n])
	return Vec[T]{data: data}
}

// Store writes a vector's data to a slice.
func Store[T Lanes](v Vec[T], dst []T) {
	n := min(len(dst), len(v.data))
	copy(dst[:n], v.data[:n])
}

// Set creates a vector with all lanes set to the same value.
func Set[T Lanes](value T) Vec[T] {
	n := MaxLanes[T]()
	data := make([]T, n)
	for i := range data {
		data[i] = value
	}
	return Vec[T]{data: data}
}

// Zero creates a vector with all lanes set to zero.
func Zero[T Lanes]() Vec[T] {
	n := MaxLanes[T]()
	return Vec[T]{data: make([]T, n)}
}

// Add performs element-wise addition.
func Add[T Lanes](a, b Vec[T]) Vec[T] {
	n := min(len(b.data), len(a.data))
	result := make([]T, n)
	for i := range n {
		result[i] = a.data[i] + b.data[i]
	}
	return Vec[T]{data: result}
}

// Mul performs element-wise multiplication.
func Mul[T Lanes](a, b Vec[T]) Vec[T] {
	n := min(len(b.data), len(a.data))
	result := make([]T, n)
	for i := range n {
		result[i] = a.data[i] * b.data[i]
	}
	return Vec[T]{data: result}
}

// FMA performs fused multiply-add: a*b + c, using math.FMA for the
// floating-point lanes to avoid an intermediate rounding step.
func FMA[T Floats](a, b, c Vec[T]) Vec[T] {
	n := min(len(c.data), min(len(b.data), len(a.data)))
	result := make([]T, n)
	for i := range n {
		switch av := any(a.data[i]).(type) {
		case float32:
			bv := any(b.data[i]).(float32)
			cv := any(c.data[i]).(float32)
			result[i] = any(float32(math.FMA(float64(av), float64(bv), float64(cv)))).(T)
		case float64:
			bv := any(b.data[i]).(float64)
			cv := any(c.data[i]).(float64)
			result[i] = any(math.FMA(av, bv, cv)).(T)
		}
	}
	return Vec[T]{data: result}
}

// MulAdd is an alias for FMA matching the a.MulAdd(b, c) naming used
// by generated math routines elsewhere in the ecosystem.
func MulAdd[T Floats](a, b, c Vec[T]) Vec[T] {
	return FMA(a, b, c)
}

// ReduceSum sums all lanes.
func ReduceSum[T Lanes](v Vec[T]) T {
	var sum T
	for i := range v.data {
		sum += v.data[i]
	}
	return sum
}
