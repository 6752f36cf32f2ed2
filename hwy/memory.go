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

// This file provides additional memory operations for Highway.
// These are pure Go (scalar) implementations that work with any type.

// Undefined returns a vector with undefined (implementation-defined) values.
// In Go, this returns a zero-initialized vector for safety, but callers
// should not rely on any specific value.
//
// Use this when initial values don't matter, such as a destination whose
// every lane is written before it is read.
func Undefined[T Lanes]() Vec[T] {
	n := MaxLanes[T]()
	return Vec[T]{data: make([]T, n)}
}
