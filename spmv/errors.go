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

package spmv

import "errors"

// Sentinel errors identifying the taxonomy of construction/tune failures.
// Use errors.Is against these, not string matching.
var (
	// ErrMalformedHeader means the Matrix-Market header or body could not be parsed.
	ErrMalformedHeader = errors.New("spmv: malformed matrix-market input")

	// ErrInvariantViolation means the staging CSR failed a structural invariant
	// (non-monotonic rows, out-of-range column, duplicate coordinate).
	ErrInvariantViolation = errors.New("spmv: csr invariant violation")

	// ErrConfiguration means a construction-time configuration value was invalid
	// in a way that has no safe fallback (e.g. thread count 0).
	ErrConfiguration = errors.New("spmv: invalid configuration")

	// ErrResourceExhausted means an allocation failed during construction or tune.
	ErrResourceExhausted = errors.New("spmv: resource exhausted")
)
