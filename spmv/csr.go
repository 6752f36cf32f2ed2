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

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Triple is one (row, col, value) entry of an input stream, 0-based.
type Triple[I Index, V Value] struct {
	Row I
	Col I
	Val V
}

// StagingCSR is the full, materialized CSR representation built from an
// input triple stream. It is read-only during extraction; CSRMatrix keeps it
// after Tune(), since the serial kernel, NNZ() and later Tune() calls read it.
type StagingCSR[I Index, V Value] struct {
	N      int
	RowPtr []I
	ColInd []I
	Values []V
}

// NNZ returns the number of stored entries.
func (s *StagingCSR[I, V]) NNZ() int {
	return len(s.ColInd)
}

// BuildStagingCSR constructs a full CSR from a stream of triples. If
// symmetric is true and the input carries only entries with col <= row
// (the common Matrix-Market "symmetric" encoding), the mirror entries
// (col, row) are synthesized so downstream consumers always see the full
// matrix; an input that already carries both halves (it has entries on both
// sides of the diagonal) is accepted unchanged. Duplicate coordinates are
// rejected as ErrInvariantViolation.
//
// The input need not be sorted; BuildStagingCSR sorts by (row, col)
// internally.
func BuildStagingCSR[I Index, V Value](n int, triples []Triple[I, V], symmetric bool) (*StagingCSR[I, V], error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: matrix dimension must be positive, got %d", ErrInvariantViolation, n)
	}

	all := triples
	if symmetric {
		hasLower, hasUpper := false, false
		for _, t := range triples {
			hasLower = hasLower || t.Row > t.Col
			hasUpper = hasUpper || t.Row < t.Col
		}
		all = make([]Triple[I, V], 0, len(triples)*2)
		all = append(all, triples...)
		for _, t := range triples {
			if t.Row < 0 || int(t.Row) >= n || t.Col < 0 || int(t.Col) >= n {
				return nil, fmt.Errorf("%w: coordinate (%d,%d) out of range [0,%d)", ErrInvariantViolation, t.Row, t.Col, n)
			}
			if t.Row != t.Col && !(hasLower && hasUpper) {
				all = append(all, Triple[I, V]{Row: t.Col, Col: t.Row, Val: t.Val})
			}
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Row != all[j].Row {
			return all[i].Row < all[j].Row
		}
		return all[i].Col < all[j].Col
	})

	rowPtr := make([]I, n+1)
	colInd := make([]I, 0, len(all))
	values := make([]V, 0, len(all))

	row := I(0)
	var prevCol I = -1
	havePrev := false
	for _, t := range all {
		if t.Row < 0 || int(t.Row) >= n || t.Col < 0 || int(t.Col) >= n {
			return nil, fmt.Errorf("%w: coordinate (%d,%d) out of range [0,%d)", ErrInvariantViolation, t.Row, t.Col, n)
		}
		if t.Row < row {
			return nil, fmt.Errorf("%w: rows not non-decreasing at row %d", ErrInvariantViolation, t.Row)
		}
		if t.Row > row {
			for r := row; r < t.Row; r++ {
				rowPtr[r+1] = I(len(colInd))
			}
			row = t.Row
			havePrev = false
		}
		if havePrev && t.Col <= prevCol {
			return nil, fmt.Errorf("%w: duplicate or unsorted column %d in row %d", ErrInvariantViolation, t.Col, t.Row)
		}
		colInd = append(colInd, t.Col)
		values = append(values, t.Val)
		prevCol = t.Col
		havePrev = true
	}
	for r := row; r < I(n); r++ {
		rowPtr[r+1] = I(len(colInd))
	}

	return &StagingCSR[I, V]{N: n, RowPtr: rowPtr, ColInd: colInd, Values: values}, nil
}

// ReferenceSpMV computes y = A*x directly off the full staging CSR with no
// partitioning, coloring, or concurrency. It is the ground truth Property 1
// compares every optimized kernel against.
func ReferenceSpMV[I Index, V Value](s *StagingCSR[I, V], y, x []V) {
	for i := 0; i < s.N; i++ {
		var sum V
		for j := int(s.RowPtr[i]); j < int(s.RowPtr[i+1]); j++ {
			sum += s.Values[j] * x[s.ColInd[j]]
		}
		y[i] = sum
	}
}

// rowNNZ returns the number of stored entries in row i.
func (s *StagingCSR[I, V]) rowNNZ(i int) int {
	return int(s.RowPtr[i+1] - s.RowPtr[i])
}

// uniqueRows is a small lo-based convenience used by the staging-CSR tests
// to sanity check row coverage; kept here since it is staging-CSR specific.
func uniqueRows[I Index, V Value](triples []Triple[I, V]) []I {
	return lo.Uniq(lo.Map(triples, func(t Triple[I, V], _ int) I { return t.Row }))
}
