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
	"errors"
	"testing"
)

func TestBuildStagingCSRMirrorsSymmetric(t *testing.T) {
	triples := []Triple[int32, float64]{
		{Row: 1, Col: 0, Val: 2},
		{Row: 2, Col: 1, Val: 3},
	}
	s, err := BuildStagingCSR(3, triples, true)
	if err != nil {
		t.Fatalf("BuildStagingCSR: %v", err)
	}
	if s.NNZ() != 4 {
		t.Fatalf("NNZ() = %d, want 4 (2 stored + 2 mirrored)", s.NNZ())
	}

	y := make([]float64, 3)
	x := []float64{1, 1, 1}
	ReferenceSpMV(s, y, x)
	want := []float64{2, 5, 3}
	for i := range want {
		if y[i] != want[i] {
			t.Errorf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestBuildStagingCSRDiagonal(t *testing.T) {
	triples := []Triple[int32, float64]{
		{Row: 0, Col: 0, Val: 1},
		{Row: 1, Col: 1, Val: 2},
		{Row: 2, Col: 2, Val: 3},
		{Row: 3, Col: 3, Val: 4},
	}
	s, err := BuildStagingCSR(4, triples, true)
	if err != nil {
		t.Fatalf("BuildStagingCSR: %v", err)
	}
	if s.NNZ() != 4 {
		t.Fatalf("NNZ() = %d, want 4 (diagonal is never mirrored)", s.NNZ())
	}
}

func TestBuildStagingCSRRejectsOutOfRange(t *testing.T) {
	triples := []Triple[int32, float64]{{Row: 0, Col: 5, Val: 1}}
	_, err := BuildStagingCSR(3, triples, false)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("err = %v, want ErrInvariantViolation", err)
	}
}

func TestBuildStagingCSRRejectsDuplicateColumn(t *testing.T) {
	triples := []Triple[int32, float64]{
		{Row: 0, Col: 1, Val: 1},
		{Row: 0, Col: 1, Val: 2},
	}
	_, err := BuildStagingCSR(2, triples, false)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("err = %v, want ErrInvariantViolation", err)
	}
}

func TestUniqueRows(t *testing.T) {
	triples := []Triple[int32, float64]{
		{Row: 0, Col: 0, Val: 1},
		{Row: 0, Col: 1, Val: 1},
		{Row: 2, Col: 0, Val: 1},
	}
	got := uniqueRows(triples)
	if len(got) != 2 {
		t.Fatalf("uniqueRows = %v, want 2 distinct rows", got)
	}
}
