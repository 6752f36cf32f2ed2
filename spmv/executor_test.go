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
	"math"
	"testing"

	"github.com/ajroetker/symspmv/internal/workerpool"
)

const epsilon = 1e-8

func almostEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}

// buildExecutorFixture runs the full conflict-free pipeline for a small
// symmetric matrix and hands back everything runBarrierExecutor and
// runFineGrainedExecutor need, plus the reference result to compare against.
func buildExecutorFixture(t *testing.T, n, threads int) (*workerpool.Pool, []*ThreadBlock[int32, float64], *StagingCSR[int32, float64]) {
	t.Helper()
	s := tridiagonalStaging(t, n)
	relevant := rowLowerCounts(s)
	rowSplit := partitionRows(n, threads, 1, relevant)
	blocks, err := extractThreadBlocks(s, rowSplit, false, DefaultHybridThreshold)
	if err != nil {
		t.Fatalf("extractThreadBlocks: %v", err)
	}
	g, err := buildConflictGraph(blocks, rowSplit, 1, n, ModeAPosteriori)
	if err != nil {
		t.Fatalf("buildConflictGraph: %v", err)
	}
	order := sequentialOrder(g, OrderingFirstFitRoundRobin)
	col := sequentialGreedyColor(g, order)
	balanceColoring(g, col, threads, DefaultBalancingSteps)
	compileRanges(blocks, col, 1)
	computeDeps(blocks, g, col)

	pool := workerpool.New(threads)
	t.Cleanup(pool.Close)
	return pool, blocks, s
}

func TestRunBarrierExecutorMatchesReference(t *testing.T) {
	pool, blocks, s := buildExecutorFixture(t, 40, 4)
	x := make([]float64, 40)
	for i := range x {
		x[i] = float64(i%7) + 1
	}
	want := make([]float64, 40)
	ReferenceSpMV(s, want, x)

	got := make([]float64, 40)
	runBarrierExecutor(pool, blocks, false, got, x)
	if !almostEqual(got, want) {
		t.Errorf("runBarrierExecutor result mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestRunFineGrainedExecutorMatchesReference(t *testing.T) {
	pool, blocks, s := buildExecutorFixture(t, 40, 4)
	x := make([]float64, 40)
	for i := range x {
		x[i] = float64(i%5) + 1
	}
	want := make([]float64, 40)
	ReferenceSpMV(s, want, x)

	got := make([]float64, 40)
	runFineGrainedExecutor(pool, blocks, false, got, x)
	if !almostEqual(got, want) {
		t.Errorf("runFineGrainedExecutor result mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestSeedDiagonal(t *testing.T) {
	diag := []float64{1, 2, 3, 4, 5}
	x := []float64{2, 2, 2, 2, 2}
	y := make([]float64, 5)
	seedDiagonal(y, diag, x)
	want := []float64{2, 4, 6, 8, 10}
	if !almostEqual(y, want) {
		t.Errorf("seedDiagonal = %v, want %v", y, want)
	}
}

func TestInvarianceUnderThreadCount(t *testing.T) {
	s := tridiagonalStaging(t, 60)
	x := make([]float64, 60)
	for i := range x {
		x[i] = float64(i%11) - 5
	}
	want := make([]float64, 60)
	ReferenceSpMV(s, want, x)

	for _, threads := range []int{1, 2, 3, 5, 7} {
		pool, blocks, _ := buildExecutorFixture(t, 60, threads)
		got := make([]float64, 60)
		runBarrierExecutor(pool, blocks, false, got, x)
		if !almostEqual(got, want) {
			t.Errorf("threads=%d: result mismatch:\ngot  %v\nwant %v", threads, got, want)
		}
	}
}
