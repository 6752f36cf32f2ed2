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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 1: diagonal matrix, edgeless conflict graph.
func TestScenarioDiagonal(t *testing.T) {
	triples := []Triple[int32, float64]{
		{Row: 0, Col: 0, Val: 1},
		{Row: 1, Col: 1, Val: 2},
		{Row: 2, Col: 2, Val: 3},
		{Row: 3, Col: 3, Val: 4},
	}
	m, err := NewFromTriples[int32, float64](4, triples, true, WithThreads(2), WithOrdering(OrderingNatural))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	_, err = m.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)

	y := make([]float64, 4)
	x := []float64{1, 1, 1, 1}
	m.DenseVectorMultiply(y, x)
	require.InDeltaSlice(t, []float64{1, 2, 3, 4}, y, epsilon)
}

// Scenario 2: tridiagonal N=5, T=2.
func TestScenarioTridiagonal(t *testing.T) {
	m, err := NewFromTriples[int32, float64](5, tridiagonalTriples(5), true, WithThreads(2))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	_, err = m.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)

	y := make([]float64, 5)
	x := []float64{1, 1, 1, 1, 1}
	m.DenseVectorMultiply(y, x)
	require.InDeltaSlice(t, []float64{1, 0, 0, 0, 1}, y, epsilon)
}

func tridiagonalTriples(n int) []Triple[int32, float64] {
	var triples []Triple[int32, float64]
	for i := 0; i < n; i++ {
		triples = append(triples, Triple[int32, float64]{Row: int32(i), Col: int32(i), Val: 2})
		if i > 0 {
			triples = append(triples, Triple[int32, float64]{Row: int32(i), Col: int32(i - 1), Val: -1})
		}
	}
	return triples
}

// Scenario 3: arrowhead N=4, column 0 touched from three rows, T=3.
func TestScenarioArrowhead(t *testing.T) {
	triples := []Triple[int32, float64]{
		{Row: 0, Col: 0, Val: 2},
		{Row: 1, Col: 0, Val: 1},
		{Row: 1, Col: 1, Val: 2},
		{Row: 2, Col: 0, Val: 1},
		{Row: 2, Col: 2, Val: 2},
		{Row: 3, Col: 0, Val: 1},
		{Row: 3, Col: 3, Val: 2},
	}
	m, err := NewFromTriples[int32, float64](4, triples, true, WithThreads(3))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	_, err = m.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)

	y := make([]float64, 4)
	x := []float64{1, 1, 1, 1}
	m.DenseVectorMultiply(y, x)
	require.InDeltaSlice(t, []float64{5, 3, 3, 3}, y, epsilon)
	require.GreaterOrEqual(t, m.coloring.NColors, 1)
}

// Scenario 4: two independent symmetric 2x2 blocks, T=2, edgeless conflict graph.
func TestScenarioBlockDiagonal(t *testing.T) {
	triples := []Triple[int32, float64]{
		{Row: 0, Col: 0, Val: 1},
		{Row: 1, Col: 0, Val: 1},
		{Row: 1, Col: 1, Val: 1},
		{Row: 2, Col: 2, Val: 1},
		{Row: 3, Col: 2, Val: 1},
		{Row: 3, Col: 3, Val: 1},
	}
	m, err := NewFromTriples[int32, float64](4, triples, true, WithThreads(2))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	_, err = m.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)
	require.Equal(t, 1, m.coloring.NColors)
	require.Empty(t, m.graph.Adj[0])
	require.Empty(t, m.graph.Adj[1])

	y := make([]float64, 4)
	x := []float64{1, 1, 1, 1}
	m.DenseVectorMultiply(y, x)
	require.InDeltaSlice(t, []float64{2, 2, 2, 2}, y, epsilon)
}

// Scenario 5: hybrid split, N=8000, far-off-diagonal entries at |col-row|=7000.
func TestScenarioHybridSplit(t *testing.T) {
	const n = 8000
	var triples []Triple[int32, float64]
	for i := 0; i < n; i++ {
		triples = append(triples, Triple[int32, float64]{Row: int32(i), Col: int32(i), Val: 4})
		if i > 0 {
			triples = append(triples, Triple[int32, float64]{Row: int32(i), Col: int32(i - 1), Val: -1})
		}
	}
	for i := 7000; i < n; i++ {
		triples = append(triples, Triple[int32, float64]{Row: int32(i), Col: int32(i - 7000), Val: 0.5})
	}

	mHybrid, err := NewFromTriples[int32, float64](n, triples, true, WithThreads(4), WithHybrid(true))
	require.NoError(t, err)
	t.Cleanup(mHybrid.Close)
	_, err = mHybrid.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i%13) - 6
	}
	want := make([]float64, n)
	ReferenceSpMV(mHybrid.staging, want, x)

	got := make([]float64, n)
	mHybrid.DenseVectorMultiply(got, x)
	require.InDeltaSlice(t, want, got, epsilon)

	var sawHigh bool
	for _, blk := range mHybrid.blocks {
		if len(blk.ColIndH) > 0 {
			sawHigh = true
		}
	}
	require.True(t, sawHigh, "expected at least one thread block to carry high-bandwidth entries")
}

// Scenario 6: symmetry round-trip via a Matrix-Market file, hybrid on then off.
func TestScenarioSymmetryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tridiag.mtx")
	require.NoError(t, os.WriteFile(path, []byte(tridiagonalMMF), 0o644))

	m1, err := NewFromFile[int32, float64](path, WithThreads(2), WithHybrid(true))
	require.NoError(t, err)
	t.Cleanup(m1.Close)
	_, err = m1.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)
	x := []float64{1, 2, 3, 4, 5}
	y1 := make([]float64, 5)
	m1.DenseVectorMultiply(y1, x)

	m2, err := NewFromFile[int32, float64](path, WithThreads(2), WithHybrid(false))
	require.NoError(t, err)
	t.Cleanup(m2.Close)
	_, err = m2.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)
	y2 := make([]float64, 5)
	m2.DenseVectorMultiply(y2, x)

	require.InDeltaSlice(t, y1, y2, epsilon)
}

// Property 6: tune(SpMV, Aggressive) twice in a row yields identical results.
func TestTuneIdempotence(t *testing.T) {
	m, err := NewFromTriples[int32, float64](30, tridiagonalTriples(30), true, WithThreads(3))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	_, err = m.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)
	x := make([]float64, 30)
	for i := range x {
		x[i] = float64(i + 1)
	}
	y1 := make([]float64, 30)
	m.DenseVectorMultiply(y1, x)

	_, err = m.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)
	y2 := make([]float64, 30)
	m.DenseVectorMultiply(y2, x)

	require.InDeltaSlice(t, y1, y2, epsilon)
}

// tune(None) falls back to the vanilla CSR kernel and discards the
// compressed representation.
func TestTuneNoneFallsBackToVanilla(t *testing.T) {
	m, err := NewFromTriples[int32, float64](10, tridiagonalTriples(10), true, WithThreads(3))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	_, err = m.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)
	require.NotNil(t, m.blocks)

	alt, err := m.Tune(KernelSpMV, TuningNone)
	require.NoError(t, err)
	require.False(t, alt)
	require.Nil(t, m.blocks)
	require.Equal(t, StrategySerial, m.installed)

	x := make([]float64, 10)
	for i := range x {
		x[i] = float64(i + 1)
	}
	want := make([]float64, 10)
	ReferenceSpMV(m.staging, want, x)
	got := make([]float64, 10)
	m.DenseVectorMultiply(got, x)
	require.InDeltaSlice(t, want, got, epsilon)
}

// Requesting symmetric compression on a non-symmetric matrix falls back to
// the general CSR kernel instead of failing.
func TestTuneFallsBackOnNonSymmetric(t *testing.T) {
	triples := []Triple[int32, float64]{
		{Row: 0, Col: 1, Val: 1},
		{Row: 1, Col: 0, Val: 2},
	}
	m, err := NewFromTriples[int32, float64](2, triples, false, WithThreads(2))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	alt, err := m.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)
	require.False(t, alt)
	require.Equal(t, StrategySerial, m.installed)
}

// WithOrdering only affects the sequential colorer, which is only used
// when Threads == 1. With more than one thread, tune() always installs the
// parallel speculative colorer regardless of Ordering; this test pins that
// behavior down by confirming both orderings still produce a valid,
// reference-matching result when Threads > 1.
func TestOrderingIgnoredWhenThreadsGreaterThanOne(t *testing.T) {
	triples := tridiagonalTriples(20)
	x := make([]float64, 20)
	for i := range x {
		x[i] = float64(i + 1)
	}
	want := make([]float64, 20)

	mRef, err := NewFromTriples[int32, float64](20, triples, true, WithThreads(1))
	require.NoError(t, err)
	t.Cleanup(mRef.Close)
	_, err = mRef.Tune(KernelSpMV, TuningNone)
	require.NoError(t, err)
	mRef.DenseVectorMultiply(want, x)

	for _, ord := range []Ordering{OrderingNatural, OrderingFirstFitRoundRobin, OrderingLongestRowFirst} {
		m, err := NewFromTriples[int32, float64](20, triples, true, WithThreads(4), WithOrdering(ord))
		require.NoError(t, err)
		t.Cleanup(m.Close)
		_, err = m.Tune(KernelSpMV, TuningAggressive)
		require.NoError(t, err)

		got := make([]float64, 20)
		m.DenseVectorMultiply(got, x)
		require.InDeltaSlice(t, want, got, epsilon)
	}
}

// With Threads == 1 and the default OrderingFirstFitRoundRobin, tune()
// routes through the bitmap-based colorer instead of the mark[] sentinel
// one; confirm that path still installs a usable, correct coloring.
func TestOrderingSingleThreadUsesBitmapColorer(t *testing.T) {
	triples := tridiagonalTriples(20)
	m, err := NewFromTriples[int32, float64](20, triples, true, WithThreads(1), WithOrdering(OrderingFirstFitRoundRobin))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	_, err = m.Tune(KernelSpMV, TuningAggressive)
	require.NoError(t, err)
	require.NotNil(t, m.coloring)
	validColoring(t, m.graph, m.coloring)

	x := make([]float64, 20)
	for i := range x {
		x[i] = float64(i + 1)
	}
	want := make([]float64, 20)
	ReferenceSpMV(m.staging, want, x)
	got := make([]float64, 20)
	m.DenseVectorMultiply(got, x)
	require.InDeltaSlice(t, want, got, epsilon)
}

func TestNewFromRawCSR(t *testing.T) {
	rowPtr := []int32{0, 0, 1, 2}
	colInd := []int32{0, 1}
	values := []float64{-1, -1}
	m, err := NewFromRawCSR[int32, float64](3, rowPtr, colInd, values, true, WithThreads(1))
	require.NoError(t, err)
	t.Cleanup(m.Close)
	require.Equal(t, 3, m.NRows())
}
