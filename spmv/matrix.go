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
	"log"
	"os"

	"github.com/ajroetker/symspmv/internal/workerpool"
)

// Kernel names the operation tune() installs a code path for. SpMV is the
// only kernel this package implements.
type Kernel int

const (
	KernelSpMV Kernel = iota
)

// Tuning selects how aggressively tune() optimizes the installed kernel.
type Tuning int

const (
	// TuningNone installs the vanilla CSR kernel and discards any compressed
	// representation built by a previous tune() call.
	TuningNone Tuning = iota
	// TuningAggressive builds the full symmetry-compressed pipeline selected
	// by Config.Strategy (StrategyConflictFree by default).
	TuningAggressive
)

// CSRMatrix is the public core matrix object: it owns every array it
// allocates, borrows nothing past construction, and installs exactly one
// kernel at a time via tune().
type CSRMatrix[I Index, V Value] struct {
	nrows, ncols int
	symmetric    bool
	config       Config

	staging *StagingCSR[I, V]
	pool    *workerpool.Pool

	blocks   []*ThreadBlock[I, V]
	graph    *ConflictGraph
	coloring *Coloring

	installed Strategy
	tuned     bool

	// conflictMap backs StrategyLocalVectors; built lazily by tune().
	conflictMap *ConflictMap
}

// NewFromTriples constructs a matrix from a raw (row, col, value) stream.
// symmetric indicates the stream carries only the lower (or upper)
// triangle; mirror entries are synthesized automatically. Rows need not be
// pre-sorted.
func NewFromTriples[I Index, V Value](n int, triples []Triple[I, V], symmetric bool, opts ...Option) (*CSRMatrix[I, V], error) {
	cfg := NewConfig(opts...)
	if cfg.Threads < 1 {
		return nil, fmt.Errorf("%w: thread count must be >= 1, got %d", ErrConfiguration, cfg.Threads)
	}
	staging, err := BuildStagingCSR(n, triples, symmetric)
	if err != nil {
		return nil, err
	}
	return &CSRMatrix[I, V]{
		nrows:     n,
		ncols:     n,
		symmetric: symmetric,
		config:    cfg,
		staging:   staging,
		pool:      workerpool.New(cfg.Threads),
	}, nil
}

// NewFromFile reads a Matrix-Market file and constructs a matrix from it.
func NewFromFile[I Index, V Value](path string, opts ...Option) (*CSRMatrix[I, V], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	defer f.Close()

	res, err := ReadMatrixMarket[I, V](f)
	if err != nil {
		return nil, err
	}
	if res.NRows != res.NCols {
		return nil, fmt.Errorf("%w: only square matrices are supported", ErrConfiguration)
	}
	return NewFromTriples[I, V](res.NRows, res.Triples, res.Symmetric, opts...)
}

// NewFromRawCSR constructs a matrix from already-built CSR arrays. The
// arrays are copied into owned storage; the caller's originals are not
// retained or mutated.
func NewFromRawCSR[I Index, V Value](n int, rowPtr, colInd []I, values []V, symmetric bool, opts ...Option) (*CSRMatrix[I, V], error) {
	if len(rowPtr) != n+1 {
		return nil, fmt.Errorf("%w: rowptr length %d, want %d", ErrInvariantViolation, len(rowPtr), n+1)
	}
	triples := make([]Triple[I, V], 0, len(colInd))
	for i := 0; i < n; i++ {
		for j := int(rowPtr[i]); j < int(rowPtr[i+1]); j++ {
			triples = append(triples, Triple[I, V]{Row: I(i), Col: colInd[j], Val: values[j]})
		}
	}
	return NewFromTriples[I, V](n, triples, symmetric, opts...)
}

// NRows returns the row count.
func (m *CSRMatrix[I, V]) NRows() int { return m.nrows }

// NCols returns the column count.
func (m *CSRMatrix[I, V]) NCols() int { return m.ncols }

// NNZ returns the number of stored entries in the full (symmetrized) CSR.
func (m *CSRMatrix[I, V]) NNZ() int {
	if m.staging == nil {
		return 0
	}
	return m.staging.NNZ()
}

// Symmetric reports whether this matrix was constructed as symmetric.
func (m *CSRMatrix[I, V]) Symmetric() bool { return m.symmetric }

// Size returns an estimate, in bytes, of the owned metadata currently held
// (staging CSR if not yet released, plus every per-thread compressed block).
func (m *CSRMatrix[I, V]) Size() int {
	var idxSz, valSz int
	{
		var i I
		var v V
		idxSz = sizeofIndexValue(i)
		valSz = sizeofIndexValue(v)
	}
	total := 0
	if m.staging != nil {
		total += len(m.staging.RowPtr)*idxSz + len(m.staging.ColInd)*idxSz + len(m.staging.Values)*valSz
	}
	for _, b := range m.blocks {
		total += len(b.RowPtrL)*idxSz + len(b.ColIndL)*idxSz + len(b.ValuesL)*valSz
		total += len(b.Diagonal) * valSz
		total += len(b.RowPtrH)*idxSz + len(b.ColIndH)*idxSz + len(b.ValuesH)*valSz
	}
	return total
}

func sizeofIndexValue[T Index | Value](_ T) int {
	var zero T
	switch any(zero).(type) {
	case int32, float32:
		return 4
	case int64, float64:
		return 8
	default:
		return 8
	}
}

// Tune installs a kernel for subsequent DenseVectorMultiply calls.
// TuningNone installs the vanilla CSR kernel and discards any compressed
// representation. TuningAggressive builds the full symmetry-compressed
// pipeline for Config.Strategy. Tune reports whether an alternate (i.e.
// non-vanilla) code path was installed. Requesting symmetric compression on
// a matrix that was not constructed as symmetric falls back to the vanilla
// kernel and logs, per this package's configuration-error policy; it is not
// fatal.
func (m *CSRMatrix[I, V]) Tune(kernel Kernel, tuning Tuning) (bool, error) {
	if kernel != KernelSpMV {
		return false, fmt.Errorf("%w: unknown kernel %v", ErrConfiguration, kernel)
	}

	if tuning == TuningNone {
		m.blocks = nil
		m.graph = nil
		m.coloring = nil
		m.conflictMap = nil
		m.installed = StrategySerial
		m.tuned = true
		return false, nil
	}

	strategy := m.config.Strategy
	if strategy != StrategySerial && !m.symmetric {
		log.Printf("spmv: requested symmetric compression on a non-symmetric matrix; falling back to the general CSR kernel")
		strategy = StrategySerial
	}

	if strategy == StrategySerial {
		m.blocks = nil
		m.graph = nil
		m.coloring = nil
		m.conflictMap = nil
		m.installed = StrategySerial
		m.tuned = true
		return false, nil
	}

	relevant := rowLowerCounts(m.staging)
	if m.config.Hybrid {
		high := rowHighBandwidthCounts(m.staging, m.config.HybridThreshold)
		for i := range relevant {
			relevant[i] += high[i]
		}
	}
	rowSplit := partitionRows(m.nrows, m.config.Threads, m.config.BlkFactor, relevant)

	blocks, err := extractThreadBlocks(m.staging, rowSplit, m.config.Hybrid, m.config.HybridThreshold)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	}
	m.blocks = blocks
	m.installed = strategy

	switch strategy {
	case StrategyConflictFree:
		graph, err := buildConflictGraph(blocks, rowSplit, m.config.BlkFactor, m.nrows, m.config.Mode)
		if err != nil {
			return false, err
		}

		order := sequentialOrder(graph, m.config.Ordering)
		var col *Coloring
		switch {
		case m.config.Threads > 1:
			col = parallelColor(graph, m.config.Threads)
		case m.config.Ordering == OrderingFirstFitRoundRobin:
			col = bitmapGreedyColor(graph, order)
		default:
			col = sequentialGreedyColor(graph, order)
		}
		balanceColoring(graph, col, m.config.Threads, m.config.BalancingSteps)

		compileRanges(blocks, col, m.config.BlkFactor)
		if !m.config.UseBarrier {
			computeDeps(blocks, graph, col)
		}
		m.graph = graph
		m.coloring = col
	case StrategyLocalVectors:
		m.conflictMap = buildConflictMap(blocks, m.nrows)
	}

	m.tuned = true
	return true, nil
}

// DenseVectorMultiply computes y = A*x using the currently installed
// kernel. x must have length >= NCols() and is read-only; y must have
// length >= NRows() and is fully overwritten. Aliasing x and y is not
// supported. Tune must have succeeded at least once before calling this.
func (m *CSRMatrix[I, V]) DenseVectorMultiply(y, x []V) {
	if !m.tuned {
		panic("spmv: DenseVectorMultiply called before a successful Tune")
	}
	if len(x) < m.ncols || len(y) < m.nrows {
		panic("spmv: x or y shorter than the matrix dimension")
	}

	switch m.installed {
	case StrategySerial:
		ReferenceSpMV(m.staging, y, x)
	case StrategyConflictFree:
		if m.config.UseBarrier {
			runBarrierExecutor(m.pool, m.blocks, m.config.Hybrid, y, x)
		} else {
			runFineGrainedExecutor(m.pool, m.blocks, m.config.Hybrid, y, x)
		}
	case StrategyAtomics:
		runAtomicsExecutor(m.pool, m.blocks, m.config.Hybrid, y, x)
	case StrategyEffectiveRanges:
		runEffectiveRangesExecutor(m.pool, m.blocks, m.nrows, m.config.Hybrid, y, x)
	case StrategyLocalVectors:
		runLocalVectorsExecutor(m.pool, m.blocks, m.conflictMap, m.config.Hybrid, y, x)
	}
}

// Close releases the worker pool backing this matrix. It does not need to
// be called for correctness (goroutines are reclaimed by process exit) but
// should be called by any program that constructs many short-lived
// matrices.
func (m *CSRMatrix[I, V]) Close() {
	m.pool.Close()
}
