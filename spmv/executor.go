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
	"sync/atomic"
	"time"

	"github.com/ajroetker/symspmv/hwy"
	"github.com/ajroetker/symspmv/internal/workerpool"
)

// doneFlags is a per-SpMV-invocation T x ncolors matrix of atomic booleans,
// owned by this call's executor rather than a process-wide global: nothing
// stops two CSRMatrix instances in the same process from running
// concurrently, each with its own flag matrix.
type doneFlags struct {
	flags [][]atomic.Bool
}

func newDoneFlags(threads, ncolors int) *doneFlags {
	d := &doneFlags{flags: make([][]atomic.Bool, threads)}
	for t := range d.flags {
		d.flags[t] = make([]atomic.Bool, ncolors)
	}
	return d
}

// seedDiagonal computes y[i] = diag[i]*x[i] for a thread's contiguous row
// range. diag, x and y here are all aligned and contiguous (x is sliced at
// the thread's row offset), so unlike the sparse dot products below this is
// genuinely vectorizable: it is written with the same lane-blocked-loop
// plus scalar-tail shape as the dense kernels this module's numeric package
// provides elsewhere.
func seedDiagonal[V Value](y, diag, x []V) {
	n := len(diag)
	lanes := hwy.MaxLanes[V]()
	if lanes < 1 {
		lanes = 1
	}
	i := 0
	for ; i+lanes <= n; i += lanes {
		d := hwy.Load(diag[i : i+lanes])
		xv := hwy.Load(x[i : i+lanes])
		hwy.Store(hwy.Mul(d, xv), y[i:i+lanes])
	}
	for ; i < n; i++ {
		y[i] = diag[i] * x[i]
	}
}

// computeColor performs one color's worth of two-sided symmetric updates
// for a single thread's block: for every range in the color, for every
// local row, accumulate the row's own contribution into y_tmp while also
// scattering val*x[row] into y[col] for every stored lower-triangular
// entry — the scatter is race-free because the coloring guarantees no
// other thread writes the same y position during this color.
func computeColor[I Index, V Value](blk *ThreadBlock[I, V], color int, y, x []V, hybrid bool) {
	for r := blk.RangePtr[color]; r < blk.RangePtr[color+1]; r++ {
		for local := blk.RangeStart[r]; local <= blk.RangeEnd[r]; local++ {
			row := blk.Offset + local
			var acc V
			for j := int(blk.RowPtrL[local]); j < int(blk.RowPtrL[local+1]); j++ {
				col := int(blk.ColIndL[j])
				val := blk.ValuesL[j]
				acc += val * x[col]
				y[col] += val * x[row]
			}
			if hybrid && blk.RowPtrH != nil {
				for j := int(blk.RowPtrH[local]); j < int(blk.RowPtrH[local+1]); j++ {
					col := int(blk.ColIndH[j])
					val := blk.ValuesH[j]
					acc += val * x[col]
					y[col] += val * x[row]
				}
			}
			y[row] += acc
		}
	}
}

// runBarrierExecutor runs the full SpMV with a global barrier between
// colors. Each pool.ParallelFor call is itself a barrier: it does not
// return until every thread's chunk of that phase has completed, so the
// color loop's synchronization comes for free from calling it once per
// color.
func runBarrierExecutor[I Index, V Value](pool *workerpool.Pool, blocks []*ThreadBlock[I, V], hybrid bool, y, x []V) {
	pool.ParallelFor(len(blocks), func(start, end int) {
		for t := start; t < end; t++ {
			blk := blocks[t]
			seedDiagonal(y[blk.Offset:blk.Offset+blk.NRows], blk.Diagonal, x[blk.Offset:blk.Offset+blk.NRows])
		}
	})

	ncolors := 0
	for _, blk := range blocks {
		if blk.NColors > ncolors {
			ncolors = blk.NColors
		}
	}

	for c := 0; c < ncolors; c++ {
		c := c
		pool.ParallelFor(len(blocks), func(start, end int) {
			for t := start; t < end; t++ {
				blk := blocks[t]
				if c < blk.NColors {
					computeColor(blk, c, y, x, hybrid)
				}
			}
		})
	}
}

// runFineGrainedExecutor seeds y from the diagonal in one
// pool.ParallelFor(threads, ...) call, then runs every color in a second,
// single parallel region in which each thread runs its entire multi-color
// loop independently, synchronizing with other threads only by
// spin-waiting on the threads it actually depends on for the previous
// color (computeDeps), not a process-wide barrier. done publishes with
// release semantics (atomic.Bool.Store); dependents spin on Load, which is
// an acquire — together they establish the happens-before every write to y
// in color c-1 needs before color c's readers begin.
func runFineGrainedExecutor[I Index, V Value](pool *workerpool.Pool, blocks []*ThreadBlock[I, V], hybrid bool, y, x []V) {
	ncolors := 0
	for _, blk := range blocks {
		if blk.NColors > ncolors {
			ncolors = blk.NColors
		}
	}
	done := newDoneFlags(len(blocks), ncolors)

	pool.ParallelFor(len(blocks), func(start, end int) {
		for t := start; t < end; t++ {
			blk := blocks[t]
			seedDiagonal(y[blk.Offset:blk.Offset+blk.NRows], blk.Diagonal, x[blk.Offset:blk.Offset+blk.NRows])
		}
	})

	pool.ParallelFor(len(blocks), func(start, end int) {
		for t := start; t < end; t++ {
			blk := blocks[t]
			for c := 0; c < blk.NColors; c++ {
				if c > 0 {
					for _, dep := range blk.Deps[c] {
						for !done.flags[dep][c-1].Load() {
							time.Sleep(0)
						}
					}
				}
				computeColor(blk, c, y, x, hybrid)
				done.flags[t][c].Store(true)
			}
		}
	})
}
