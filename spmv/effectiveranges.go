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

import "github.com/ajroetker/symspmv/internal/workerpool"

// runEffectiveRangesExecutor avoids both coloring and atomics by giving
// every thread a private accumulator covering its "effective range" — every
// global row index a cross-thread symmetric scatter from that thread could
// possibly touch, which is exactly [0, end) where end is one past the
// thread's last owned row, since the stored lower triangle never scatters
// to a column greater than its own row. Each thread writes only into its
// own accumulator, so the parallel phase itself needs no synchronization at
// all; a second pass then reduces every thread's accumulator additively
// into the shared y. This trades memory (T accumulators, each up to length
// n) for avoiding both the conflict-graph build and any per-write atomic.
func runEffectiveRangesExecutor[I Index, V Value](pool *workerpool.Pool, blocks []*ThreadBlock[I, V], n int, hybrid bool, y, x []V) {
	for i := range y {
		y[i] = 0
	}

	ends := make([]int, len(blocks))
	locals := make([][]V, len(blocks))
	for t, blk := range blocks {
		ends[t] = blk.Offset + blk.NRows
		locals[t] = make([]V, ends[t])
	}

	pool.ParallelFor(len(blocks), func(start, end int) {
		for t := start; t < end; t++ {
			blk := blocks[t]
			local := locals[t]
			seedDiagonal(local[blk.Offset:blk.Offset+blk.NRows], blk.Diagonal, x[blk.Offset:blk.Offset+blk.NRows])

			for r := 0; r < blk.NRows; r++ {
				row := blk.Offset + r
				var acc V
				for j := int(blk.RowPtrL[r]); j < int(blk.RowPtrL[r+1]); j++ {
					col := int(blk.ColIndL[j])
					val := blk.ValuesL[j]
					acc += val * x[col]
					local[col] += val * x[row]
				}
				if hybrid && blk.RowPtrH != nil {
					for j := int(blk.RowPtrH[r]); j < int(blk.RowPtrH[r+1]); j++ {
						col := int(blk.ColIndH[j])
						val := blk.ValuesH[j]
						acc += val * x[col]
						local[col] += val * x[row]
					}
				}
				local[row] += acc
			}
		}
	})

	pool.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			var sum V
			for t := range locals {
				if i < ends[t] {
					sum += locals[t][i]
				}
			}
			y[i] = sum
		}
	})
}
