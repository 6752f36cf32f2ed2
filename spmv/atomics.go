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
	"sync/atomic"
	"unsafe"

	"github.com/ajroetker/symspmv/internal/workerpool"
)

// atomicAdd performs y[i] += delta as a CAS retry loop over the bit pattern
// of V, the only portable way to get a race-free float add without taking
// out a per-row lock. It costs a retry on genuine contention but needs no
// coloring, no dependency analysis and no conflict graph at all: every
// thread may run its full row range independently.
func atomicAdd[V Value](y []V, i int, delta V) {
	switch p := any(&y[i]).(type) {
	case *float32:
		addr := (*uint32)(unsafe.Pointer(p))
		d := float64(delta)
		for {
			old := atomic.LoadUint32(addr)
			neu := math.Float32bits(math.Float32frombits(old) + float32(d))
			if atomic.CompareAndSwapUint32(addr, old, neu) {
				return
			}
		}
	case *float64:
		addr := (*uint64)(unsafe.Pointer(p))
		d := float64(delta)
		for {
			old := atomic.LoadUint64(addr)
			neu := math.Float64bits(math.Float64frombits(old) + d)
			if atomic.CompareAndSwapUint64(addr, old, neu) {
				return
			}
		}
	default:
		panic("spmv: atomicAdd only supports float32 and float64 Value types")
	}
}

// runAtomicsExecutor computes one full SpMV by letting every thread process
// its entire row range with no synchronization beyond the atomic add used
// for the cross-thread y[col] scatter. It never needs a conflict graph,
// coloring, ranges or dependency analysis; the tradeoff is CAS retry cost
// under contention instead of the conflict-free strategy's zero-retry
// guarantee.
func runAtomicsExecutor[I Index, V Value](pool *workerpool.Pool, blocks []*ThreadBlock[I, V], hybrid bool, y, x []V) {
	pool.ParallelFor(len(blocks), func(start, end int) {
		for t := start; t < end; t++ {
			blk := blocks[t]
			seedDiagonal(y[blk.Offset:blk.Offset+blk.NRows], blk.Diagonal, x[blk.Offset:blk.Offset+blk.NRows])
		}
	})

	pool.ParallelFor(len(blocks), func(start, end int) {
		for t := start; t < end; t++ {
			blk := blocks[t]
			for local := 0; local < blk.NRows; local++ {
				row := blk.Offset + local
				var acc V
				for j := int(blk.RowPtrL[local]); j < int(blk.RowPtrL[local+1]); j++ {
					col := int(blk.ColIndL[j])
					val := blk.ValuesL[j]
					acc += val * x[col]
					atomicAdd(y, col, val*x[row])
				}
				if hybrid && blk.RowPtrH != nil {
					for j := int(blk.RowPtrH[local]); j < int(blk.RowPtrH[local+1]); j++ {
						col := int(blk.ColIndH[j])
						val := blk.ValuesH[j]
						acc += val * x[col]
						atomicAdd(y, col, val*x[row])
					}
				}
				atomicAdd(y, row, acc)
			}
		}
	})
}
