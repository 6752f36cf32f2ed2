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

// ConflictMap records, out of every row in the matrix, only the ones that
// actually receive a write from a thread that doesn't own them: Pos[k] is
// the global row index of the k-th contended position and CPU[k] is the
// thread that owns it. Everything else about SpMV's symmetric scatter is
// conflict-free by construction (a thread's own row range), so restricting
// the indirection to just these Length positions uses far less memory than
// giving every thread a full effective-range accumulator.
type ConflictMap struct {
	Length int
	Pos    []int
	CPU    []int
	slot   map[int]int // global row -> index into Pos/CPU, and into each thread's local buffer
}

// buildConflictMap scans every block's stored entries once to find rows
// written by a thread other than their owner, then assigns each one a
// compact slot shared by every thread's local buffer.
func buildConflictMap[I Index, V Value](blocks []*ThreadBlock[I, V], n int) *ConflictMap {
	owner := make([]int, n)
	for t, blk := range blocks {
		for i := blk.Offset; i < blk.Offset+blk.NRows; i++ {
			owner[i] = t
		}
	}

	contended := make(map[int]bool)
	for t, blk := range blocks {
		for local := 0; local < blk.NRows; local++ {
			for j := int(blk.RowPtrL[local]); j < int(blk.RowPtrL[local+1]); j++ {
				col := int(blk.ColIndL[j])
				if owner[col] != t {
					contended[col] = true
				}
			}
			if blk.RowPtrH != nil {
				for j := int(blk.RowPtrH[local]); j < int(blk.RowPtrH[local+1]); j++ {
					col := int(blk.ColIndH[j])
					if owner[col] != t {
						contended[col] = true
					}
				}
			}
		}
	}

	cm := &ConflictMap{
		Length: len(contended),
		Pos:    make([]int, 0, len(contended)),
		CPU:    make([]int, 0, len(contended)),
		slot:   make(map[int]int, len(contended)),
	}
	for row := range contended {
		cm.slot[row] = len(cm.Pos)
		cm.Pos = append(cm.Pos, row)
		cm.CPU = append(cm.CPU, owner[row])
	}
	return cm
}

// runLocalVectorsExecutor computes one full SpMV using per-thread local
// buffers sized only to cm.Length (the contended rows), rather than the
// full effective range every thread would need without the conflict map.
// Writes targeting a non-contended row are race-free by construction and go
// straight to y; writes targeting a contended row go into the writing
// thread's local slot, and a final reduction pass sums every thread's
// contribution for each contended row into y.
func runLocalVectorsExecutor[I Index, V Value](pool *workerpool.Pool, blocks []*ThreadBlock[I, V], cm *ConflictMap, hybrid bool, y, x []V) {
	locals := make([][]V, len(blocks))
	for t := range blocks {
		locals[t] = make([]V, cm.Length)
	}

	pool.ParallelFor(len(blocks), func(start, end int) {
		for t := start; t < end; t++ {
			blk := blocks[t]
			seedDiagonal(y[blk.Offset:blk.Offset+blk.NRows], blk.Diagonal, x[blk.Offset:blk.Offset+blk.NRows])
		}
	})

	pool.ParallelFor(len(blocks), func(start, end int) {
		for t := start; t < end; t++ {
			blk := blocks[t]
			local := locals[t]
			for r := 0; r < blk.NRows; r++ {
				row := blk.Offset + r
				var acc V
				for j := int(blk.RowPtrL[r]); j < int(blk.RowPtrL[r+1]); j++ {
					col := int(blk.ColIndL[j])
					val := blk.ValuesL[j]
					acc += val * x[col]
					if slot, ok := cm.slot[col]; ok {
						local[slot] += val * x[row]
					} else {
						y[col] += val * x[row]
					}
				}
				if hybrid && blk.RowPtrH != nil {
					for j := int(blk.RowPtrH[r]); j < int(blk.RowPtrH[r+1]); j++ {
						col := int(blk.ColIndH[j])
						val := blk.ValuesH[j]
						acc += val * x[col]
						if slot, ok := cm.slot[col]; ok {
							local[slot] += val * x[row]
						} else {
							y[col] += val * x[row]
						}
					}
				}
				if slot, ok := cm.slot[row]; ok {
					local[slot] += acc
				} else {
					y[row] += acc
				}
			}
		}
	})

	for k := 0; k < cm.Length; k++ {
		row := cm.Pos[k]
		var sum V
		for t := range locals {
			sum += locals[t][k]
		}
		y[row] += sum
	}
}
