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
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// ConflictGraph is an undirected graph over row-blocks (vertex = block id,
// block size BlkFactor rows). Adjacent vertices may not share a color: the
// executor relies on that to avoid synchronizing within a color.
type ConflictGraph struct {
	BlkRows   int
	BlkFactor int
	Owner     []int // owner thread per vertex
	NNZ       []int // aggregate lower-triangular + high-bandwidth nnz per vertex, for balancing
	Adj       [][]int
}

// blockOwner records which thread owns a vertex, used by the indirect
// conflict scatter lists during construction.
type blockOwner struct {
	block int
	owner int
}

func blockOf(row, blkFactor int) int {
	return row / blkFactor
}

// buildConflictGraph constructs the conflict graph for a set of per-thread
// blocks already extracted from the staging CSR. mode selects whether
// same-thread vertex pairs are included in the indirect-conflict detection
// (ModeAPriori) or excluded (ModeAPosteriori, THE CORE's executor contract).
func buildConflictGraph[I Index, V Value](blocks []*ThreadBlock[I, V], rowSplit []int, blkFactor int, n int, mode BuildMode) (*ConflictGraph, error) {
	if blkFactor < 1 {
		blkFactor = 1
	}
	blkRows := (n + blkFactor - 1) / blkFactor

	owner := make([]int, blkRows)
	for t := 0; t < len(rowSplit)-1; t++ {
		startBlk := blockOf(rowSplit[t], blkFactor)
		endBlk := blkRows
		if t+1 < len(rowSplit)-1 {
			endBlk = blockOf(rowSplit[t+1], blkFactor)
		}
		for b := startBlk; b < endBlk && b < blkRows; b++ {
			owner[b] = t
		}
	}

	nnz := make([]int, blkRows)
	for t, blk := range blocks {
		for local := 0; local < blk.NRows; local++ {
			row := blk.Offset + local
			b := blockOf(row, blkFactor)
			cnt := int(blk.RowPtrL[local+1] - blk.RowPtrL[local])
			if blk.RowPtrH != nil {
				cnt += int(blk.RowPtrH[local+1] - blk.RowPtrH[local])
			}
			nnz[b] += cnt
			_ = t
		}
	}

	edgeSet := make(map[[2]int]struct{})
	var edgeMu sync.Mutex
	addEdge := func(u, v int) {
		if u == v {
			return
		}
		if u > v {
			u, v = v, u
		}
		edgeMu.Lock()
		edgeSet[[2]int{u, v}] = struct{}{}
		edgeMu.Unlock()
	}

	indirect := make([][]blockOwner, blkRows)
	var indirectMu sync.Mutex

	g := new(errgroup.Group)
	for t, blk := range blocks {
		t, blk := t, blk
		g.Go(func() error {
			prevBlkCol := -1
			for local := 0; local < blk.NRows; local++ {
				row := blk.Offset + local
				rowBlk := blockOf(row, blkFactor)
				for j := int(blk.RowPtrL[local]); j < int(blk.RowPtrL[local+1]); j++ {
					col := int(blk.ColIndL[j])
					colBlk := blockOf(col, blkFactor)

					// Direct: column belongs to an earlier thread's range.
					if col < blk.Offset {
						addEdge(rowBlk, colBlk)
					}
					if colBlk != prevBlkCol {
						indirectMu.Lock()
						indirect[colBlk] = append(indirect[colBlk], blockOwner{block: rowBlk, owner: t})
						indirectMu.Unlock()
						prevBlkCol = colBlk
					}
				}
				// High-bandwidth entries scatter into y[col] as well (computeColor).
				for j := 0; blk.RowPtrH != nil && j < int(blk.RowPtrH[local+1]-blk.RowPtrH[local]); j++ {
					col := int(blk.ColIndH[int(blk.RowPtrH[local])+j])
					colBlk := blockOf(col, blkFactor)
					if col < blk.Offset {
						addEdge(rowBlk, colBlk)
					}
					if colBlk != prevBlkCol {
						indirectMu.Lock()
						indirect[colBlk] = append(indirect[colBlk], blockOwner{block: rowBlk, owner: t})
						indirectMu.Unlock()
						prevBlkCol = colBlk
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Barrier: phase 2 only begins once every thread's scatter lists are complete.
	g2 := new(errgroup.Group)
	for t := range blocks {
		t := t
		lo, hi := rowSplit[t], rowSplit[t+1]
		loBlk, hiBlk := blockOf(lo, blkFactor), blkRows
		if hi < n {
			hiBlk = blockOf(hi, blkFactor)
		}
		g2.Go(func() error {
			for k := loBlk; k < hiBlk && k < blkRows; k++ {
				owners := indirect[k]
				for a := 0; a < len(owners); a++ {
					for b := a + 1; b < len(owners); b++ {
						r1, r2 := owners[a], owners[b]
						if r1.owner == r2.owner && mode == ModeAPosteriori {
							continue
						}
						if r1.block == r2.block {
							continue
						}
						addEdge(r1.block, r2.block)
					}
				}
			}
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		return nil, err
	}

	adj := make([][]int, blkRows)
	for e := range edgeSet {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	for b := range adj {
		adj[b] = lo.Uniq(adj[b])
	}

	return &ConflictGraph{
		BlkRows:   blkRows,
		BlkFactor: blkFactor,
		Owner:     owner,
		NNZ:       nnz,
		Adj:       adj,
	}, nil
}
