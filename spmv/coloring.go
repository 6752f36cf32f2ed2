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
	"container/heap"
	"sort"

	"github.com/kelindar/bitmap"
)

// Coloring assigns every conflict-graph vertex a color in [0, NColors) such
// that no two adjacent vertices share one.
type Coloring struct {
	NColors int
	Color   []int
}

// sequentialOrder produces the vertex visitation order the sequential
// greedy colorer uses, per the Ordering selected in Config.
func sequentialOrder(g *ConflictGraph, ordering Ordering) []int {
	n := g.BlkRows
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	switch ordering {
	case OrderingNatural:
		return order
	case OrderingShortestRowFirst:
		sort.SliceStable(order, func(i, j int) bool { return g.NNZ[order[i]] < g.NNZ[order[j]] })
		return order
	case OrderingLongestRowFirst:
		sort.SliceStable(order, func(i, j int) bool { return g.NNZ[order[i]] > g.NNZ[order[j]] })
		return order
	case OrderingFirstFitRoundRobin, OrderingRoundRobinByWeight:
		return roundRobinByOwner(g, ordering == OrderingRoundRobinByWeight)
	default:
		return order
	}
}

// roundRobinByOwner interleaves vertices from different thread partitions:
// round 0 takes the first vertex of each thread in owner order, round 1 the
// second, and so on, so that color assignment doesn't exhaust low colors on
// one thread's partition before reaching another's. When byWeight is true,
// each thread's own vertex list is pre-sorted ascending by nnz so lighter
// vertices (more likely to find a free low color) go first.
func roundRobinByOwner(g *ConflictGraph, byWeight bool) []int {
	byThread := make(map[int][]int)
	for v := 0; v < g.BlkRows; v++ {
		t := g.Owner[v]
		byThread[t] = append(byThread[t], v)
	}
	threads := make([]int, 0, len(byThread))
	for t := range byThread {
		threads = append(threads, t)
	}
	sort.Ints(threads)
	if byWeight {
		for _, t := range threads {
			list := byThread[t]
			sort.SliceStable(list, func(i, j int) bool { return g.NNZ[list[i]] < g.NNZ[list[j]] })
		}
	}

	order := make([]int, 0, g.BlkRows)
	for round := 0; ; round++ {
		any := false
		for _, t := range threads {
			list := byThread[t]
			if round < len(list) {
				order = append(order, list[round])
				any = true
			}
		}
		if !any {
			break
		}
	}
	return order
}

// sequentialGreedyColor colors every vertex in order using the mark[]
// sentinel trick: mark[c] = step records that color c was seen as used by a
// neighbor of the vertex processed at step, so the array never needs
// resetting between vertices. Cost per vertex is O(deg(v)).
func sequentialGreedyColor(g *ConflictGraph, order []int) *Coloring {
	n := g.BlkRows
	color := make([]int, n)
	for i := range color {
		color[i] = -1
	}
	mark := make([]int, n+1)
	for i := range mark {
		mark[i] = -1
	}

	ncolors := 0
	for step, v := range order {
		for _, u := range g.Adj[v] {
			if color[u] >= 0 {
				mark[color[u]] = step
			}
		}
		c := 0
		for c < len(mark) && mark[c] == step {
			c++
		}
		color[v] = c
		if c+1 > ncolors {
			ncolors = c + 1
		}
	}
	return &Coloring{NColors: ncolors, Color: color}
}

// bitmapGreedyColor is a second, independently grounded implementation of
// the same sequential distance-1 greedy coloring operation, using
// bitmap.Bitmap.MinZero to find the smallest unused color among a vertex's
// already-colored neighbors instead of the mark[] sentinel array.
func bitmapGreedyColor(g *ConflictGraph, order []int) *Coloring {
	n := g.BlkRows
	color := make([]int, n)
	for i := range color {
		color[i] = -1
	}

	ncolors := 0
	for _, v := range order {
		var used bitmap.Bitmap
		for _, u := range g.Adj[v] {
			if color[u] >= 0 {
				x := uint32(color[u])
				used.Grow(x + 1)
				used.Set(x)
			}
		}
		c, _ := used.MinZero()
		color[v] = int(c)
		if int(c)+1 > ncolors {
			ncolors = int(c) + 1
		}
	}
	return &Coloring{NColors: ncolors, Color: color}
}

// parallelColor is the Jones-Plassmann-style speculative colorer: every
// round, every still-uncolored vertex tentatively picks the smallest color
// not used by any already-committed neighbor; conflicting vertices (two
// same-colored adjacent vertices tentatively colored in the same round) are
// reset to uncolored and retried next round. Terminates once the worklist
// empties, which is guaranteed because the higher-indexed endpoint of any
// conflicting pair keeps its color, so the highest-indexed vertex of every
// round's worklist always commits.
func parallelColor(g *ConflictGraph, threads int) *Coloring {
	n := g.BlkRows
	const uncolored = -1
	color := make([]int, n)
	for i := range color {
		color[i] = uncolored
	}

	worklist := make([]int, n)
	for i := range worklist {
		worklist[i] = i
	}

	for len(worklist) > 0 {
		tentative := make([]int, len(worklist))
		for idx, v := range worklist {
			used := make(map[int]bool, len(g.Adj[v]))
			for _, u := range g.Adj[v] {
				if color[u] != uncolored {
					used[color[u]] = true
				}
			}
			c := 0
			for used[c] {
				c++
			}
			tentative[idx] = c
		}
		for idx, v := range worklist {
			color[v] = tentative[idx]
		}

		next := worklist[:0:0]
		for _, v := range worklist {
			conflict := false
			for _, u := range g.Adj[v] {
				if u > v && color[u] == color[v] {
					conflict = true
					break
				}
			}
			if conflict {
				color[v] = uncolored
				next = append(next, v)
			}
		}
		worklist = next
	}

	ncolors := 0
	for _, c := range color {
		if c+1 > ncolors {
			ncolors = c + 1
		}
	}
	return &Coloring{NColors: ncolors, Color: color}
}

// balanceColoring runs up to steps full passes redistributing the heaviest
// vertices of each thread's most-loaded color into whichever other color is
// both least loaded for that thread and not forbidden by the vertex's
// neighbors. It never violates the coloring invariant: a vertex is only
// ever moved to a color none of its neighbors hold.
func balanceColoring(g *ConflictGraph, col *Coloring, threads, steps int) {
	if steps <= 0 || col.NColors <= 1 {
		return
	}

	for step := 0; step < steps; step++ {
		moved := false
		for t := 0; t < threads; t++ {
			load := make([]int, col.NColors)
			byColor := make([][]WeightedVertex, col.NColors)
			for v := 0; v < g.BlkRows; v++ {
				if g.Owner[v] != t {
					continue
				}
				c := col.Color[v]
				load[c] += g.NNZ[v]
				byColor[c] = append(byColor[c], WeightedVertex{VID: v, TID: t, NNZ: g.NNZ[v]})
			}

			total, maxC := 0, 0
			for c, l := range load {
				total += l
				if l > load[maxC] {
					maxC = c
				}
			}
			mean := 0
			if col.NColors > 0 {
				mean = total / col.NColors
			}
			if load[maxC]-mean <= 0 {
				continue
			}

			h := weightedVertexHeap(byColor[maxC])
			heap.Init(&h)
			if h.Len() == 0 {
				continue
			}
			heaviest := heap.Pop(&h).(WeightedVertex)

			forbidden := make(map[int]bool, len(g.Adj[heaviest.VID]))
			for _, u := range g.Adj[heaviest.VID] {
				forbidden[col.Color[u]] = true
			}
			bestColor, bestLoad := -1, 0
			for c := 0; c < col.NColors; c++ {
				if c == maxC || forbidden[c] {
					continue
				}
				if bestColor == -1 || load[c] < bestLoad {
					bestColor, bestLoad = c, load[c]
				}
			}
			if bestColor == -1 || bestLoad >= load[maxC] {
				continue
			}
			col.Color[heaviest.VID] = bestColor
			moved = true
		}
		if !moved {
			break
		}
	}
}
