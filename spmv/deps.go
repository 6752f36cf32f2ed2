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

// computeDeps fills Deps[c] on every block for the fine-grained
// (non-barrier) executor: deps[t][c] is the set of other threads whose
// color c-1 work thread t must observe finishing before starting color c.
// It is derived once per tune() from the conflict graph: an edge (u,v)
// with owner(u)=t, owner(v)=t', color(u)=c, color(v)=c-1 means t depends on
// t' at color c.
func computeDeps[I Index, V Value](blocks []*ThreadBlock[I, V], g *ConflictGraph, col *Coloring) {
	perThreadDeps := make([]map[int]map[int]bool, len(blocks)) // [thread][color] -> set of threads
	for t := range perThreadDeps {
		perThreadDeps[t] = make(map[int]map[int]bool)
	}

	for u := 0; u < g.BlkRows; u++ {
		cu := col.Color[u]
		tu := g.Owner[u]
		for _, v := range g.Adj[u] {
			cv := col.Color[v]
			tv := g.Owner[v]
			if tu == tv {
				continue
			}
			if cu == cv+1 {
				if perThreadDeps[tu][cu] == nil {
					perThreadDeps[tu][cu] = make(map[int]bool)
				}
				perThreadDeps[tu][cu][tv] = true
			}
		}
	}

	for t, blk := range blocks {
		blk.Deps = make([][]int, col.NColors)
		for c := 0; c < col.NColors; c++ {
			for tv := range perThreadDeps[t][c] {
				blk.Deps[c] = append(blk.Deps[c], tv)
			}
		}
	}
}
