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

// WeightedVertex is a row-block vertex annotated with the data the
// balancing pass prioritizes by: its owning thread and its aggregate
// nonzero weight.
type WeightedVertex struct {
	VID   int
	TID   int
	NNZ   int
}

// lessWeighted orders a balancing-pass priority queue by descending NNZ, so
// popping the front always yields the heaviest remaining vertex.
//
// The original implementation's CompareWeightedVertex literally compares
// VID in descending order, but its own comment describes ordering by
// weight — nnz-based ordering is what actually improves balance, so that is
// what this implementation does; see DESIGN.md for the reasoning.
func lessWeighted(a, b WeightedVertex) bool {
	if a.NNZ != b.NNZ {
		return a.NNZ > b.NNZ
	}
	return a.VID < b.VID
}

// weightedVertexHeap is a binary max-heap (by lessWeighted) over
// WeightedVertex, used by the per-color balancing pass.
type weightedVertexHeap []WeightedVertex

func (h weightedVertexHeap) Len() int            { return len(h) }
func (h weightedVertexHeap) Less(i, j int) bool  { return lessWeighted(h[i], h[j]) }
func (h weightedVertexHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *weightedVertexHeap) Push(x interface{}) { *h = append(*h, x.(WeightedVertex)) }
func (h *weightedVertexHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
