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

import "sort"

// compileRanges fills RangePtr/RangeStart/RangeEnd on every block: for each
// color, the local rows (relative to blk.Offset) whose row-block has that
// color are coalesced into maximal runs of consecutive integers.
func compileRanges[I Index, V Value](blocks []*ThreadBlock[I, V], col *Coloring, blkFactor int) {
	for t, blk := range blocks {
		byColor := make([][]int, col.NColors)
		for local := 0; local < blk.NRows; local++ {
			row := blk.Offset + local
			b := blockOf(row, blkFactor)
			c := col.Color[b]
			byColor[c] = append(byColor[c], local)
		}

		rangePtr := make([]int, col.NColors+1)
		var starts, ends []int
		for c := 0; c < col.NColors; c++ {
			rows := byColor[c]
			sort.Ints(rows)
			for i := 0; i < len(rows); {
				s := rows[i]
				e := s
				for i+1 < len(rows) && rows[i+1] == e+1 {
					i++
					e = rows[i]
				}
				starts = append(starts, s)
				ends = append(ends, e)
				i++
			}
			rangePtr[c+1] = len(starts)
		}

		blk.RangePtr = rangePtr
		blk.RangeStart = starts
		blk.RangeEnd = ends
		blk.NColors = col.NColors
		_ = t
	}
}
