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

// Package workerpool provides a persistent, fixed-size goroutine pool for
// data-parallel loops. It is spawned once per matrix instance and reused
// across every dense_vector_multiply call, so the
// per-invocation cost of a parallel region is a channel send rather than a
// goroutine spawn.
package workerpool

import (
	"sync"
	"sync/atomic"
)

// Pool is a fixed-size set of long-lived worker goroutines.
type Pool struct {
	tasks     chan func()
	wg        sync.WaitGroup
	n         int
	closeOnce sync.Once
	done      chan struct{}
}

// New starts n worker goroutines. n is clamped to at least 1.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		tasks: make(chan func()),
		n:     n,
		done:  make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for {
		select {
		case fn := <-p.tasks:
			fn()
		case <-p.done:
			return
		}
	}
}

// NumWorkers returns the number of goroutines backing the pool.
func (p *Pool) NumWorkers() int {
	return p.n
}

// Close stops all workers. It is not safe to submit work after Close returns.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// ParallelFor partitions [0, total) into min(NumWorkers(), total) contiguous
// chunks (the first total%chunks chunks get one extra index) and runs
// fn(start, end) for each chunk on a pool worker, blocking until every chunk
// completes.
//
// Calling ParallelFor(NumWorkers(), fn) — the shape THE CORE's executor
// uses — collapses each chunk to a single index, giving fn one invocation
// per thread for the lifetime of the call.
func (p *Pool) ParallelFor(total int, fn func(start, end int)) {
	if total <= 0 {
		return
	}
	workers := p.n
	if workers > total {
		workers = total
	}
	chunk := total / workers
	rem := total % workers

	p.wg.Add(workers)
	start := 0
	for w := 0; w < workers; w++ {
		size := chunk
		if w < rem {
			size++
		}
		s, e := start, start+size
		start = e
		p.tasks <- func() {
			defer p.wg.Done()
			fn(s, e)
		}
	}
	p.wg.Wait()
}

// ParallelForAtomic hands out single indices in [0, total) to whichever
// worker asks next, via a shared atomic counter. Useful when per-index work
// is uneven and static chunking (ParallelFor) would leave workers idle.
func (p *Pool) ParallelForAtomic(total int, fn func(i int)) {
	if total <= 0 {
		return
	}
	var next atomic.Int64
	workers := p.n
	if workers > total {
		workers = total
	}
	p.wg.Add(workers)
	for w := 0; w < workers; w++ {
		p.tasks <- func() {
			defer p.wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= total {
					return
				}
				fn(i)
			}
		}
	}
	p.wg.Wait()
}
