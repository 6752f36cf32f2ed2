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
	"os"
	"runtime"
	"strconv"
)

// Default tuning constants, overridable per matrix via Config/Option.
const (
	// DefaultBlkFactor is the graph-coloring vertex granularity in rows.
	DefaultBlkFactor = 1

	// MaxThreads bounds the size of the done-flag matrix in fine-grained mode.
	MaxThreads = 28

	// MaxColors equals MaxThreads. The per-thread deps and done-flag arrays
	// are sized by the coloring's actual color count, not by this constant.
	MaxColors = MaxThreads

	// DefaultHybridThreshold is |col-row| at or above which an entry is
	// routed to the high-bandwidth CSR when hybrid splitting is enabled.
	DefaultHybridThreshold = 4000

	// DefaultBalancingSteps bounds the weighted load-balancing pass.
	DefaultBalancingSteps = 1
)

// Strategy selects which symmetric (or non-symmetric) kernel tune() installs.
type Strategy int

const (
	// StrategyConflictFree is the a posteriori conflict-free coloring strategy;
	// THE CORE of this package.
	StrategyConflictFree Strategy = iota
	// StrategySerial runs the vanilla CSR kernel on a single thread.
	StrategySerial
	// StrategyAtomics extracts per-thread as conflict-free does but resolves
	// cross-thread writes with an atomic compare-and-swap accumulation loop.
	StrategyAtomics
	// StrategyEffectiveRanges gives every thread, thread 0 included, a private
	// accumulator covering rows [0, end of its own range) and reduces
	// afterwards. Every write goes to the accumulator, including writes into
	// the thread's own rows.
	StrategyEffectiveRanges
	// StrategyLocalVectors is StrategyEffectiveRanges restricted to an explicit
	// sparse conflict map so the reduction only touches contended positions.
	StrategyLocalVectors
)

// Ordering selects the vertex visitation order used by the sequential colorer.
type Ordering int

const (
	// OrderingFirstFitRoundRobin interleaves vertices across thread partitions
	// in round-robin fashion; the default per §4.4.
	OrderingFirstFitRoundRobin Ordering = iota
	// OrderingNatural colors vertices in increasing vertex-id order.
	OrderingNatural
	// OrderingShortestRowFirst visits the vertex with the fewest stored
	// nonzeros first.
	OrderingShortestRowFirst
	// OrderingLongestRowFirst visits the vertex with the most stored nonzeros
	// first.
	OrderingLongestRowFirst
	// OrderingRoundRobinByWeight is a round-robin ordering across threads in
	// which each thread's own vertices are visited by ascending nonzero count.
	OrderingRoundRobinByWeight
)

// BuildMode selects which conflict-graph construction the builder performs.
type BuildMode int

const (
	// ModeAPosteriori excludes same-thread vertex pairs from indirect-conflict
	// detection. This is THE CORE's executor contract and the default.
	ModeAPosteriori BuildMode = iota
	// ModeAPriori includes same-thread pairs too; preserved only to mirror the
	// original implementation's alternate builder. Not wired into any executor.
	ModeAPriori
)

// Config carries every construction-time tunable. Zero value is not directly
// usable; build one with NewConfig.
type Config struct {
	Threads        int
	BlkFactor      int
	HybridThreshold int
	BalancingSteps int
	Hybrid         bool
	UseBarrier     bool
	Ordering       Ordering
	Mode           BuildMode
	Strategy       Strategy
}

// Option mutates a Config during NewConfig.
type Option func(*Config)

// WithThreads overrides the thread count (default: runtime.NumCPU(), or the
// SPMV_NO_PARALLEL environment override forcing a single thread).
func WithThreads(n int) Option { return func(c *Config) { c.Threads = n } }

// WithHybrid enables the bandwidth-split extraction and kernel.
func WithHybrid(enabled bool) Option { return func(c *Config) { c.Hybrid = enabled } }

// WithHybridThreshold overrides DefaultHybridThreshold.
func WithHybridThreshold(t int) Option { return func(c *Config) { c.HybridThreshold = t } }

// WithBarrier selects the barrier-synchronized executor (true) or the
// fine-grained point-to-point dependency-wait executor (false).
func WithBarrier(useBarrier bool) Option { return func(c *Config) { c.UseBarrier = useBarrier } }

// WithOrdering overrides the sequential colorer's vertex visitation order.
// It only takes effect when Threads == 1: with more than one thread, tune()
// always uses the parallel speculative colorer, which computes its own
// visitation order each round and ignores Ordering entirely.
func WithOrdering(o Ordering) Option { return func(c *Config) { c.Ordering = o } }

// WithBuildMode overrides the conflict-graph construction mode.
func WithBuildMode(m BuildMode) Option { return func(c *Config) { c.Mode = m } }

// WithStrategy overrides which kernel family tune() installs.
func WithStrategy(s Strategy) Option { return func(c *Config) { c.Strategy = s } }

// WithBlkFactor overrides DefaultBlkFactor.
func WithBlkFactor(b int) Option { return func(c *Config) { c.BlkFactor = b } }

// WithBalancingSteps overrides DefaultBalancingSteps.
func WithBalancingSteps(n int) Option { return func(c *Config) { c.BalancingSteps = n } }

// NewConfig resolves a Config from defaults, the SPMV_NO_PARALLEL environment
// variable, and the given options, in that order.
func NewConfig(opts ...Option) Config {
	c := Config{
		Threads:         defaultThreads(),
		BlkFactor:       DefaultBlkFactor,
		HybridThreshold: DefaultHybridThreshold,
		BalancingSteps:  DefaultBalancingSteps,
		UseBarrier:      true,
		Ordering:        OrderingFirstFitRoundRobin,
		Mode:            ModeAPosteriori,
		Strategy:        StrategyConflictFree,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Threads > MaxThreads {
		c.Threads = MaxThreads
	}
	return c
}

func defaultThreads() int {
	if noParallelEnv() {
		return 1
	}
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}

// noParallelEnv checks SPMV_NO_PARALLEL the way the host dispatch package
// checks HWY_NO_SIMD: any non-empty value is truthy unless it parses as a
// bool that says otherwise.
func noParallelEnv() bool {
	val := os.Getenv("SPMV_NO_PARALLEL")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}
