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
	"github.com/ajroetker/symspmv/hwy"
)

// Index and Value are the configurable integer and floating-point types THE
// CORE is generic over. The public API and every internal type are
// parameterized, so 32- or 64-bit indices and float32 or float64 values can
// be selected by an embedding program (the tests use int32/float64). Value is defined in terms of
// hwy.Floats (rather than repeating the type list) so that every Value type
// argument is automatically usable with the hwy numeric kernels without a
// second, redundant constraint on call sites that need both.
type Index interface {
	~int32 | ~int64
}

type Value interface {
	hwy.Floats
}
