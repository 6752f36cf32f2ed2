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

//go:build amd64

package hwy

// Without GOEXPERIMENT=simd there is no archsimd CPU detection available,
// so amd64 builds report the scalar dispatch level. The currentWidth is
// still set to a plausible AVX2 lane width so callers sizing buffers with
// MaxLanes get sensible batch sizes even though the loop body is scalar.
func init() {
	if NoSimdEnv() {
		setScalarMode()
		return
	}
	setScalarMode()
}

func setScalarMode() {
	currentLevel = DispatchScalar
	currentWidth = 32
	currentName = "scalar"
}
