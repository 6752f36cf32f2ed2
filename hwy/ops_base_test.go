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

package hwy

import "testing"

func TestAddMul(t *testing.T) {
	a := Load([]float64{1, 2, 3, 4})
	b := Load([]float64{10, 20, 30, 40})

	sum := Add(a, b)
	if got := ReduceSum(sum); got != 110 {
		t.Errorf("ReduceSum(Add) = %v, want 110", got)
	}

	prod := Mul(a, b)
	if got := ReduceSum(prod); got != 10+40+90+160 {
		t.Errorf("ReduceSum(Mul) = %v, want %v", got, 10+40+90+160)
	}
}

func TestFMA(t *testing.T) {
	a := Load([]float32{1, 2, 3})
	b := Load([]float32{4, 5, 6})
	c := Load([]float32{1, 1, 1})

	got := FMA(a, b, c)
	want := []float32{1*4 + 1, 2*5 + 1, 3*6 + 1}
	for i, w := range want {
		if got.data[i] != w {
			t.Errorf("FMA[%d] = %v, want %v", i, got.data[i], w)
		}
	}
}

func TestZeroAndSet(t *testing.T) {
	z := Zero[float64]()
	if ReduceSum(z) != 0 {
		t.Errorf("ReduceSum(Zero) = %v, want 0", ReduceSum(z))
	}

	s := Set(float64(3))
	for _, v := range s.data {
		if v != 3 {
			t.Errorf("Set lane = %v, want 3", v)
		}
	}
}

func TestStoreTruncatesToDest(t *testing.T) {
	v := Load([]int32{1, 2, 3, 4})
	dst := make([]int32, 2)
	Store(v, dst)
	if dst[0] != 1 || dst[1] != 2 {
		t.Errorf("Store truncated wrong: %v", dst)
	}
}
