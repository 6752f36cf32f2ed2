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

// Package spmv implements a shared-memory parallel engine for symmetric
// sparse matrix-dense vector multiplication. Reverse-Cuthill-McKee
// reordering is out of scope for this package: if a caller wants it, it
// must be applied to the raw (row, col, value) triples before they reach
// ReadMatrixMarket or BuildStagingCSR, since row order is assumed final
// from that point on.
package spmv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MMFResult is the outcome of parsing a Matrix Market file: dimensions, the
// triple stream (1-based coordinates already normalized to 0-based), and
// whether the header declared the matrix symmetric.
type MMFResult[I Index, V Value] struct {
	NRows     int
	NCols     int
	Symmetric bool
	Triples   []Triple[I, V]
}

// ReadMatrixMarket parses an ASCII Matrix Market stream. Only the "real
// symmetric" and "real general" kinds are supported; "pattern" bodies are
// accepted with every value defaulted to 1.
func ReadMatrixMarket[I Index, V Value](r io.Reader) (*MMFResult[I, V], error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("%w: empty matrix-market stream", ErrMalformedHeader)
	}
	header := strings.Fields(strings.ToLower(scanner.Text()))
	if len(header) < 5 || header[0] != "%%matrixmarket" || header[1] != "matrix" {
		return nil, fmt.Errorf("%w: missing or malformed %%%%MatrixMarket banner", ErrMalformedHeader)
	}
	format := header[2]
	if format != "coordinate" {
		return nil, fmt.Errorf("%w: unsupported storage format %q", ErrMalformedHeader, format)
	}
	field := header[3]
	if field != "real" && field != "pattern" {
		return nil, fmt.Errorf("%w: unsupported field type %q", ErrMalformedHeader, field)
	}
	isPattern := field == "pattern"

	symmetric := false
	switch header[4] {
	case "symmetric":
		symmetric = true
	case "general":
		symmetric = false
	default:
		return nil, fmt.Errorf("%w: unsupported symmetry kind %q", ErrMalformedHeader, header[4])
	}

	var nrows, ncols, nnz int
	haveDims := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: dimensions line must have 3 fields, got %q", ErrMalformedHeader, line)
		}
		var err error
		if nrows, err = strconv.Atoi(fields[0]); err != nil {
			return nil, fmt.Errorf("%w: bad row dimension: %v", ErrMalformedHeader, err)
		}
		if ncols, err = strconv.Atoi(fields[1]); err != nil {
			return nil, fmt.Errorf("%w: bad column dimension: %v", ErrMalformedHeader, err)
		}
		if nnz, err = strconv.Atoi(fields[2]); err != nil {
			return nil, fmt.Errorf("%w: bad nnz count: %v", ErrMalformedHeader, err)
		}
		haveDims = true
		break
	}
	if !haveDims {
		return nil, fmt.Errorf("%w: missing dimensions line", ErrMalformedHeader)
	}
	if symmetric && nrows != ncols {
		return nil, fmt.Errorf("%w: symmetric matrix must be square, got %dx%d", ErrInvariantViolation, nrows, ncols)
	}

	triples := make([]Triple[I, V], 0, nnz)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		fields := strings.Fields(line)
		wantFields := 3
		if isPattern {
			wantFields = 2
		}
		if len(fields) < wantFields {
			return nil, fmt.Errorf("%w: body line %q has too few fields", ErrMalformedHeader, line)
		}
		row, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: bad row index: %v", ErrMalformedHeader, err)
		}
		col, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad column index: %v", ErrMalformedHeader, err)
		}
		var val float64 = 1
		if !isPattern {
			val, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad value: %v", ErrMalformedHeader, err)
			}
		}
		if row < 1 || row > nrows || col < 1 || col > ncols {
			return nil, fmt.Errorf("%w: 1-based coordinate (%d,%d) out of range", ErrInvariantViolation, row, col)
		}
		triples = append(triples, Triple[I, V]{Row: I(row - 1), Col: I(col - 1), Val: V(val)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if len(triples) != nnz {
		return nil, fmt.Errorf("%w: header declared %d entries, found %d", ErrInvariantViolation, nnz, len(triples))
	}

	return &MMFResult[I, V]{NRows: nrows, NCols: ncols, Symmetric: symmetric, Triples: triples}, nil
}
