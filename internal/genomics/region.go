// Copyright 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package genomics contains definitions related to Genomic data.
package genomics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidInput is returned when a region or a region division request is
// malformed.
var ErrInvalidInput = errors.New("invalid region")

// Region defines a region of genomic interest.
type Region struct {
	// ReferenceName is the chromosome or contig the region lies on.
	ReferenceName string `json:"referenceName"`
	// Start and End specify the closed range (in 1-based base pairs) relative
	// to the reference.
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// NewRegion returns the region [start, end] on reference, or an error if the
// bounds do not describe a non-empty 1-based range.
func NewRegion(reference string, start, end uint64) (Region, error) {
	if reference == "" {
		return Region{}, fmt.Errorf("%w: empty reference name", ErrInvalidInput)
	}
	if start == 0 {
		return Region{}, fmt.Errorf("%w: start must be at least 1", ErrInvalidInput)
	}
	if start > end {
		return Region{}, fmt.Errorf("%w: start %d > end %d", ErrInvalidInput, start, end)
	}
	return Region{reference, start, end}, nil
}

// Contains reports whether position lies inside the region.
func (region Region) Contains(position uint64) bool {
	return region.Start <= position && position <= region.End
}

// Length returns the number of bases covered by the region.
func (region Region) Length() uint64 {
	return region.End - region.Start + 1
}

// String returns a representation of region that can be parsed with
// ParseRegion.
func (region Region) String() string {
	return fmt.Sprintf("%s:%d-%d", region.ReferenceName, region.Start, region.End)
}

// MaxCoordinate is the largest coordinate ParseRegion accepts; coordinates
// are stored as signed 64-bit integers.
const MaxCoordinate = math.MaxInt64

// ParseRegion parses input of the form "chr:start-end".  The reference name
// may itself contain colons; the last one separates the range.  Neither bound
// may exceed MaxCoordinate.
func ParseRegion(input string) (Region, error) {
	i := strings.LastIndexByte(input, ':')
	if i <= 0 {
		return Region{}, fmt.Errorf("%w: %q is not of the form chr:start-end", ErrInvalidInput, input)
	}
	reference, bounds := input[:i], input[i+1:]

	parts := strings.SplitN(bounds, "-", 2)
	if len(parts) != 2 {
		return Region{}, fmt.Errorf("%w: %q is not of the form chr:start-end", ErrInvalidInput, input)
	}
	start, err := strconv.ParseUint(parts[0], 10, 63)
	if err != nil {
		return Region{}, fmt.Errorf("%w: parsing start: %v", ErrInvalidInput, err)
	}
	end, err := strconv.ParseUint(parts[1], 10, 63)
	if err != nil {
		return Region{}, fmt.Errorf("%w: parsing end: %v", ErrInvalidInput, err)
	}
	return NewRegion(reference, start, end)
}
