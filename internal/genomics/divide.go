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

package genomics

import (
	"errors"
	"fmt"
)

// MaxBlocks is the largest number of regions Divide returns.
const MaxBlocks = 1 << 20

// ErrTooManyBlocks is returned by Divide when a range holds more than
// MaxBlocks blocks.
var ErrTooManyBlocks = errors.New("too many blocks")

// BlockCount returns the number of regions Divide splits [start, end] into.
// The bounds must satisfy 1 <= start <= end and blockSize must be positive.
func BlockCount(start, end, blockSize uint64) uint64 {
	// end-start is at most math.MaxUint64-1 since start >= 1.
	return (end-start)/blockSize + 1
}

// Divide splits [start, end] on reference into consecutive regions of
// blockSize bases.  Only the last region may be shorter.  The regions are
// returned in ascending order and neither overlap nor leave gaps.
func Divide(reference string, start, end, blockSize uint64) ([]Region, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("%w: block size must be positive", ErrInvalidInput)
	}
	if _, err := NewRegion(reference, start, end); err != nil {
		return nil, err
	}

	count := BlockCount(start, end, blockSize)
	if count > MaxBlocks {
		return nil, fmt.Errorf("%w: %d blocks of %d bases, limit %d", ErrTooManyBlocks, count, blockSize, MaxBlocks)
	}
	regions := make([]Region, 0, count)
	for cursor := start; ; {
		last := end
		if end-cursor >= blockSize {
			last = cursor + blockSize - 1
		}
		regions = append(regions, Region{reference, cursor, last})
		if last == end {
			break
		}
		cursor = last + 1
	}
	return regions, nil
}
