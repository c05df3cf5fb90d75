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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegion(t *testing.T) {
	testCases := []struct {
		input string
		want  Region
	}{
		{"1:3000000-3000999", Region{"1", 3000000, 3000999}},
		{"chrX:1-1", Region{"chrX", 1, 1}},
		{"HLA-A*01:01:01:01:10-20", Region{"HLA-A*01:01:01:01", 10, 20}},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseRegion(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.input, got.String())
		})
	}
}

func TestParseRegion_Errors(t *testing.T) {
	for _, input := range []string{
		"",
		"1",
		":1-10",
		"1:10",
		"1:a-10",
		"1:10-b",
		"1:20-10",
		"1:0-10",
		"1:-5-10",
		"1:1-9223372036854775808",
		"1:1-18446744073709551615",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseRegion(input)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got error %v", err)
		})
	}
}

func TestParseRegion_MaxCoordinate(t *testing.T) {
	got, err := ParseRegion("1:1-9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, Region{"1", 1, MaxCoordinate}, got)
}

func TestRegion_Contains(t *testing.T) {
	region := Region{"1", 10, 20}
	assert.False(t, region.Contains(9))
	assert.True(t, region.Contains(10))
	assert.True(t, region.Contains(20))
	assert.False(t, region.Contains(21))
	assert.Equal(t, uint64(11), region.Length())
}
