// Copyright 2017 Google Inc.
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

package bgzf

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"strings"
	"testing"

	biogo "github.com/biogo/hts/bgzf"
)

func TestEOFMarker(t *testing.T) {
	r, err := biogo.NewReader(bytes.NewReader(EOFMarker()), 0)
	if err != nil {
		t.Fatalf("NewReader() failed: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("EOF marker holds %d bytes of data", len(data))
	}
	if got, want := len(EOFMarker()), 28; got != want {
		t.Errorf("Wrong EOF marker length: got %d, want %d", got, want)
	}
}

func compress(t *testing.T, input []byte) []byte {
	t.Helper()
	var output bytes.Buffer
	w := NewWriter(&output)
	// Write in uneven pieces to exercise block boundaries.
	for rest := input; len(rest) > 0; {
		n := 7919
		if n > len(rest) {
			n = len(rest)
		}
		if _, err := w.Write(rest[:n]); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
		rest = rest[n:]
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	return output.Bytes()
}

func TestWriter(t *testing.T) {
	for _, size := range []int{0, 1000, 0xff00, 3*0x10000 + 17} {
		input := []byte(strings.Repeat("chr1\t12345\trs1\tA\tC\n", size/19+1)[:size])

		output := compress(t, input)
		if bytes.HasSuffix(output, eofMarker) {
			t.Errorf("Output for %d bytes ends with the EOF block", size)
		}

		r, err := biogo.NewReader(bytes.NewReader(append(output, eofMarker...)), 0)
		if err != nil {
			t.Fatalf("NewReader(%d bytes) failed: %v", size, err)
		}
		decoded, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("ReadAll(%d bytes) failed: %v", size, err)
		}
		if !bytes.Equal(decoded, input) {
			t.Errorf("Decoded data differs from input (%d vs %d bytes)", len(decoded), len(input))
		}
	}
}

func TestWriter_ConcatenatedStreams(t *testing.T) {
	header := []byte("##fileformat=VCFv4.2\n")
	records := []byte("1\t100\t.\tA\tG\t.\tPASS\t.\n")

	var output []byte
	output = append(output, compress(t, header)...)
	output = append(output, compress(t, records)...)
	output = append(output, EOFMarker()...)

	gzr, err := gzip.NewReader(bytes.NewReader(output))
	if err != nil {
		t.Fatalf("gzip.NewReader() failed: %v", err)
	}
	got, err := io.ReadAll(gzr)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if want := string(header) + string(records); string(got) != want {
		t.Errorf("Wrong content: got %q, want %q", got, want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriter_UnderlyingError(t *testing.T) {
	w := NewWriter(failingWriter{})
	w.Write([]byte("1\t100\t.\tA\tG\t.\tPASS\t.\n"))
	if err := w.Close(); err == nil {
		t.Error("Close() should report the write failure but didn't")
	}
}
