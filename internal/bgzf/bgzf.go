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

// Package bgzf provides support for writing BGZF streams.
//
// Streams written by Writer are sequences of BGZF blocks without the
// terminating EOF block, so that the streams of a ticket can be concatenated
// and terminated once by the client.
package bgzf

import (
	"bytes"
	"encoding/base64"
	"io"

	biogo "github.com/biogo/hts/bgzf"
)

// EOFMarkerDataURL is a data URL holding the empty BGZF block that terminates
// a BGZF file.
const EOFMarkerDataURL = "data:;base64,H4sIBAAAAAAA/wYAQkMCABsAAwAAAAAAAAAAAA=="

var eofMarker = func() []byte {
	marker, err := base64.StdEncoding.DecodeString(EOFMarkerDataURL[len("data:;base64,"):])
	if err != nil {
		panic(err)
	}
	return marker
}()

// EOFMarker returns the bytes of the terminating empty block.
func EOFMarker() []byte {
	return append([]byte(nil), eofMarker...)
}

// Writer compresses everything written to it into BGZF blocks.  It must be
// closed to release its compression goroutine.
type Writer struct {
	bg *biogo.Writer
}

// NewWriter returns a Writer writing blocks to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bg: biogo.NewWriter(skipEmptyBlocks{w}, 1)}
}

// Write compresses p, emitting a block each time a full block of data is
// available.
func (w *Writer) Write(p []byte) (int, error) {
	return w.bg.Write(p)
}

// Close emits any buffered data as a final (possibly short) block and waits
// until every block has been written.  No EOF block is written.
func (w *Writer) Close() error {
	return w.bg.Close()
}

// skipEmptyBlocks drops blocks holding no data.  The underlying writer
// terminates its output with one on Close.
type skipEmptyBlocks struct {
	w io.Writer
}

func (s skipEmptyBlocks) Write(p []byte) (int, error) {
	if bytes.Equal(p, eofMarker) {
		return len(p), nil
	}
	return s.w.Write(p)
}
