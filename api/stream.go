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

package api

import (
	"bufio"
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/googlegenomics/vcf-htsget/internal/analytics"
	"github.com/googlegenomics/vcf-htsget/internal/bgzf"
	"github.com/googlegenomics/vcf-htsget/internal/genomics"
	"github.com/googlegenomics/vcf-htsget/internal/store"
	"github.com/googlegenomics/vcf-htsget/internal/tenant"
	"github.com/googlegenomics/vcf-htsget/internal/vcf"
)

const streamBufferSize = 64 * 1024

// streamRequest holds the parameters of a header or block request.
type streamRequest struct {
	species string
	studies []string
	region  genomics.Region
}

func newStreamRequest(c *gin.Context, withRegion bool) (*streamRequest, error) {
	query := c.Request.URL.Query()
	req := &streamRequest{
		species: query.Get("species"),
		studies: parseStudies(query["studies"]),
	}
	if req.species == "" {
		return nil, newInvalidInputError(errMissingSpecies)
	}
	if len(req.studies) == 0 {
		return nil, newInvalidInputError(errMissingStudies)
	}
	if withRegion {
		raw := query.Get("region")
		if raw == "" {
			return nil, newInvalidInputError(errMissingRegion)
		}
		region, err := genomics.ParseRegion(raw)
		if err != nil {
			return nil, newInvalidInputError(err)
		}
		req.region = region
	}
	return req, nil
}

func (server *Server) serveHeaders(c *gin.Context) {
	analytics.TrackerFromContext(c.Request.Context())(analytics.Event("Variants", "Headers Request Received", "", nil))

	req, err := newStreamRequest(c, false)
	if err != nil {
		writeError(c.Writer, err)
		return
	}
	ctx := tenant.NewContext(c.Request.Context(), server.resolver.Resolve(req.species))

	header, err := server.header(ctx, req.studies)
	if err != nil {
		writeError(c.Writer, err)
		return
	}

	body := server.newBody(c.Writer, server.filename(req))
	if _, err := header.WriteTo(body); err != nil {
		server.fail(ctx, c.Writer, body, err)
		return
	}
	if err := body.Close(); err != nil {
		server.fail(ctx, c.Writer, body, err)
	}
}

func (server *Server) serveBlock(c *gin.Context) {
	track := analytics.TrackerFromContext(c.Request.Context())
	track(analytics.Event("Variants", "Block Request Received", "", nil))

	req, err := newStreamRequest(c, true)
	if err != nil {
		writeError(c.Writer, err)
		return
	}
	ctx := tenant.NewContext(c.Request.Context(), server.resolver.Resolve(req.species))

	header, err := server.header(ctx, req.studies)
	if err != nil {
		writeError(c.Writer, err)
		return
	}

	var count int64
	body := server.newBody(c.Writer, server.filename(req))
	err = server.gateway.Records(ctx, req.region, req.studies, func(v *store.Variant) error {
		count++
		return header.WriteRecord(body, v)
	})
	if err == nil {
		err = body.Close()
	}
	if err != nil {
		server.fail(ctx, c.Writer, body, err)
		return
	}
	track(analytics.Event("Variants", "Block Record Count", req.species, &count))
}

// header checks that the species and studies exist and returns the header
// their records are written with.
func (server *Server) header(ctx context.Context, studies []string) (*vcf.Header, error) {
	if err := server.checkAvailable(ctx, studies); err != nil {
		return nil, err
	}
	sources, err := server.gateway.Sources(ctx, studies)
	if err != nil {
		return nil, storeError("reading sources", err)
	}
	return vcf.NewHeader(sources), nil
}

// fail reports err to the client.  Once part of the body has been sent the
// response cannot be turned into an error any more, so the connection is
// aborted instead.
func (server *Server) fail(ctx context.Context, w http.ResponseWriter, body *body, err error) {
	if !body.abort() {
		writeError(w, storeError("streaming", err))
		return
	}
	server.log(ctx).Warn().Err(err).Msg("aborting stream")
	panic(http.ErrAbortHandler)
}

func (server *Server) log(ctx context.Context) *zerolog.Logger {
	if logger := zerolog.Ctx(ctx); logger.GetLevel() != zerolog.Disabled {
		return logger
	}
	return &server.logger
}

// filename returns the name clients should save a stream for req as.
func (server *Server) filename(req *streamRequest) string {
	name := req.species + "_" + strings.Join(req.studies, "_") + ".vcf"
	if server.compress {
		name += ".gz"
	}
	return name
}

// body is a streamed response body.  Output is buffered and, if enabled,
// BGZF compressed; the response headers are sent with the first byte.
type body struct {
	out  *deferredWriter
	buf  *bufio.Writer
	bgzf *bgzf.Writer
}

func (server *Server) newBody(w http.ResponseWriter, filename string) *body {
	b := &body{out: &deferredWriter{w: w, filename: filename}}
	var dst io.Writer = b.out
	if server.compress {
		b.bgzf = bgzf.NewWriter(b.out)
		dst = b.bgzf
	}
	b.buf = bufio.NewWriterSize(dst, streamBufferSize)
	return b
}

func (b *body) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

// Close flushes all buffered output.  The response headers are sent even if
// the body is empty.
func (b *body) Close() error {
	if err := b.buf.Flush(); err != nil {
		return err
	}
	if b.bgzf != nil {
		if err := b.bgzf.Close(); err != nil {
			return err
		}
	}
	b.out.commit()
	return nil
}

// abort discards any output not yet sent and reports whether the response
// was already committed.
func (b *body) abort() bool {
	b.out.discard()
	if b.bgzf != nil {
		b.bgzf.Close()
	}
	return b.out.isCommitted()
}

// deferredWriter writes the response status and headers on the first write.
// Compressed blocks are written from the compressor's goroutine.
type deferredWriter struct {
	w        http.ResponseWriter
	filename string

	mu        sync.Mutex
	committed bool
	discarded bool
}

func (d *deferredWriter) commit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commitLocked()
}

func (d *deferredWriter) commitLocked() {
	if d.committed || d.discarded {
		return
	}
	d.committed = true
	header := d.w.Header()
	header.Set("Content-Type", "application/octet-stream")
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.filename}))
	d.w.WriteHeader(http.StatusOK)
}

func (d *deferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.discarded {
		return len(p), nil
	}
	d.commitLocked()
	return d.w.Write(p)
}

func (d *deferredWriter) discard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.discarded = true
}

func (d *deferredWriter) isCommitted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}
