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
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/googlegenomics/vcf-htsget/internal/analytics"
	"github.com/googlegenomics/vcf-htsget/internal/bgzf"
	"github.com/googlegenomics/vcf-htsget/internal/genomics"
	"github.com/googlegenomics/vcf-htsget/internal/tenant"
)

// Ticket tells a client how to retrieve a dataset.  Blocks lists the
// regions to fetch from the block endpoint, in order; URLs lists every URL
// to fetch, header first.
type Ticket struct {
	Format        string            `json:"format"`
	URLBase       string            `json:"urlBase"`
	ContextPath   string            `json:"contextPath"`
	ID            string            `json:"id"`
	ReferenceName string            `json:"referenceName"`
	Species       string            `json:"species"`
	Blocks        []genomics.Region `json:"blocks"`
	URLs          []URL             `json:"urls"`
}

// URL is one entry of a ticket's URL list.
type URL struct {
	URL   string `json:"url"`
	Class string `json:"class,omitempty"`
}

func (server *Server) serveTicket(c *gin.Context) {
	ctx := c.Request.Context()

	track := analytics.TrackerFromContext(ctx)
	track(analytics.Event("Variants", "Ticket Request Received", "", nil))

	req := newExportRequest(c)
	ticket, err := server.buildTicket(ctx, req, baseURL(c.Request))
	if err != nil {
		track(analytics.Event("Variants", "Ticket Error", errorName(err), nil))
		writeError(c.Writer, err)
		return
	}

	writeJSON(c.Writer, http.StatusOK, map[string]interface{}{"htsget": ticket})

	count := int64(len(ticket.Blocks))
	track(analytics.Event("Variants", "Ticket Block Count", req.species, &count))
}

// buildTicket validates req, resolves its range against the variant store
// and divides the range into blocks.  base is the scheme and host the
// ticket's URLs point at.
func (server *Server) buildTicket(ctx context.Context, req *exportRequest, base string) (*Ticket, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	t := server.resolver.Resolve(req.species)
	ctx = tenant.NewContext(ctx, t)
	zerolog.Ctx(ctx).Debug().Str("tenant", t.Database).Str("reference", req.referenceName).Msg("building ticket")

	var start, end uint64
	if req.start != nil {
		start = *req.start
	} else {
		first, ok, err := server.gateway.FirstVariantCoordinate(ctx, req.referenceName, req.studies)
		if err != nil {
			return nil, storeError("resolving start", err)
		}
		if !ok {
			return nil, newNotFoundError(errNotFound)
		}
		start = first
	}
	if req.end != nil {
		end = *req.end
	} else {
		last, ok, err := server.gateway.LastVariantCoordinate(ctx, req.referenceName, req.studies)
		if err != nil {
			return nil, storeError("resolving end", err)
		}
		if !ok {
			return nil, newNotFoundError(errNotFound)
		}
		end = last
	}
	if end <= start {
		return nil, newNotFoundError(errNotFound)
	}

	if err := server.checkAvailable(ctx, req.studies); err != nil {
		return nil, err
	}

	if genomics.BlockCount(start, end, server.blockSize) > server.maxBlocks {
		return nil, newInvalidRangeError(errTooManyBlocks)
	}
	blocks, err := genomics.Divide(req.referenceName, start, end, server.blockSize)
	if errors.Is(err, genomics.ErrTooManyBlocks) {
		return nil, newInvalidRangeError(errTooManyBlocks)
	}
	if err != nil {
		return nil, newInvalidInputError(err)
	}

	ticket := &Ticket{
		Format:        vcfFormat,
		URLBase:       base,
		ContextPath:   server.contextPath,
		ID:            req.id,
		ReferenceName: req.referenceName,
		Species:       req.species,
		Blocks:        blocks,
	}
	ticket.URLs = server.ticketURLs(base, req.species, req.studies, blocks)
	return ticket, nil
}

// checkAvailable fails with InvalidInput unless the species bound to ctx and
// every one of studies exist.
func (server *Server) checkAvailable(ctx context.Context, studies []string) error {
	ok, err := server.gateway.SpeciesExists(ctx)
	if err != nil {
		return storeError("checking species", err)
	}
	if !ok {
		return newInvalidInputError(errSpeciesNotAvailable)
	}
	ok, err = server.gateway.StudiesExist(ctx, studies)
	if err != nil {
		return storeError("checking studies", err)
	}
	if !ok {
		return newInvalidInputError(errStudiesNotAvailable)
	}
	return nil
}

func (server *Server) ticketURLs(base, species string, studies []string, blocks []genomics.Region) []URL {
	prefix := base + server.contextPath + variantsPath
	query := url.Values{
		"species": []string{species},
		"studies": []string{strings.Join(studies, ",")},
	}

	urls := make([]URL, 0, len(blocks)+2)
	urls = append(urls, URL{URL: prefix + headersPath + "?" + query.Encode(), Class: "header"})
	for _, block := range blocks {
		query.Set("region", block.String())
		urls = append(urls, URL{URL: prefix + blockPath + "?" + query.Encode(), Class: "body"})
	}
	if server.compress {
		urls = append(urls, URL{URL: bgzf.EOFMarkerDataURL, Class: "body"})
	}
	return urls
}

// baseURL returns the scheme and host the request was addressed to.
func baseURL(req *http.Request) string {
	if req.Host == "" {
		return ""
	}
	scheme := "http://"
	if req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https://"
	}
	return scheme + req.Host
}

func errorName(err error) string {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.name
	}
	return "Internal"
}
