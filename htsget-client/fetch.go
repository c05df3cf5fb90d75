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

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

type ticket struct {
	Container struct {
		Format string `json:"format"`
		URLs   []struct {
			URL     string            `json:"url"`
			Headers map[string]string `json:"headers"`
		} `json:"urls"`
	} `json:"htsget"`
}

type fetcher struct {
	client *http.Client
	logger zerolog.Logger
}

// download fetches the ticket at target and copies every URL it lists to w,
// in order.
func (f *fetcher) download(ctx context.Context, target string, w io.Writer) error {
	f.logger.Info().Str("url", target).Msg("fetching ticket")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %v", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}

	var t ticket
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return fmt.Errorf("decoding ticket: %v", err)
	}
	f.logger.Info().Int("urls", len(t.Container.URLs)).Msg("received ticket")

	var total int64
	for i, blob := range t.Container.URLs {
		n, err := f.copyBlob(ctx, w, blob.URL, blob.Headers)
		if err != nil {
			return fmt.Errorf("blob %d: %v", i, err)
		}
		total += n
		f.logger.Debug().Int("blob", i).Int64("bytes", n).Msg("wrote blob")
	}
	f.logger.Info().Str("size", humanSize(total)).Msg("download complete")
	return nil
}

func (f *fetcher) copyBlob(ctx context.Context, w io.Writer, target string, headers map[string]string) (int64, error) {
	r, err := f.fetchBlob(ctx, target, headers)
	if err != nil {
		return 0, fmt.Errorf("fetching data: %v", err)
	}
	defer r.Close()

	n, err := io.Copy(w, r)
	if err != nil {
		return n, fmt.Errorf("copying data: %v", err)
	}
	return n, nil
}

func (f *fetcher) fetchBlob(ctx context.Context, target string, headers map[string]string) (io.ReadCloser, error) {
	if v := strings.TrimPrefix(target, "data:"); v != target {
		parts := strings.SplitN(v, ",", 2)
		if len(parts) != 2 {
			return nil, errors.New("malformed data URL")
		}

		if strings.Contains(parts[0], ";base64") {
			output, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				return nil, fmt.Errorf("decoding base64 data: %v", err)
			}
			return io.NopCloser(bytes.NewReader(output)), nil
		}
		return io.NopCloser(strings.NewReader(parts[1])), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %v", err)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp)
	}
	return resp.Body, nil
}

// withParameters adds the non-empty values of params to the query of input
// unless it already sets them.
func withParameters(input string, params map[string]string) string {
	u, err := url.Parse(input)
	if err != nil {
		return input
	}
	query := u.Query()
	for name, value := range params {
		if value != "" && query.Get(name) == "" {
			query.Set(name, value)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func humanSize(n int64) string {
	kb := n / 1024
	mb := kb / 1024
	gb := mb / 1024
	if gb > 1 {
		return fmt.Sprintf("%d GB", gb)
	}
	if mb > 1 {
		return fmt.Sprintf("%d MB", mb)
	}
	if kb > 1 {
		return fmt.Sprintf("%d KB", kb)
	}
	return fmt.Sprintf("%d bytes", n)
}

func errorFromResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusNotFound:
		var v struct {
			Htsget struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			} `json:"htsget"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return fmt.Errorf("%s: parsing response body: %v", resp.Status, err)
		}
		if v.Htsget.Error != "" {
			return fmt.Errorf("%s: %s", v.Htsget.Error, v.Htsget.Message)
		}
	}
	return fmt.Errorf("unexpected response status: %q", resp.Status)
}
