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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const gcsScheme = "gs://"

// output is the destination of a download.  Abort discards whatever was
// written so far.
type output interface {
	io.Writer
	Close() error
	Abort()
}

func newOutput(ctx context.Context, name string) (output, error) {
	switch {
	case name == "" || name == "-":
		return stdout{}, nil
	case strings.HasPrefix(name, gcsScheme):
		bucket, object, err := parseGCSPath(name)
		if err != nil {
			return nil, err
		}
		return newGCSOutput(ctx, bucket, object)
	default:
		f, err := os.Create(name)
		if err != nil {
			return nil, fmt.Errorf("opening output file: %v", err)
		}
		return &fileOutput{f}, nil
	}
}

func parseGCSPath(name string) (string, string, error) {
	path := strings.TrimPrefix(name, gcsScheme)
	if parts := strings.SplitN(path, "/", 2); len(parts) == 2 {
		if parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], nil
		}
	}
	return "", "", fmt.Errorf("invalid GCS path %q: expected gs://bucket/object", name)
}

type stdout struct{}

func (stdout) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdout) Close() error                { return nil }
func (stdout) Abort()                      {}

type fileOutput struct {
	*os.File
}

func (f *fileOutput) Abort() {
	f.File.Close()
	os.Remove(f.Name())
}

type gcsOutput struct {
	client *storage.Client
	writer *storage.Writer
	cancel context.CancelFunc
	path   string
}

func newGCSOutput(ctx context.Context, bucket, object string) (*gcsOutput, error) {
	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %v", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	writer := client.Bucket(bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "application/octet-stream"
	return &gcsOutput{client, writer, cancel, gcsScheme + bucket + "/" + object}, nil
}

func (g *gcsOutput) Write(p []byte) (int, error) {
	return g.writer.Write(p)
}

func (g *gcsOutput) Close() error {
	defer g.client.Close()
	defer g.cancel()
	if err := g.writer.Close(); err != nil {
		return gcsError(g.path, err)
	}
	return nil
}

// Abort cancels the upload; the object is left unchanged.
func (g *gcsOutput) Abort() {
	g.cancel()
	g.writer.Close()
	g.client.Close()
}

func gcsError(path string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("writing %s: %d %s", path, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("writing %s: %v", path, err)
}
