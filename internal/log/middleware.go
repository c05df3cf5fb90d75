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

package log

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the request id in requests and responses.
const RequestIDHeader = "X-Request-Id"

// Middleware returns a gin middleware that tags each request with an id,
// makes a logger carrying that id available through zerolog.Ctx on the
// request context and logs one line per request.
//
// It also recovers panics.  A panic before anything was written becomes a
// 500 response.  Otherwise the response is already committed, so the
// connection is aborted by re-panicking with http.ErrAbortHandler.
func Middleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		l := logger.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		start := time.Now()
		defer func() {
			r := recover()
			abort := r != nil && (r == http.ErrAbortHandler || c.Writer.Written())
			if r != nil && !abort {
				c.AbortWithStatus(http.StatusInternalServerError)
			}

			level := zerolog.InfoLevel
			switch {
			case r == http.ErrAbortHandler:
				level = zerolog.WarnLevel
			case r != nil, c.Writer.Status() >= http.StatusInternalServerError:
				level = zerolog.ErrorLevel
			}
			event := l.WithLevel(level)
			if r == http.ErrAbortHandler {
				event = event.Str("reason", "aborted")
			} else if r != nil {
				event = event.Interface("panic", r)
			}
			if len(c.Errors) > 0 {
				event = event.Str("errors", c.Errors.String())
			}
			event.
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Int("status", c.Writer.Status()).
				Int("bytes", c.Writer.Size()).
				Dur("duration", time.Since(start)).
				Msg("request")

			if abort {
				panic(http.ErrAbortHandler)
			}
		}()
		c.Next()
	}
}
