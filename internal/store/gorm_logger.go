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

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// maxSQLLength bounds the SQL text attached to debug logs.
const maxSQLLength = 200

// gormLogger forwards GORM's logging to zerolog.  Queries are logged at debug
// level; level filtering is left to the zerolog logger.
type gormLogger struct {
	log zerolog.Logger
}

func (l gormLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	l.log.Info().Msg(fmt.Sprintf(msg, args...))
}

func (l gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprintf(msg, args...))
}

func (l gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	l.log.Error().Msg(fmt.Sprintf(msg, args...))
}

// Trace is called after every statement.  ErrRecordNotFound is a normal
// result and is not reported as an error.
func (l gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		l.log.Error().Err(err).Str("sql", truncateSQL(sql)).Int64("rows", rows).Dur("duration", time.Since(begin)).Msg("query failed")
		return
	}
	if l.log.GetLevel() > zerolog.DebugLevel {
		return
	}
	sql, rows := fc()
	l.log.Debug().Str("sql", truncateSQL(sql)).Int64("rows", rows).Dur("duration", time.Since(begin)).Msg("query")
}

func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLength {
		return sql
	}
	half := (maxSQLLength - 3) / 2
	return sql[:half] + "..." + sql[len(sql)-half:]
}
