// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package meshlog provides the structured logging facade shared by every
// component of the configuration subsystem: a thin, enable-gated
// wrapper passed by value into components, backed by zerolog so
// records can be routed to a rotating file sink in production builds.
package meshlog

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileSink describes an optional rotating log file destination.
type FileSink struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Clog is the per-component logging handle. The zero value logs to
// os.Stdout at Info level with output disabled, matching clog.Clog's
// zero value (disabled until LogMode(true) is called).
type Clog struct {
	logger zerolog.Logger
	has    *uint32
}

// New creates a Clog with the given component name as a zerolog field.
// sink may be nil, in which case records go to os.Stdout.
func New(component string, sink *FileSink) Clog {
	var w io.Writer = os.Stdout
	if sink != nil && sink.Path != "" {
		w = &lumberjack.Logger{
			Filename:   sink.Path,
			MaxSize:    sink.MaxSizeMB,
			MaxBackups: sink.MaxBackups,
			MaxAge:     sink.MaxAgeDays,
			Compress:   sink.Compress,
		}
	}
	var has uint32
	return Clog{
		logger: zerolog.New(w).With().Timestamp().Str("component", component).Logger(),
		has:    &has,
	}
}

// LogMode enables or disables log output for this handle.
func (c Clog) LogMode(enable bool) {
	if c.has == nil {
		return
	}
	if enable {
		atomic.StoreUint32(c.has, 1)
	} else {
		atomic.StoreUint32(c.has, 0)
	}
}

func (c Clog) enabled() bool {
	return c.has != nil && atomic.LoadUint32(c.has) == 1
}

// Debug logs a best-effort drop or routing decision. Ingress failures
// (malformed frames, unresolved destinations, unbound app keys) are
// logged here rather than surfaced, per the dispatcher's best-effort
// failure semantics.
func (c Clog) Debug(msg string, kv ...interface{}) {
	if !c.enabled() {
		return
	}
	logWithFields(c.logger.Debug(), msg, kv...)
}

// Warn logs a recoverable but noteworthy condition.
func (c Clog) Warn(msg string, kv ...interface{}) {
	if !c.enabled() {
		return
	}
	logWithFields(c.logger.Warn(), msg, kv...)
}

// Error logs a failure that does not abort the caller.
func (c Clog) Error(msg string, kv ...interface{}) {
	if !c.enabled() {
		return
	}
	logWithFields(c.logger.Error(), msg, kv...)
}

// Critical logs a caller-contract violation (see Assert) before the
// process aborts in debug builds.
func (c Clog) Critical(msg string, kv ...interface{}) {
	logWithFields(c.logger.Error().Bool("critical", true), msg, kv...)
}

// kv is a flat key, value, key, value, ... list; odd entries are dropped.
func logWithFields(ev *zerolog.Event, msg string, kv ...interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
