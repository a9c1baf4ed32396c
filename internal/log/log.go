// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

// Package log implements a rate-limited leveled logger used internally to
// report best-effort diagnostics; currently only the receiver package logs
// through it (errors swallowed by Receiver.Receive). Callers never fail an
// operation because of a logging problem; they only call into this package.
package log

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Level is the minimum severity a message must have to be logged.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const prefixMsg = "Tracing Tunnel"

// Logger is the interface that must be implemented to receive log messages
// produced by this package.
type Logger interface {
	Log(msg string)
}

var (
	mu             sync.RWMutex
	logger         Logger = &defaultLogger{}
	levelThreshold        = LevelInfo
)

// SetLevel changes the minimum level a message must have to be logged.
func SetLevel(lvl Level) {
	mu.Lock()
	defer mu.Unlock()
	levelThreshold = lvl
}

// UseLogger sets l as the active logger and returns a function that restores
// the previously active logger, which is convenient for tests.
func UseLogger(l Logger) func() {
	mu.Lock()
	old := logger
	logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = old
		mu.Unlock()
	}
}

func enabled(lvl Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return lvl >= levelThreshold
}

// DebugEnabled reports whether debug-level messages are currently logged.
func DebugEnabled() bool {
	return enabled(LevelDebug)
}

func logf(lvl Level, name, format string, args ...any) {
	if !enabled(lvl) {
		return
	}
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Log(fmt.Sprintf("%s %s: %s", prefixMsg, name, fmt.Sprintf(format, args...)))
}

// Debug logs a debug-level message.
func Debug(format string, args ...any) { logf(LevelDebug, "DEBUG", format, args...) }

// Info logs an info-level message.
func Info(format string, args ...any) { logf(LevelInfo, "INFO", format, args...) }

// Warn logs a warn-level message.
func Warn(format string, args ...any) { logf(LevelWarn, "WARN", format, args...) }

const defaultErrorLimit = 200

var (
	errMu     sync.Mutex
	errrate   = time.Minute
	errCounts = map[string]int{}
	errFirst  = map[string]string{}
)

func init() {
	setLoggingRate(os.Getenv("TRACING_TUNNEL_ERROR_RATE_SECONDS"))
}

func setLoggingRate(s string) {
	if s == "" {
		errrate = time.Minute
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		errrate = time.Minute
		return
	}
	errrate = time.Duration(n) * time.Second
}

// Error logs an error-level message. Identical messages (keyed by their
// format string) are rate-limited: at most one is emitted per errrate
// window, with a trailing count of how many were skipped.
func Error(format string, args ...any) {
	if !enabled(LevelError) {
		return
	}
	msg := fmt.Sprintf(format, args...)

	errMu.Lock()
	defer errMu.Unlock()
	if errrate <= 0 {
		emitError(msg)
		return
	}
	if _, seen := errFirst[format]; !seen {
		errFirst[format] = msg
		errCounts[format] = 0
		time.AfterFunc(errrate, func() { flushKey(format) })
		return
	}
	errCounts[format]++
	if errCounts[format] >= defaultErrorLimit {
		flushKeyLocked(format)
	}
}

func flushKey(key string) {
	errMu.Lock()
	defer errMu.Unlock()
	flushKeyLocked(key)
}

func flushKeyLocked(key string) {
	first, ok := errFirst[key]
	if !ok {
		return
	}
	count := errCounts[key]
	delete(errFirst, key)
	delete(errCounts, key)
	if count > 0 {
		emitError(fmt.Sprintf("%s, %d additional messages skipped", first, count))
	} else {
		emitError(first)
	}
}

// Flush forces any pending rate-limited error messages to be logged
// immediately, rather than waiting out their window.
func Flush() {
	errMu.Lock()
	keys := make([]string, 0, len(errFirst))
	for key := range errFirst {
		keys = append(keys, key)
	}
	errMu.Unlock()
	for _, key := range keys {
		flushKey(key)
	}
}

func emitError(msg string) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Log(fmt.Sprintf("%s %s: %s", prefixMsg, "ERROR", msg))
}

type defaultLogger struct{}

func (defaultLogger) Log(msg string) { fmt.Fprintln(os.Stderr, msg) }

// DiscardLogger drops every message; useful in benchmarks and tests that
// don't care about log output.
type DiscardLogger struct{}

// Log implements Logger.
func (DiscardLogger) Log(string) {}

// RecordLogger is a Logger test double that records messages in memory,
// optionally ignoring lines carrying one of a set of prefixes.
type RecordLogger struct {
	mu      sync.Mutex
	lines   []string
	ignored []string
}

// Log implements Logger.
func (r *RecordLogger) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, prefix := range r.ignored {
		if strings.Contains(msg, prefix) {
			return
		}
	}
	r.lines = append(r.lines, msg)
}

// Ignore causes future Log calls whose message contains prefix to be dropped.
func (r *RecordLogger) Ignore(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ignored = append(r.ignored, prefix)
}

// Logs returns every recorded message, in call order.
func (r *RecordLogger) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Reset clears recorded messages and ignored prefixes.
func (r *RecordLogger) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
	r.ignored = nil
}
