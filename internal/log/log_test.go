// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package log

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebugToggle(t *testing.T) {
	restore := UseLogger(&RecordLogger{})
	defer restore()

	oldLvl := levelThreshold
	defer SetLevel(oldLvl)

	SetLevel(LevelInfo)
	assert.False(t, DebugEnabled())
	SetLevel(LevelDebug)
	assert.True(t, DebugEnabled())
}

func TestLogLevels(t *testing.T) {
	rec := &RecordLogger{}
	restore := UseLogger(rec)
	defer restore()

	oldLvl := levelThreshold
	defer SetLevel(oldLvl)
	SetLevel(LevelDebug)

	Debug("arena has %d entries", 3)
	Info("receiver constructed")
	Warn("dropping follows-from with unknown endpoint %d", 7)

	logs := rec.Logs()
	assert.Len(t, logs, 3)
	assert.Contains(t, logs[0], "DEBUG")
	assert.Contains(t, logs[0], "arena has 3 entries")
	assert.Contains(t, logs[1], "INFO")
	assert.Contains(t, logs[2], "WARN")
}

func TestErrorRateLimiting(t *testing.T) {
	rec := &RecordLogger{}
	restore := UseLogger(rec)
	defer restore()

	oldRate := errrate
	defer func() { errrate = oldRate }()
	errrate = 10 * time.Hour

	Error("unknown span id %d", 1)
	Error("unknown span id %d", 2)
	Error("unknown span id %d", 3)
	Error("distinct message")
	Flush()

	// Flush emits pending keys in no particular order; sort for a stable
	// comparison ("...distinct message" sorts before "...unknown span id").
	logs := rec.Logs()
	sort.Strings(logs)
	assert.Len(t, logs, 2)
	assert.Contains(t, logs[1], "2 additional messages skipped")
	assert.Contains(t, logs[0], "distinct message")
}

func TestErrorInstantWhenRateIsZero(t *testing.T) {
	rec := &RecordLogger{}
	restore := UseLogger(rec)
	defer restore()

	oldRate := errrate
	defer func() { errrate = oldRate }()
	errrate = 0

	Error("immediate message")
	assert.Len(t, rec.Logs(), 1)
}

func TestRecordLoggerIgnore(t *testing.T) {
	rec := &RecordLogger{}
	rec.Ignore("appsec")
	rec.Log("this is an appsec log")
	rec.Log("this is a tunnel log")
	assert.Len(t, rec.Logs(), 1)
	assert.NotContains(t, rec.Logs()[0], "appsec")

	rec.Reset()
	rec.Log("this is an appsec log")
	assert.Len(t, rec.Logs(), 1)
}

func TestSetLoggingRate(t *testing.T) {
	cases := []struct {
		input  string
		result time.Duration
	}{
		{"", time.Minute},
		{"0", 0},
		{"10", 10 * time.Second},
		{"-1", time.Minute},
		{"not a number", time.Minute},
	}
	for _, tc := range cases {
		errrate = time.Minute
		setLoggingRate(tc.input)
		assert.Equal(t, tc.result, errrate)
	}
}
