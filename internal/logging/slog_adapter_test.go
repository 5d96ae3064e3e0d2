// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
)

func newCaptureSlogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(NewTestLogger(&buf))
	return slog.New(handler), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("not JSON: %v (%q)", err, buf.String())
	}
	return entry
}

func TestSlogHandlerLevels(t *testing.T) {
	slogger, buf := newCaptureSlogger(t)

	slogger.Warn("backoff", slog.String("service", "aisstream"))

	entry := decodeLine(t, buf)
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["service"] != "aisstream" {
		t.Errorf("service = %v", entry["service"])
	}
	if entry["message"] != "backoff" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestSlogHandlerWithAttrsAndGroups(t *testing.T) {
	slogger, buf := newCaptureSlogger(t)

	slogger.With(slog.Int("restarts", 3)).WithGroup("supervisor").Info("service failed",
		slog.String("name", "satscan"))

	entry := decodeLine(t, buf)
	if entry["restarts"] != float64(3) {
		t.Errorf("restarts = %v", entry["restarts"])
	}
	if entry["supervisor.name"] != "satscan" {
		t.Errorf("grouped key = %v, want supervisor.name=satscan (got %v)", entry["supervisor.name"], entry)
	}
}

func TestSlogHandlerNestedGroupOrder(t *testing.T) {
	slogger, buf := newCaptureSlogger(t)

	slogger.Info("msg", slog.Group("outer", slog.Group("inner", slog.String("k", "v"))))

	entry := decodeLine(t, buf)
	if entry["outer.inner.k"] != "v" {
		t.Errorf("nested group keys flattened wrong: %v", entry)
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(NewTestLogger(&buf).Level(parseLevel("warn")))

	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
