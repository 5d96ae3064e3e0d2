// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/tomtom215/pelorus/internal/logging"
)

// LogAdapter routes watermill's internal logging through zerolog so the
// event backbone shares the process-wide log stream and format.
//
// Trace maps to zerolog's trace level and is normally filtered out.
type LogAdapter struct {
	fields watermill.LogFields
}

// NewLogAdapter creates a watermill logger backed by the global zerolog
// logger.
func NewLogAdapter() watermill.LoggerAdapter {
	return &LogAdapter{}
}

// Error implements watermill.LoggerAdapter.
func (a *LogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	logging.Error().Err(err).Fields(a.merged(fields)).Msg(msg)
}

// Info implements watermill.LoggerAdapter.
func (a *LogAdapter) Info(msg string, fields watermill.LogFields) {
	logging.Info().Fields(a.merged(fields)).Msg(msg)
}

// Debug implements watermill.LoggerAdapter.
func (a *LogAdapter) Debug(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(a.merged(fields)).Msg(msg)
}

// Trace implements watermill.LoggerAdapter.
func (a *LogAdapter) Trace(msg string, fields watermill.LogFields) {
	logging.Trace().Fields(a.merged(fields)).Msg(msg)
}

// With returns a child adapter carrying the extra fields.
func (a *LogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LogAdapter{fields: a.fields.Add(fields)}
}

// merged flattens adapter fields with call fields into the plain map
// type zerolog's Fields type switch expects.
func (a *LogAdapter) merged(fields watermill.LogFields) map[string]interface{} {
	return map[string]interface{}(a.fields.Add(fields))
}
