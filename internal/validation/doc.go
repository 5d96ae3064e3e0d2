// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with a domain-specific `mmsi` validator and
// user-friendly error messages. It integrates with the API's error format for
// consistent error responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Custom `mmsi` tag accepting one- to nine-digit vessel identities
//   - Error translation to human-readable messages
//   - APIError conversion matching the handlers' error format
//
// # Quick Start
//
//	type VesselQuery struct {
//	    MinLat    *float64 `validate:"omitempty,latitude"`
//	    MaxLat    *float64 `validate:"omitempty,latitude"`
//	    MinLon    *float64 `validate:"omitempty,longitude"`
//	    MaxLon    *float64 `validate:"omitempty,longitude"`
//	    MinLength *float64 `validate:"omitempty,gte=0,lte=500"`
//	    ShipType  *int     `validate:"omitempty,gte=0,lte=99"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    req := parseQuery(r)
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// Numeric validations:
//   - gte=n, lte=n, gt=n, lt=n: Range bounds
//   - min=n, max=n: Minimum/maximum value (length for strings)
//
// Coordinate validations:
//   - latitude: Valid latitude (-90 to 90)
//   - longitude: Valid longitude (-180 to 180)
//
// Domain validations:
//   - mmsi: Maritime Mobile Service Identity (1 to 999999999), on
//     integer or decimal-string fields
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values
//
// # Error Translation
//
// Human-readable messages are generated for common validation tags:
//
//	latitude   -> "MinLat must be a valid latitude (-90 to 90)"
//	mmsi       -> "MMSI must be a valid MMSI (1 to 999999999)"
//	lte=99     -> "ShipType must be less than or equal to 99"
//	max=64     -> "Tags[3] must be at most 64 characters"
//
// ToAPIError produces a VALIDATION_ERROR payload: a single failing field
// keeps its message and carries field/tag/value details; multiple failures
// join their messages and list every field under details.fields.
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use.
// Validator struct metadata is cached after first use, so request-path
// validations cost microseconds.
//
// # See Also
//
//   - internal/api: Request handlers using validation
//   - internal/models: Enrichment carries validate tags checked here
//   - github.com/go-playground/validator/v10: Underlying library
package validation
