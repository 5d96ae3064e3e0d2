// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/models"
	"github.com/tomtom215/pelorus/internal/store"
)

// This file contains the vessel endpoints: the fleet snapshot, single
// vessel lookup, position history, and the enrichment write path.
//
// All handlers follow a consistent pattern:
//  1. Method validation (GET/PUT)
//  2. Parameter parsing and validation
//  3. Store query with request context
//  4. JSON envelope response with metadata

// Vessels handles fleet snapshot requests
//
// @Summary Get the current fleet snapshot
// @Description Returns the latest known state of every tracked vessel, optionally narrowed by bounding box, minimum length, ship type, or position age.
// @Tags Vessels
// @Accept json
// @Produce json
// @Param min_lat query number false "Bounding box south edge (-90..90)"
// @Param max_lat query number false "Bounding box north edge (-90..90)"
// @Param min_lon query number false "Bounding box west edge (-180..180)"
// @Param max_lon query number false "Bounding box east edge (-180..180)"
// @Param min_length query number false "Minimum vessel length in meters (0..500)"
// @Param ship_type query int false "AIS ship type code (0..99)"
// @Param max_age query string false "Maximum position age as a Go duration" example("30m")
// @Success 200 {object} models.APIResponse "Snapshot retrieved successfully"
// @Failure 400 {object} models.APIResponse "Invalid filter parameters"
// @Failure 500 {object} models.APIResponse "Internal server error"
// @Router /vessels [get]
func (h *Handler) Vessels(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if !h.requireStore(w) {
		return
	}

	start := time.Now()

	filter, errMsg := parseSnapshotFilter(r)
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", errMsg, nil)
		return
	}

	req := SnapshotRequest{
		MinLat:    filter.MinLat,
		MaxLat:    filter.MaxLat,
		MinLon:    filter.MinLon,
		MaxLon:    filter.MaxLon,
		MinLength: filter.MinLength,
		ShipType:  filter.ShipType,
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if errMsg := checkBoundsOrder(&req); errMsg != "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", errMsg, nil)
		return
	}

	records, err := h.store.Snapshot(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query vessels", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"vessels": records,
			"count":   len(records),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// parseSnapshotFilter reads the snapshot query parameters. Returns a
// non-empty message for malformed values; range checks happen later via
// the validator.
func parseSnapshotFilter(r *http.Request) (*models.SnapshotFilter, string) {
	filter := &models.SnapshotFilter{}

	var err error
	if filter.MinLat, err = getFloatPtrParam(r, "min_lat"); err != nil {
		return nil, err.Error()
	}
	if filter.MaxLat, err = getFloatPtrParam(r, "max_lat"); err != nil {
		return nil, err.Error()
	}
	if filter.MinLon, err = getFloatPtrParam(r, "min_lon"); err != nil {
		return nil, err.Error()
	}
	if filter.MaxLon, err = getFloatPtrParam(r, "max_lon"); err != nil {
		return nil, err.Error()
	}
	if filter.MinLength, err = getFloatPtrParam(r, "min_length"); err != nil {
		return nil, err.Error()
	}
	if filter.ShipType, err = getIntPtrParam(r, "ship_type"); err != nil {
		return nil, err.Error()
	}
	if filter.MaxAge, err = getDurationParam(r, "max_age"); err != nil {
		return nil, err.Error()
	}

	return filter, ""
}

// checkBoundsOrder rejects inverted bounding boxes. The validator
// handles per-field ranges; ordering needs both fields present.
func checkBoundsOrder(req *SnapshotRequest) string {
	if req.MinLat != nil && req.MaxLat != nil && *req.MinLat > *req.MaxLat {
		return "min_lat must not exceed max_lat"
	}
	if req.MinLon != nil && req.MaxLon != nil && *req.MinLon > *req.MaxLon {
		return "min_lon must not exceed max_lon"
	}
	return ""
}

// Vessel handles single vessel lookup requests
//
// @Summary Get one vessel
// @Description Returns the full record for a single vessel: static data, latest position, and operator enrichment.
// @Tags Vessels
// @Accept json
// @Produce json
// @Param mmsi path int true "Vessel MMSI (nine digits)"
// @Success 200 {object} models.APIResponse "Vessel retrieved successfully"
// @Failure 400 {object} models.APIResponse "Invalid MMSI"
// @Failure 404 {object} models.APIResponse "Vessel not found"
// @Failure 500 {object} models.APIResponse "Internal server error"
// @Router /vessels/{mmsi} [get]
func (h *Handler) Vessel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if !h.requireStore(w) {
		return
	}

	mmsi, err := parseMMSI(chi.URLParam(r, "mmsi"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	start := time.Now()

	record, err := h.store.Get(r.Context(), mmsi)
	if err != nil {
		if errors.Is(err, store.ErrVesselNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Vessel not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query vessel", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   record,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// VesselRoute handles position history requests
//
// @Summary Get a vessel's route
// @Description Returns the stored position fixes for one vessel in chronological order. The window is either an explicit since timestamp or an hours lookback; limit caps the number of fixes.
// @Tags Vessels
// @Accept json
// @Produce json
// @Param mmsi path int true "Vessel MMSI (nine digits)"
// @Param since query string false "Window start (RFC3339)" example("2026-08-24T00:00:00Z")
// @Param hours query int false "Lookback in hours when since is absent (1-720)" default(24)
// @Param limit query int false "Maximum number of fixes (1-10000)" default(1000)
// @Success 200 {object} models.APIResponse "Route retrieved successfully"
// @Failure 400 {object} models.APIResponse "Invalid parameters"
// @Failure 404 {object} models.APIResponse "Vessel not found"
// @Failure 500 {object} models.APIResponse "Internal server error"
// @Router /vessels/{mmsi}/route [get]
func (h *Handler) VesselRoute(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if !h.requireStore(w) {
		return
	}

	mmsi, err := parseMMSI(chi.URLParam(r, "mmsi"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	req := RouteRequest{
		Hours: getIntParam(r, "hours", 24),
		Limit: getIntParam(r, "limit", 1000),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	since := time.Now().Add(-time.Duration(req.Hours) * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "since must be an RFC3339 timestamp", nil)
			return
		}
		since = parsed
	}

	start := time.Now()

	// Existence check so an unknown vessel yields 404 rather than an
	// empty route.
	if _, err := h.store.Get(r.Context(), mmsi); err != nil {
		if errors.Is(err, store.ErrVesselNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Vessel not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query vessel", err)
		return
	}

	points, err := h.store.Route(r.Context(), mmsi, since, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query route", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"mmsi":   mmsi,
			"since":  since.UTC(),
			"points": points,
			"count":  len(points),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// VesselEnrichment handles enrichment write requests
//
// @Summary Set a vessel's enrichment
// @Description Replaces the operator enrichment (tags, score, operator note) for one vessel. The resulting delta is broadcast to connected viewers. Requires editor role.
// @Tags Vessels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param mmsi path int true "Vessel MMSI (nine digits)"
// @Param enrichment body models.Enrichment true "Enrichment payload"
// @Success 200 {object} models.APIResponse "Enrichment stored successfully"
// @Failure 400 {object} models.APIResponse "Invalid payload"
// @Failure 401 {object} models.APIResponse "Unauthorized"
// @Failure 404 {object} models.APIResponse "Vessel not found"
// @Failure 500 {object} models.APIResponse "Internal server error"
// @Router /vessels/{mmsi}/enrichment [put]
func (h *Handler) VesselEnrichment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	if !h.requireStore(w) {
		return
	}

	mmsi, err := parseMMSI(chi.URLParam(r, "mmsi"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var enrichment models.Enrichment
	if err := json.NewDecoder(r.Body).Decode(&enrichment); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", nil)
		return
	}

	if apiErr := validateRequest(&enrichment); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	start := time.Now()

	delta, err := h.store.SetEnrichment(r.Context(), mmsi, enrichment)
	if err != nil {
		if errors.Is(err, store.ErrVesselNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Vessel not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to store enrichment", err)
		return
	}

	// The store write is committed; viewers pick up a missed broadcast
	// on their next snapshot.
	if delta != nil && h.publisher != nil {
		if err := h.publisher.PublishDelta(r.Context(), delta); err != nil {
			logging.Warn().Err(err).Int64("mmsi", mmsi).Msg("Failed to broadcast enrichment delta")
		}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   delta,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
