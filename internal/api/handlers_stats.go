// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/pelorus/internal/models"
)

// Stats handles operational statistics requests
//
// @Summary Get operational statistics
// @Description Returns store counters (vessels, position events, per-source coverage), WAL health, satellite credit consumption, and the connected viewer count. Requires authentication.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse "Statistics retrieved successfully"
// @Failure 401 {object} models.APIResponse "Unauthorized"
// @Failure 500 {object} models.APIResponse "Internal server error"
// @Router /stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if !h.requireStore(w) {
		return
	}

	start := time.Now()

	activeWindow := time.Hour
	if h.config != nil && h.config.Retention.ActiveWindow > 0 {
		activeWindow = h.config.Retention.ActiveWindow
	}

	storeStats, err := h.store.Stats(r.Context(), activeWindow)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query statistics", err)
		return
	}

	viewers := 0
	if h.hub != nil {
		viewers = h.hub.ViewerCount()
	}

	data := map[string]interface{}{
		"store":   storeStats,
		"wal":     h.store.WALStats(),
		"viewers": viewers,
		"uptime":  time.Since(h.startTime).Seconds(),
	}

	// Credit tracking only runs with the satellite feed enabled.
	if h.credit != nil {
		data["credit"] = h.credit.Status()
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
