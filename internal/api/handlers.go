// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/pelorus/internal/config"
	"github.com/tomtom215/pelorus/internal/credit"
	"github.com/tomtom215/pelorus/internal/events"
	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/models"
	"github.com/tomtom215/pelorus/internal/wal"
	ws "github.com/tomtom215/pelorus/internal/websocket"
)

// VesselStore is the store surface the handlers read and write. The
// concrete *store.Store satisfies it; tests substitute an in-memory
// fake.
type VesselStore interface {
	Get(ctx context.Context, mmsi int64) (*models.VesselRecord, error)
	Snapshot(ctx context.Context, filter *models.SnapshotFilter) ([]models.VesselRecord, error)
	Route(ctx context.Context, mmsi int64, since time.Time, limit int) ([]models.PositionEvent, error)
	Stats(ctx context.Context, activeWindow time.Duration) (*models.StoreStats, error)
	SetEnrichment(ctx context.Context, mmsi int64, e models.Enrichment) (*models.VesselDelta, error)
	Ping(ctx context.Context) error
	WALStats() wal.Stats
}

// DeltaPublisher pushes store mutation events onto the broadcast
// backbone. The concrete *events.Publisher satisfies it.
type DeltaPublisher interface {
	PublishDelta(ctx context.Context, delta *models.VesselDelta) error
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	store     VesselStore
	config    *config.Config
	hub       *ws.Hub
	publisher DeltaPublisher
	credit    *credit.Ledger
	health    *events.HealthChecker
	startTime time.Time
}

// NewHandler creates the handler set. hub, publisher, ledger and health
// may be nil when the corresponding subsystem is disabled; the affected
// endpoints degrade instead of failing.
func NewHandler(store VesselStore, cfg *config.Config, hub *ws.Hub, publisher DeltaPublisher, ledger *credit.Ledger, health *events.HealthChecker) *Handler {
	return &Handler{
		store:     store,
		config:    cfg,
		hub:       hub,
		publisher: publisher,
		credit:    ledger,
		health:    health,
		startTime: time.Now(),
	}
}

// getUpgrader returns a WebSocket upgrader with origin checking.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates the Origin header against the
// configured CORS origins. Requests without an Origin header are
// non-browser clients and pass; cross-site hijacking only applies to
// browser contexts.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// WebSocket handles live map stream connections
//
// @Summary Connect to the live vessel stream
// @Description Upgrades to a WebSocket connection. The first frame is a full fleet snapshot; subsequent frames are per-vessel deltas. Slow consumers are disconnected when their outbound queue overflows.
// @Tags Stream
// @Success 101 {string} string "Switching Protocols"
// @Failure 503 {object} models.APIResponse "WebSocket service unavailable"
// @Router /ws [get]
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		logging.Warn().Msg("WebSocket connection attempted but hub not configured")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response
		logging.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	viewer := ws.NewViewer(h.hub, conn)
	h.hub.Register <- viewer
	viewer.Start()

	logging.Debug().Uint64("viewer_id", viewer.ID()).Msg("WebSocket viewer connected")
}
