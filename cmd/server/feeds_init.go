// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/pelorus/internal/config"
	"github.com/tomtom215/pelorus/internal/credit"
	"github.com/tomtom215/pelorus/internal/feed"
	"github.com/tomtom215/pelorus/internal/models"
	"github.com/tomtom215/pelorus/internal/store"
)

// buildStreamConfig maps file configuration onto the AIS stream
// adapter's config, parsing the bounding box specs.
func buildStreamConfig(cfg *config.Config) (feed.StreamConfig, error) {
	boxes, err := models.ParseBoundingBoxes(cfg.AIS.Boxes)
	if err != nil {
		return feed.StreamConfig{}, fmt.Errorf("parse AIS bounding boxes: %w", err)
	}

	sc := feed.DefaultStreamConfig(cfg.AIS.URL, cfg.AIS.APIKeys, boxes)
	if cfg.AIS.MaxSessionsPerKey > 0 {
		sc.MaxSessionsPerKey = cfg.AIS.MaxSessionsPerKey
	}
	if cfg.AIS.DialTimeout > 0 {
		sc.DialTimeout = cfg.AIS.DialTimeout
	}
	if cfg.AIS.PingInterval > 0 {
		sc.PingInterval = cfg.AIS.PingInterval
	}
	if cfg.AIS.ReadTimeout > 0 {
		sc.ReadTimeout = cfg.AIS.ReadTimeout
	}
	return sc, nil
}

// buildPollerConfig maps file configuration onto the satellite scan
// poller's config, parsing the zone specs.
func buildPollerConfig(cfg *config.Config) (feed.PollerConfig, error) {
	zones, err := models.ParseZones(cfg.SatScan.Zones)
	if err != nil {
		return feed.PollerConfig{}, fmt.Errorf("parse scan zones: %w", err)
	}

	pc := feed.DefaultPollerConfig(cfg.SatScan.URL, cfg.SatScan.APIKey, zones)
	if cfg.SatScan.ScanInterval > 0 {
		pc.ScanInterval = cfg.SatScan.ScanInterval
	}
	if cfg.SatScan.RequestTimeout > 0 {
		pc.RequestTimeout = cfg.SatScan.RequestTimeout
	}
	if cfg.SatScan.UsageInterval > 0 {
		pc.UsageInterval = cfg.SatScan.UsageInterval
	}
	return pc, nil
}

// initLedger opens the monthly credit ledger, resuming the current
// window from the store.
func initLedger(ctx context.Context, st *store.Store, cfg *config.Config) (*credit.Ledger, error) {
	return credit.NewLedger(ctx, st, credit.Config{
		Budget:       cfg.Credit.MonthlyBudget,
		ReserveFloor: cfg.Credit.ReserveFloor,
	})
}
