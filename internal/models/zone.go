// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Zone is one scan target for the polling feed: a named circle on the
// globe. Configured as "name:lat:lon:radius_km".
type Zone struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusKm float64 `json:"radius_km"`
}

// ParseZone parses the "name:lat:lon:radius_km" config form.
func ParseZone(s string) (Zone, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 {
		return Zone{}, fmt.Errorf("zone %q: want name:lat:lon:radius_km", s)
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Zone{}, fmt.Errorf("zone %q: empty name", s)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Zone{}, fmt.Errorf("zone %q: bad latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Zone{}, fmt.Errorf("zone %q: bad longitude: %w", s, err)
	}
	radius, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return Zone{}, fmt.Errorf("zone %q: bad radius: %w", s, err)
	}
	if lat < -90 || lat > 90 {
		return Zone{}, fmt.Errorf("zone %q: latitude out of range", s)
	}
	if lon < -180 || lon > 180 {
		return Zone{}, fmt.Errorf("zone %q: longitude out of range", s)
	}
	if radius <= 0 {
		return Zone{}, fmt.Errorf("zone %q: radius must be positive", s)
	}
	return Zone{Name: name, Lat: lat, Lon: lon, RadiusKm: radius}, nil
}

// ParseZones parses a slice of zone config strings, rejecting duplicates.
func ParseZones(specs []string) ([]Zone, error) {
	zones := make([]Zone, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		z, err := ParseZone(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[z.Name]; dup {
			return nil, fmt.Errorf("duplicate zone name %q", z.Name)
		}
		seen[z.Name] = struct{}{}
		zones = append(zones, z)
	}
	return zones, nil
}

// BoundingBox is a lat/lon rectangle used for the streaming feed's
// geographic subscription filter: [[minLat, minLon], [maxLat, maxLon]].
type BoundingBox [2][2]float64

// ParseBoundingBox parses the "minLat:minLon:maxLat:maxLon" config form.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box %q: want minLat:minLon:maxLat:maxLon", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bounding box %q: %w", s, err)
		}
		vals[i] = v
	}
	box := BoundingBox{{vals[0], vals[1]}, {vals[2], vals[3]}}
	if box[0][0] > box[1][0] || box[0][1] > box[1][1] {
		return BoundingBox{}, fmt.Errorf("bounding box %q: min corner exceeds max corner", s)
	}
	if vals[0] < -90 || vals[2] > 90 || vals[1] < -180 || vals[3] > 180 {
		return BoundingBox{}, fmt.Errorf("bounding box %q: out of range", s)
	}
	return box, nil
}

// ParseBoundingBoxes parses a slice of bounding box config strings.
func ParseBoundingBoxes(specs []string) ([]BoundingBox, error) {
	boxes := make([]BoundingBox, 0, len(specs))
	for _, s := range specs {
		b, err := ParseBoundingBox(s)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

// SplitBoxes distributes coverage boxes across n shards round-robin, so
// each streaming session subscribes a disjoint subset. Shards beyond the
// box count come back empty.
func SplitBoxes(boxes []BoundingBox, n int) [][]BoundingBox {
	if n <= 0 {
		n = 1
	}
	shards := make([][]BoundingBox, n)
	for i, b := range boxes {
		shards[i%n] = append(shards[i%n], b)
	}
	return shards
}
