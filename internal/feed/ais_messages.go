// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pelorus/internal/models"
)

// Message kinds carried in the stream envelope. PositionReport frames
// carry dynamic fields, ShipStaticData frames carry static fields, and
// VesselSighting frames are minimal discovery reports (MMSI only).
const (
	KindPositionReport = "PositionReport"
	KindShipStaticData = "ShipStaticData"
	KindVesselSighting = "VesselSighting"
)

// maxMMSI bounds the nine-digit Maritime Mobile Service Identity space.
const maxMMSI = 999_999_999

// ErrStreamRejected marks a server-side rejection of the subscription,
// either an error frame or an auth failure on dial. The session rotates
// to the next credential instead of retrying the same one.
var ErrStreamRejected = errors.New("stream subscription rejected")

// subscribeFrame is the single request frame sent after dialing. The
// server scopes the session to the given coverage boxes and kinds.
type subscribeFrame struct {
	APIKey        string               `json:"api_key"`
	BoundingBoxes []models.BoundingBox `json:"bounding_boxes"`
	MessageTypes  []string             `json:"message_types"`
}

// streamEnvelope is one inbound frame. Exactly one of the payload
// bodies is present, matching MessageType; an Error field means the
// server refused the subscription.
type streamEnvelope struct {
	MessageType    string          `json:"message_type"`
	MMSI           int64           `json:"mmsi"`
	TimeUTC        time.Time       `json:"time_utc"`
	Error          string          `json:"error,omitempty"`
	PositionReport *positionReport `json:"position_report,omitempty"`
	ShipStaticData *shipStaticData `json:"ship_static_data,omitempty"`
}

type positionReport struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Sog       *float64 `json:"sog,omitempty"`
	Cog       *float64 `json:"cog,omitempty"`
	NavStatus *int     `json:"nav_status,omitempty"`
}

type shipStaticData struct {
	Name        *string    `json:"name,omitempty"`
	CallSign    *string    `json:"call_sign,omitempty"`
	ShipType    *int       `json:"ship_type,omitempty"`
	IMONumber   *int64     `json:"imo_number,omitempty"`
	LengthM     *float64   `json:"length_m,omitempty"`
	BeamM       *float64   `json:"beam_m,omitempty"`
	Destination *string    `json:"destination,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`
}

// parseStreamMessage turns one wire frame into a canonical report. The
// returned kind is the short metric label ("position", "static",
// "sighting"). Unknown kinds and malformed payloads return an error;
// the caller drops and counts them without tearing down the session.
// Error frames return ErrStreamRejected.
func parseStreamMessage(data []byte, now time.Time) (*models.Report, string, error) {
	var env streamEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("decode stream frame: %w", err)
	}
	if env.Error != "" {
		return nil, "", fmt.Errorf("%w: %s", ErrStreamRejected, env.Error)
	}
	if env.MMSI <= 0 || env.MMSI > maxMMSI {
		return nil, "", fmt.Errorf("frame mmsi %d out of range", env.MMSI)
	}

	at := env.TimeUTC
	if at.IsZero() {
		at = now
	}
	rep := &models.Report{
		MMSI:    env.MMSI,
		Source:  models.SourceAISStream,
		EventAt: at.UTC(),
	}

	switch env.MessageType {
	case KindPositionReport:
		p := env.PositionReport
		if p == nil {
			return nil, "", errors.New("position report frame without body")
		}
		if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
			return nil, "", fmt.Errorf("position (%v, %v) out of range", p.Latitude, p.Longitude)
		}
		lat, lon := p.Latitude, p.Longitude
		rep.Lat, rep.Lon = &lat, &lon
		rep.SogKn = sanitizeSog(p.Sog)
		rep.CogDeg = sanitizeCog(p.Cog)
		rep.NavStatus = sanitizeNavStatus(p.NavStatus)
		return rep, "position", nil

	case KindShipStaticData:
		sd := env.ShipStaticData
		if sd == nil {
			return nil, "", errors.New("static data frame without body")
		}
		rep.Name = cleanString(sd.Name)
		rep.CallSign = cleanString(sd.CallSign)
		rep.ShipType = sanitizeShipType(sd.ShipType)
		rep.IMO = sanitizeIMO(sd.IMONumber)
		rep.LengthM = sanitizeMeters(sd.LengthM)
		rep.BeamM = sanitizeMeters(sd.BeamM)
		rep.Destination = cleanString(sd.Destination)
		rep.ETA = sd.ETA
		return rep, "static", nil

	case KindVesselSighting:
		return rep, "sighting", nil

	default:
		return nil, "", fmt.Errorf("unknown message kind %q", env.MessageType)
	}
}

// sanitizeSog drops not-available and negative speeds. 102.3 knots is
// the AIS not-available marker.
func sanitizeSog(v *float64) *float64 {
	if v == nil || *v < 0 || *v >= 102.3 {
		return nil
	}
	return v
}

// sanitizeCog drops courses outside [0, 360). 360 is the AIS
// not-available marker.
func sanitizeCog(v *float64) *float64 {
	if v == nil || *v < 0 || *v >= 360 {
		return nil
	}
	return v
}

// sanitizeNavStatus keeps the defined 0-15 status codes.
func sanitizeNavStatus(v *int) *int {
	if v == nil || *v < 0 || *v > 15 {
		return nil
	}
	return v
}

// sanitizeShipType keeps the defined 0-99 type codes.
func sanitizeShipType(v *int) *int {
	if v == nil || *v < 0 || *v > 99 {
		return nil
	}
	return v
}

func sanitizeIMO(v *int64) *int64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

func sanitizeMeters(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// cleanString trims whitespace and maps empty strings to nil so a blank
// field never clobbers a known static value downstream.
func cleanString(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
