// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/metrics"
	"github.com/tomtom215/pelorus/internal/models"
)

// StreamConfig configures the AIS websocket adapter.
type StreamConfig struct {
	// URL is the stream endpoint. http(s) schemes are converted to
	// ws(s) automatically.
	URL string

	// APIKeys is the rotating credential set.
	APIKeys []string

	// Boxes is the geographic coverage, split across sessions.
	Boxes []models.BoundingBox

	// MaxSessionsPerKey caps concurrent sessions per credential, the
	// provider-side connection limit.
	MaxSessionsPerKey int

	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration

	// PingInterval is the keepalive ping cadence.
	PingInterval time.Duration

	// ReadTimeout is the read deadline, extended by each frame or pong.
	ReadTimeout time.Duration

	// QueueSize is the inbound report channel buffer.
	QueueSize int

	// Reconnect is the per-session reconnect policy.
	Reconnect Backoff

	// ExhaustedIdle is how long a session idles once every credential
	// has been rejected in a row.
	ExhaustedIdle time.Duration
}

// DefaultStreamConfig returns the standard adapter settings for the
// given endpoint, keys and coverage.
func DefaultStreamConfig(endpoint string, keys []string, boxes []models.BoundingBox) StreamConfig {
	return StreamConfig{
		URL:               endpoint,
		APIKeys:           keys,
		Boxes:             boxes,
		MaxSessionsPerKey: 1,
		DialTimeout:       10 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		QueueSize:         256,
		Reconnect:         DefaultBackoff(),
		ExhaustedIdle:     5 * time.Minute,
	}
}

// Validate checks the configuration.
func (c *StreamConfig) Validate() error {
	if c.URL == "" {
		return errors.New("stream: url is required")
	}
	if len(c.APIKeys) == 0 {
		return errors.New("stream: at least one API key is required")
	}
	if len(c.Boxes) == 0 {
		return errors.New("stream: at least one bounding box is required")
	}
	if c.MaxSessionsPerKey < 1 {
		return errors.New("stream: max sessions per key must be at least 1")
	}
	if c.DialTimeout <= 0 || c.PingInterval <= 0 || c.ReadTimeout <= 0 {
		return errors.New("stream: timeouts must be positive")
	}
	if c.QueueSize < 1 {
		return errors.New("stream: queue size must be at least 1")
	}
	return nil
}

// AISStream is the push-based coastal feed adapter. It maintains one
// websocket session per coverage shard, each subscribed to a disjoint
// subset of the configured bounding boxes, and funnels every accepted
// frame through a single writer goroutine into the store.
//
// Sessions fail independently: each owns its reconnect backoff and its
// credential cursor, so a rejected key or a dropped socket on one shard
// never stalls the others.
type AISStream struct {
	cfg   StreamConfig
	store Upserter

	shards  [][]models.BoundingBox
	creds   []*Credentials
	reports chan models.Report

	live     atomic.Int32
	degraded atomic.Bool
}

// NewAISStream plans the session shards and returns a ready adapter.
// The session count is the number of coverage boxes, capped at
// len(APIKeys) × MaxSessionsPerKey; keys are assigned round-robin so no
// key exceeds its session limit.
func NewAISStream(cfg StreamConfig, store Upserter) (*AISStream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("stream: store is required")
	}

	sessions := len(cfg.Boxes)
	if limit := len(cfg.APIKeys) * cfg.MaxSessionsPerKey; sessions > limit {
		sessions = limit
	}

	s := &AISStream{
		cfg:     cfg,
		store:   store,
		shards:  models.SplitBoxes(cfg.Boxes, sessions),
		creds:   make([]*Credentials, sessions),
		reports: make(chan models.Report, cfg.QueueSize),
	}
	for i := range s.creds {
		creds, err := NewCredentials(cfg.APIKeys, i)
		if err != nil {
			return nil, err
		}
		s.creds[i] = creds
	}
	return s, nil
}

// Serve runs the adapter until the context is canceled: one goroutine
// per session plus the single store writer. Implements suture.Service.
func (s *AISStream) Serve(ctx context.Context) error {
	logging.Info().
		Int("sessions", len(s.shards)).
		Int("boxes", len(s.cfg.Boxes)).
		Int("keys", len(s.cfg.APIKeys)).
		Msg("AIS stream adapter starting")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop(ctx)
	}()
	for i := range s.shards {
		wg.Add(1)
		go func(shard int) {
			defer wg.Done()
			s.runSession(ctx, shard)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *AISStream) String() string { return "ais-stream" }

// Sessions returns the planned session count.
func (s *AISStream) Sessions() int { return len(s.shards) }

// IsConnected reports whether at least one session is established.
func (s *AISStream) IsConnected() bool { return s.live.Load() > 0 }

// Degraded reports whether a session has exhausted every credential and
// is idling. It clears once a session receives data again.
func (s *AISStream) Degraded() bool { return s.degraded.Load() }

// writeLoop is the adapter's single store writer: parsing is decoupled
// from persistence, and the store sees exactly one upsert per accepted
// message.
func (s *AISStream) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rep := <-s.reports:
			uctx, cancel := context.WithTimeout(ctx, upsertTimeout)
			_, err := s.store.Upsert(uctx, rep)
			cancel()
			if err != nil {
				logging.Error().Err(err).Int64("mmsi", rep.MMSI).Msg("Stream report upsert failed")
			}
		}
	}
}

// runSession dials, subscribes and reads one shard's stream, forever.
// Auth rejections rotate the credential immediately; anything else
// waits out the reconnect backoff.
func (s *AISStream) runSession(ctx context.Context, shard int) {
	sess := &streamSession{
		stream:  s,
		shard:   shard,
		boxes:   s.shards[shard],
		creds:   s.creds[shard],
		backoff: s.cfg.Reconnect,
	}

	for {
		if ctx.Err() != nil {
			return
		}
		err := sess.run(ctx)
		if ctx.Err() != nil {
			return
		}

		metrics.FeedReconnectsTotal.WithLabelValues(FeedAISStream).Inc()

		if errors.Is(err, ErrStreamRejected) {
			metrics.FeedCredentialRotations.WithLabelValues(FeedAISStream).Inc()
			if rerr := sess.creds.Rotate(); errors.Is(rerr, ErrCredentialsExhausted) {
				s.degraded.Store(true)
				logging.Error().
					Err(err).
					Int("shard", shard).
					Dur("idle", s.cfg.ExhaustedIdle).
					Msg("Every stream credential rejected, idling")
				idleWait(ctx, s.cfg.ExhaustedIdle)
				continue
			}
			logging.Warn().Err(err).Int("shard", shard).Msg("Stream credential rejected, rotating")
			continue
		}

		delay := sess.backoff.Step()
		logging.Warn().
			Err(err).
			Int("shard", shard).
			Dur("retry_in", delay).
			Msg("Stream session ended, reconnecting")
		idleWait(ctx, delay)
	}
}

// sessionUp and sessionDown keep the connection gauge at 1 while any
// session is live.
func (s *AISStream) sessionUp() {
	if s.live.Add(1) == 1 {
		metrics.SetFeedConnected(FeedAISStream, true)
	}
}

func (s *AISStream) sessionDown() {
	if s.live.Add(-1) == 0 {
		metrics.SetFeedConnected(FeedAISStream, false)
	}
}

// streamSession is one shard's connection state. Owned by a single
// goroutine.
type streamSession struct {
	stream  *AISStream
	shard   int
	boxes   []models.BoundingBox
	creds   *Credentials
	backoff Backoff

	// accepted flips once the server has sent a data frame, proving
	// the current credential works. Writing the subscribe frame is not
	// enough: a rejection arrives as an error frame afterwards.
	accepted bool
}

// run executes one connection lifetime: dial, subscribe, read until the
// socket dies or the context is canceled.
func (s *streamSession) run(ctx context.Context) error {
	s.accepted = false

	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := s.subscribe(conn); err != nil {
		return fmt.Errorf("subscribe shard %d: %w", s.shard, err)
	}

	s.stream.sessionUp()
	defer s.stream.sessionDown()
	logging.Info().Int("shard", s.shard).Int("boxes", len(s.boxes)).Msg("AIS stream session established")

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.keepalive(watchCtx, conn)

	return s.readLoop(ctx, conn)
}

func (s *streamSession) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := streamURL(s.stream.cfg.URL)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  s.stream.cfg.DialTimeout,
		EnableCompression: true,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.creds.Current())

	dctx, cancel := context.WithTimeout(ctx, s.stream.cfg.DialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(dctx, wsURL, header)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: dial returned HTTP %d", ErrStreamRejected, resp.StatusCode)
		}
		if resp != nil {
			return nil, fmt.Errorf("stream dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("stream dial: %w", err)
	}
	return conn, nil
}

// subscribe sends the one request frame scoping this session to its
// coverage shard.
func (s *streamSession) subscribe(conn *websocket.Conn) error {
	frame := subscribeFrame{
		APIKey:        s.creds.Current(),
		BoundingBoxes: s.boxes,
		MessageTypes:  []string{KindPositionReport, KindShipStaticData, KindVesselSighting},
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode subscribe frame: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop consumes frames until the socket errors. Malformed frames
// are dropped and counted; error frames end the session with
// ErrStreamRejected so the caller rotates the credential.
func (s *streamSession) readLoop(ctx context.Context, conn *websocket.Conn) error {
	readTimeout := s.stream.cfg.ReadTimeout
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read stream frame: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		rep, kind, perr := parseStreamMessage(data, time.Now().UTC())
		if perr != nil {
			if errors.Is(perr, ErrStreamRejected) {
				return perr
			}
			metrics.RecordFeedMalformed(FeedAISStream)
			logging.Debug().Err(perr).Int("shard", s.shard).Msg("Dropped malformed stream frame")
			continue
		}

		if !s.accepted {
			s.accepted = true
			s.creds.MarkAccepted()
			s.backoff.Reset()
			s.stream.degraded.Store(false)
		}

		metrics.RecordFeedMessage(FeedAISStream, kind)
		select {
		case s.stream.reports <- *rep:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// keepalive pings the server on a ticker and closes the connection on
// context cancellation, which unblocks the read loop.
func (s *streamSession) keepalive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.stream.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// streamURL converts an http(s) endpoint to its ws(s) form.
func streamURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("stream url %q: unsupported scheme %q", raw, u.Scheme)
	}
	return u.String(), nil
}
