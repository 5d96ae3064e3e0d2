// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/pelorus/internal/events"
	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/metrics"
)

// MessageSource is the durable subscription the bridge consumes.
// Satisfied by *events.Subscriber.
type MessageSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Bridge forwards the vessel event stream into the hub's broadcast
// channel. Delivery blocks when the hub's buffer is full; the un-acked
// message stays with JetStream, which is the system's buffer, so the
// bridge itself holds no queue.
type Bridge struct {
	hub        *Hub
	source     MessageSource
	topic      string
	serializer *events.Serializer
}

// NewBridge wires a subscription source to the hub.
func NewBridge(hub *Hub, source MessageSource) *Bridge {
	return &Bridge{
		hub:        hub,
		source:     source,
		topic:      events.SubjectAll,
		serializer: events.NewSerializer(),
	}
}

// Serve consumes the event stream until the context is canceled.
// Implements suture.Service. A closed subscription channel returns an
// error so the supervisor resubscribes.
func (b *Bridge) Serve(ctx context.Context) error {
	msgs, err := b.source.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.topic, err)
	}
	logging.Info().Str("topic", b.topic).Msg("Event bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("event subscription closed")
			}
			b.forward(ctx, msg)
		}
	}
}

func (b *Bridge) String() string { return "nats-ws-bridge" }

// forward decodes one stream message and hands it to the hub.
// Undecodable payloads are acked and dropped: redelivery cannot fix
// them. A delivery interrupted by shutdown is nacked so the durable
// consumer sees it again after restart.
func (b *Bridge) forward(ctx context.Context, msg *message.Message) {
	delta, err := b.serializer.Unmarshal(msg.Payload)
	if err != nil {
		metrics.NATSMessagesParseFailed.Inc()
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropped undecodable delta")
		msg.Ack()
		return
	}

	if err := b.hub.BroadcastDelta(ctx, delta); err != nil {
		msg.Nack()
		return
	}
	metrics.NATSMessagesConsumed.Inc()
	msg.Ack()
}
