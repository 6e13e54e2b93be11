package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/metrics"
	"github.com/mathieu-neron/callvote/internal/model"
)

// DefaultChannel is the Redis pub/sub channel envelopes are published on.
const DefaultChannel = "callvote:events"

const (
	envelopeMessage = "message"
	envelopeEvent   = "event"

	publishTimeout = 2 * time.Second
)

// Publisher is the part of the Redis client the sink uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisSink publishes envelopes to Redis from its own goroutine so the game
// loop never waits on the network. Envelopes are dropped when the queue is full.
type RedisSink struct {
	pub     Publisher
	channel string
	queue   chan model.Envelope
	log     zerolog.Logger
}

func NewRedisSink(pub Publisher, channel string, buffer int, logger zerolog.Logger) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &RedisSink{
		pub:     pub,
		channel: channel,
		queue:   make(chan model.Envelope, buffer),
		log:     logger,
	}
}

func (s *RedisSink) HandleEvent(event model.GameEvent) {
	s.enqueue(model.Envelope{Kind: envelopeEvent, Event: &event})
}

func (s *RedisSink) HandleMessage(msg model.ClientMessage, to model.Recipients) {
	if len(to.Slots) == 0 {
		return
	}
	s.enqueue(model.Envelope{
		Kind:       envelopeMessage,
		Message:    &msg,
		Recipients: append([]int(nil), to.Slots...),
	})
}

func (s *RedisSink) enqueue(env model.Envelope) {
	select {
	case s.queue <- env:
	default:
		metrics.Metrics.EventsDropped.Inc()
	}
}

// Run publishes queued envelopes until ctx is cancelled.
func (s *RedisSink) Run(ctx context.Context) error {
	s.log.Info().Str("channel", s.channel).Msg("redis-sink: starting")
	for {
		select {
		case env := <-s.queue:
			s.publish(env)
		case <-ctx.Done():
			s.drain()
			s.log.Info().Msg("redis-sink: stopping (context cancelled)")
			return nil
		}
	}
}

// drain publishes whatever is still queued, bounded by publishTimeout each.
func (s *RedisSink) drain() {
	for {
		select {
		case env := <-s.queue:
			s.publish(env)
		default:
			return
		}
	}
}

// publish is bounded by publishTimeout rather than the Run context, so
// envelopes dequeued during shutdown still go out.
func (s *RedisSink) publish(env model.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		s.log.Error().Err(err).Str("kind", env.Kind).Msg("redis-sink: marshal envelope")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.pub.Publish(ctx, s.channel, data).Err(); err != nil {
		s.log.Warn().Err(err).Msg("redis-sink: publish failed")
		return
	}
	metrics.Metrics.EventsPublished.Inc()
}
