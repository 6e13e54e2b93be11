package events

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/metrics"
	"github.com/mathieu-neron/callvote/internal/model"
)

// MetricsSink turns vote traffic into Prometheus counters.
type MetricsSink struct{}

func (MetricsSink) HandleEvent(event model.GameEvent) {
	if event.Name != model.EventVoteCast {
		return
	}
	if opt, ok := event.Fields["vote_option"].(int); ok {
		metrics.Metrics.VotesCast.WithLabelValues(fmt.Sprintf("option%d", opt+1)).Inc()
	}
}

func (MetricsSink) HandleMessage(msg model.ClientMessage, _ model.Recipients) {
	switch msg.Type {
	case model.MsgVoteStart:
		metrics.Metrics.VotesStarted.WithLabelValues(msg.Team.String()).Inc()
	case model.MsgVotePass:
		metrics.Metrics.VotesPassed.WithLabelValues(msg.Team.String()).Inc()
	case model.MsgVoteFailed:
		metrics.Metrics.VotesFailed.WithLabelValues(msg.Reason).Inc()
	case model.MsgCallVoteFailed:
		metrics.Metrics.CallVoteFailures.WithLabelValues(msg.Reason).Inc()
	}
}

// LogSink writes all traffic to zerolog at debug level.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) LogSink {
	return LogSink{log: logger}
}

func (s LogSink) HandleEvent(event model.GameEvent) {
	s.log.Debug().Str("event", event.Name).Fields(event.Fields).Msg("game event")
}

func (s LogSink) HandleMessage(msg model.ClientMessage, to model.Recipients) {
	s.log.Debug().
		Str("type", string(msg.Type)).
		Ints("to", to.Slots).
		Str("display", msg.DisplayString).
		Str("reason", msg.Reason).
		Msg("client message")
}
