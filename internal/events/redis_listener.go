package events

import (
	"context"

	redisadapter "prismatics/internal/adapters/redis"
	"prismatics/internal/metrics"
	"prismatics/pkg/errors"
	"prismatics/pkg/logger"
)

// RedisListener turns ingestion-side write notifications into local
// broadcast signals. The agent system publishes one message per write
// on a pub/sub channel; each message becomes exactly one Publish. The
// message body is ignored since consumers re-run the full aggregation.
type RedisListener struct {
	client      *redisadapter.Client
	channel     string
	broadcaster *Broadcaster
	log         *logger.Logger
}

// NewRedisListener creates a listener on the given channel.
func NewRedisListener(client *redisadapter.Client, channel string, b *Broadcaster, log *logger.Logger) *RedisListener {
	return &RedisListener{
		client:      client,
		channel:     channel,
		broadcaster: b,
		log:         log.With("component", "redis_listener"),
	}
}

// Run blocks consuming change notifications until ctx is cancelled.
// The go-redis subscription reconnects on its own after transient
// connection loss.
func (l *RedisListener) Run(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer sub.Close()

	// Fail fast when the channel cannot be subscribed at all.
	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrapf(err, "subscribe %s", l.channel)
	}

	l.log.Infof("listening for change notifications on %s", l.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-msgs:
			if !ok {
				return errors.ErrNotifierStopped
			}
			metrics.ChangeSignals.Inc()
			l.broadcaster.Publish()
		}
	}
}
