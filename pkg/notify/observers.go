package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewLogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(e Event) {
		level := slog.LevelDebug
		if e.Type == EventEmitted && e.Notification.Kind == KindError {
			level = slog.LevelWarn
		}

		logger.Log(context.Background(), level, "notification "+string(e.Type),
			slog.String("id", e.Notification.ID),
			slog.String("kind", string(e.Notification.Kind)),
			slog.String("message", e.Notification.Message),
		)
	})
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisObserver forwards events to a Redis pub/sub channel. Delivery happens
// on a separate goroutine in event order; events are dropped when the buffer
// is full.
type RedisObserver struct {
	client  publisher
	channel string
	events  chan Event
	logger  *slog.Logger
}

func (r *RedisObserver) Observe(e Event) {
	select {
	case r.events <- e:
	default:
		r.logger.Warn("notification buffer is full, event dropped", slog.String("id", e.Notification.ID))
	}
}

// Run publishes buffered events until ctx is done.
func (r *RedisObserver) Run(ctx context.Context) {
	const publishTimeout = 3 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.events:
			body, err := json.Marshal(e)
			if err != nil {
				r.logger.Error("failed to encode notification", slog.String("error", err.Error()))
				continue
			}

			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			err = r.client.Publish(pubCtx, r.channel, body).Err()
			cancel()
			if err != nil {
				r.logger.Error("failed to publish notification", slog.String("error", err.Error()))
			}
		}
	}
}

func NewRedisObserver(client publisher, channel string, buffer int, logger *slog.Logger) *RedisObserver {
	return &RedisObserver{
		client:  client,
		channel: channel,
		events:  make(chan Event, buffer),
		logger:  logger,
	}
}
