package mq

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type redisQueue struct {
	cli          *redis.Client
	stream       string
	maxLen       int64
	maxLenApprox bool
}

// NewRedis returns a Redis Streams backed queue (XADD per event).
func NewRedis(url, stream string, maxLen int64, approx bool) Queue {
	opt, err := redis.ParseURL(url)
	if err != nil {
		slog.Error("events-mq: redis parse url", "error", err)
		return NewNoop()
	}
	if stream == "" {
		stream = "library:transitions"
	}
	return &redisQueue{cli: redis.NewClient(opt), stream: stream, maxLen: maxLen, maxLenApprox: approx}
}

func (q *redisQueue) Close() error { return q.cli.Close() }

func (q *redisQueue) PublishTransition(evt map[string]any) error {
	// Single 'data' field with a JSON body keeps the stream schema flexible.
	b, _ := json.Marshal(evt)
	args := &redis.XAddArgs{Stream: q.stream, Values: map[string]any{"data": string(b)}}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = q.maxLenApprox
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return q.cli.XAdd(ctx, args).Err()
}
