package mq

import (
	"log/slog"
	"strings"
)

// Config selects and parameterizes the queue backend.
type Config struct {
	Type        string // kafka|redis|noop (default noop)
	Brokers     []string
	Topic       string
	RedisURL    string
	RedisStream string
	RedisMaxLen int64
	RedisApprox bool
}

// New builds a Queue from config. Unknown or empty types fall back to noop so
// the service runs without any broker in dev.
func New(cfg Config) Queue {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "kafka":
		slog.Info("events-mq: kafka publisher enabled", "brokers", cfg.Brokers, "topic", cfg.Topic)
		return NewKafka(cfg.Brokers, cfg.Topic)
	case "redis":
		slog.Info("events-mq: redis publisher enabled", "stream", cfg.RedisStream)
		return NewRedis(cfg.RedisURL, cfg.RedisStream, cfg.RedisMaxLen, cfg.RedisApprox)
	case "", "noop":
		return NewNoop()
	default:
		slog.Warn("events-mq: unsupported type, using noop", "type", cfg.Type)
		return NewNoop()
	}
}
