// Package mq publishes library transition events for downstream consumers
// (analytics aggregation, gamification). Publishing is best-effort and
// post-commit; the state machine never depends on it.
package mq

// Queue is a minimal publish interface. Implementations are backed by Kafka,
// Redis Streams, or a no-op for dev.
type Queue interface {
	PublishTransition(evt map[string]any) error
	Close() error
}
