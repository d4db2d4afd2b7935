package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

type kafkaQueue struct {
	w *kafka.Writer
}

// NewKafka returns a Kafka-backed queue writing transition events to topic.
func NewKafka(brokers []string, topic string) Queue {
	if len(brokers) == 0 {
		return NewNoop()
	}
	if topic == "" {
		topic = "library.transitions"
	}
	// Writer is safe for concurrent use
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &kafkaQueue{w: w}
}

func (q *kafkaQueue) Close() error { return q.w.Close() }

func (q *kafkaQueue) PublishTransition(evt map[string]any) error {
	b, _ := json.Marshal(evt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Key by user+game so a pair's events land in one partition, preserving order.
	key := fmt.Sprintf("%v:%v", evt["user_id"], evt["game_id"])
	return q.w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
}
