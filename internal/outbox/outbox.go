// Package outbox implements a transactional outbox: dispatch events are
// staged in the same transaction that writes the emergency record, then a
// background publisher drains them to Kafka.
package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
)

// Stage inserts an event row inside the caller's transaction. The event only
// becomes visible to the publisher when that transaction commits, so a rolled
// back emergency never produces a dispatch event.
func Stage(ctx context.Context, tx pgx.Tx, topic, key string, payload []byte) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO outbox_events (topic, key, payload) VALUES ($1, $2, $3)`,
		topic, key, payload,
	)
	if err != nil {
		return fmt.Errorf("stage outbox event: %w", err)
	}
	return nil
}

// NewWriter builds a Kafka writer for the publisher. The topic is carried per
// message so a single writer serves every staged topic.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}
