package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	dbTimeout        = 5 * time.Second
	publishTimeout   = 5 * time.Second
	defaultPollEvery = 1 * time.Second
	publishBatchSize = 100
)

// KafkaWriter is the subset of kafka.Writer the publisher needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher drains pending outbox rows to Kafka. Rows are locked with
// FOR UPDATE SKIP LOCKED so multiple server instances can run publishers
// concurrently without double-publishing.
type Publisher struct {
	pool             *pgxpool.Pool
	writer           KafkaWriter
	logger           zerolog.Logger
	pollInterval     time.Duration
	onPublishFailure func()
}

// NewPublisher creates a Publisher. onPublishFailure, when non-nil, is invoked
// once per failed publish attempt (wired to a metrics counter).
func NewPublisher(pool *pgxpool.Pool, writer KafkaWriter, logger zerolog.Logger, onPublishFailure func()) *Publisher {
	return &Publisher{
		pool:             pool,
		writer:           writer,
		logger:           logger,
		pollInterval:     defaultPollEvery,
		onPublishFailure: onPublishFailure,
	}
}

// Run polls the outbox until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if err := p.publishBatch(ctx); err != nil {
			p.logger.Error().Err(err).Msg("outbox publish failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type outboxEvent struct {
	ID        int64
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

func (p *Publisher) publishBatch(ctx context.Context) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := tx.Query(dbCtx,
		`SELECT id, topic, key, payload, created_at
		 FROM outbox_events
		 WHERE published_at IS NULL
		 ORDER BY created_at
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		publishBatchSize,
	)
	if err != nil {
		return err
	}

	var events []outboxEvent
	for rows.Next() {
		var event outboxEvent
		if err := rows.Scan(&event.ID, &event.Topic, &event.Key, &event.Payload, &event.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		events = append(events, event)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(events) == 0 {
		return tx.Commit(ctx)
	}

	for _, event := range events {
		publishCtx, publishCancel := context.WithTimeout(ctx, publishTimeout)
		err := p.writer.WriteMessages(publishCtx, kafka.Message{
			Topic: event.Topic,
			Key:   []byte(event.Key),
			Value: event.Payload,
			Time:  event.CreatedAt,
		})
		publishCancel()
		if err != nil {
			p.logger.Error().Err(err).
				Int64("event_id", event.ID).
				Str("topic", event.Topic).
				Str("key", event.Key).
				Msg("failed to publish outbox event")
			if p.onPublishFailure != nil {
				p.onPublishFailure()
			}
			continue
		}

		updateCtx, updateCancel := context.WithTimeout(ctx, dbTimeout)
		_, err = tx.Exec(updateCtx,
			"UPDATE outbox_events SET published_at = now() WHERE id = $1",
			event.ID,
		)
		updateCancel()
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
