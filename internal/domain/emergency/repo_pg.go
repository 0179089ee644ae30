package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resqnow/resqnow/internal/outbox"
	"github.com/resqnow/resqnow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool  *pgxpool.Pool
	topic string
}

// NewRepoPG builds the postgres-backed repository. When topic is non-empty,
// Create and Resolve stage an outbox event in the same transaction as the
// row change.
func NewRepoPG(pool *pgxpool.Pool, topic string) Repository {
	return &repoPG{pool: pool, topic: topic}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const recordCols = `id, reporter_id, latitude, longitude, accuracy_meters, address,
	status, reported_at, resolved_at, resolved_by`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.ReporterID, &rec.Location.Latitude, &rec.Location.Longitude,
		&rec.Location.AccuracyMeters, &rec.Location.Address,
		&rec.Status, &rec.ReportedAt, &rec.ResolvedAt, &rec.ResolvedBy)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type outboxPayload struct {
	Type   string  `json:"type"`
	Record *Record `json:"record"`
}

func (r *repoPG) stage(ctx context.Context, tx pgx.Tx, eventType string, rec *Record) error {
	payload, err := json.Marshal(outboxPayload{Type: eventType, Record: rec})
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	return outbox.Stage(ctx, tx, r.topic, rec.ID.String(), payload)
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	const insert = `
		INSERT INTO emergencies (id, reporter_id, latitude, longitude, accuracy_meters, address,
			status, reported_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	args := []interface{}{rec.ID, rec.ReporterID, rec.Location.Latitude, rec.Location.Longitude,
		rec.Location.AccuracyMeters, rec.Location.Address, rec.Status, rec.ReportedAt}

	if r.topic == "" {
		_, err := r.conn(ctx).Exec(ctx, insert, args...)
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insert, args...); err != nil {
		return err
	}
	if err := r.stage(ctx, tx, "emergency.created", rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM emergencies WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM emergencies WHERE status = $1 ORDER BY reported_at DESC`,
		StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM emergencies WHERE reporter_id = $1`, reporterID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM emergencies WHERE reporter_id = $1
		 ORDER BY reported_at DESC LIMIT $2 OFFSET $3`, reporterID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Resolve(ctx context.Context, id uuid.UUID, resolverID string, at time.Time) (*Record, error) {
	const update = `
		UPDATE emergencies SET status = $2, resolved_at = $3, resolved_by = $4
		WHERE id = $1 AND status = $5
		RETURNING ` + recordCols

	resolveArgs := []interface{}{id, StatusResolved, at, resolverID, StatusActive}

	if r.topic == "" {
		rec, err := scanRecord(r.conn(ctx).QueryRow(ctx, update, resolveArgs...))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.resolveMissReason(ctx, id)
		}
		return rec, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rec, err := scanRecord(tx.QueryRow(ctx, update, resolveArgs...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.resolveMissReason(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.stage(ctx, tx, "emergency.resolved", rec); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// resolveMissReason distinguishes a missing record from one that was already
// resolved by a concurrent responder.
func (r *repoPG) resolveMissReason(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT status FROM emergencies WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyResolved
}
