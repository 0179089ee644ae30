package emergency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRecordNotFound is returned when no emergency exists for the given id.
	ErrRecordNotFound = errors.New("emergency not found")
	// ErrAlreadyResolved is returned when resolving an emergency that is no
	// longer active.
	ErrAlreadyResolved = errors.New("emergency already resolved")
)

type Repository interface {
	// Create persists a new record and assigns its ID.
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListActive returns active emergencies ordered by report time, newest
	// first.
	ListActive(ctx context.Context) ([]*Record, error)
	ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]*Record, int, error)
	// Resolve marks an active record resolved. It fails with
	// ErrAlreadyResolved when the record exists but is not active.
	Resolve(ctx context.Context, id uuid.UUID, resolverID string, at time.Time) (*Record, error)
}
