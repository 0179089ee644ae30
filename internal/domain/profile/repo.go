package profile

import (
	"context"
	"errors"
)

// ErrProfileNotFound is returned when no profile exists for the given user.
var ErrProfileNotFound = errors.New("profile not found")

type Repository interface {
	// Upsert writes the profile for p.UserID. Nil fields keep their stored
	// values; non-nil fields (and a non-nil contact list) replace them.
	Upsert(ctx context.Context, p *Profile) error
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
	List(ctx context.Context, limit, offset int) ([]*Profile, int, error)
	SetAutoShare(ctx context.Context, userID string, enabled bool) error
	SetApproval(ctx context.Context, userID string, approved bool) error
	SetRole(ctx context.Context, userID string, role string) error
}
