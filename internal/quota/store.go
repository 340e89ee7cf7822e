package quota

import (
	"context"
	"time"
)

// Tx is the action log inside one unit of work. CountSince must observe
// appends made earlier in the same unit of work.
type Tx interface {
	CountSince(ctx context.Context, userID string, sinceUTC time.Time) (int, error)
	Append(ctx context.Context, rec *Record) error
}

// Store is the append-only action log. InTx runs fn inside one unit of
// work serialized against concurrent units of work for the same user: if
// fn returns an error the unit of work rolls back entirely, otherwise it
// commits. Only the quota gate writes through this interface.
type Store interface {
	CountSince(ctx context.Context, userID string, sinceUTC time.Time) (int, error)
	InTx(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error
}
