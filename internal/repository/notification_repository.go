package repository

import (
	"context"
	"errors"
	"time"

	"notification-hub-be/internal/model"
	"notification-hub-be/internal/query"

	"github.com/google/uuid"
)

// ErrNotFound is returned by single-item mutations targeting a missing row.
// Bulk and predicate-scoped operations never return it; there a zero-row
// match is a valid outcome.
var ErrNotFound = errors.New("notification not found")

// NotificationRepository is the persistence boundary for notifications. Any
// error other than ErrNotFound is a store fault and carries its opaque cause.
type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error

	// Find returns rows matching the descriptor after the optional cursor,
	// ordered by the descriptor's sort key. limit <= 0 means unbounded
	// (export path).
	Find(ctx context.Context, userID uuid.UUID, desc *query.Descriptor, cursor *query.Cursor, limit int) ([]model.Notification, error)

	// Counts computes total/unread/read in a single aggregate statement.
	Counts(ctx context.Context, userID uuid.UUID) (*model.NotificationCounts, error)

	// Analytics aggregates count and unread count per type for rows created
	// at or after since, without loading notification bodies.
	Analytics(ctx context.Context, userID uuid.UUID, since time.Time) (total, unread int64, byType map[string]int64, err error)

	// UpdateByID patches one row and reports whether it existed.
	UpdateByID(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (int64, error)
	// UpdateByIDs patches all listed rows as one statement. Missing ids
	// simply do not count toward the result.
	UpdateByIDs(ctx context.Context, ids []uuid.UUID, patch map[string]interface{}) (int64, error)

	DeleteByID(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)

	// Predicate-scoped bulk statements, each executed as one store call.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteByType(ctx context.Context, userID uuid.UUID, notifType string) (int64, error)

	// FindUndigested returns unread rows not yet swept into a digest,
	// oldest first.
	FindUndigested(ctx context.Context, userID uuid.UUID) ([]model.Notification, error)
}
