package repository

import (
	"context"

	"notification-hub-be/internal/model"

	"github.com/google/uuid"
)

// PreferenceRepository is the persistence boundary for the per-user
// preference record.
type PreferenceRepository interface {
	// Get returns (nil, nil) when no record exists yet; the caller applies
	// defaults. Records are created lazily on first Save.
	Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)

	// Save upserts the full record keyed by user id.
	Save(ctx context.Context, prefs *model.NotificationPreference) error

	Delete(ctx context.Context, userID uuid.UUID) error
}
