package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification is one entry in a user's inbox. Rows are destroyed on delete,
// never tombstoned; Read may toggle any number of times until then.
type Notification struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_user_created,priority:1;index:idx_notifications_user_unread,priority:1" json:"user_id"`
	Type       string     `gorm:"type:varchar(50);not null;index:idx_notifications_type" json:"type"`
	Message    string     `gorm:"type:text;not null" json:"message"`
	Link       *string    `gorm:"type:text" json:"link,omitempty"`
	Read       bool       `gorm:"default:false;index:idx_notifications_user_unread,priority:2" json:"read"`
	DigestedAt *time.Time `json:"digested_at,omitempty"` // set once included in a digest flush
	CreatedAt  time.Time  `gorm:"default:CURRENT_TIMESTAMP;index:idx_notifications_user_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// EmailFrequency values for NotificationPreference.EmailFrequency.
const (
	FrequencyImmediate = "immediate"
	FrequencyHourly    = "hourly"
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
)

// NotificationPreference stores one delivery-preference record per user,
// created lazily on first write. An empty per-channel type list means the
// channel accepts every type.
type NotificationPreference struct {
	UserID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"user_id"`
	EmailEnabled       bool                        `gorm:"default:true" json:"email_enabled"`
	EmailTypes         datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"email_types"`
	PushEnabled        bool                        `gorm:"default:true" json:"push_enabled"`
	PushTypes          datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"push_types"`
	InAppEnabled       bool                        `gorm:"default:true" json:"in_app_enabled"`
	InAppTypes         datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"in_app_types"`
	EmailFrequency     string                      `gorm:"type:varchar(20);default:'immediate'" json:"email_frequency"`
	DigestEnabled      bool                        `gorm:"default:false" json:"digest_enabled"`
	QuietHoursEnabled  bool                        `gorm:"default:false" json:"quiet_hours_enabled"`
	QuietHoursStart    string                      `gorm:"type:varchar(5)" json:"quiet_hours_start"` // "HH:MM" local time
	QuietHoursEnd      string                      `gorm:"type:varchar(5)" json:"quiet_hours_end"`
	MarketingEnabled   bool                        `gorm:"default:true" json:"marketing_enabled"`
	PromotionalEnabled bool                        `gorm:"default:true" json:"promotional_enabled"`
	CreatedAt          time.Time                   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// DefaultPreference returns the documented defaults applied on first write
// for every field the caller leaves unspecified.
func DefaultPreference(userID uuid.UUID) *NotificationPreference {
	return &NotificationPreference{
		UserID:             userID,
		EmailEnabled:       true,
		PushEnabled:        true,
		InAppEnabled:       true,
		EmailFrequency:     FrequencyImmediate,
		DigestEnabled:      false,
		QuietHoursEnabled:  false,
		MarketingEnabled:   true,
		PromotionalEnabled: true,
	}
}

// NotificationCounts is the aggregate read-status breakdown for one user.
type NotificationCounts struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
	Read   int64 `json:"read"`
}

// NotificationAnalytics summarizes activity over a trailing window.
type NotificationAnalytics struct {
	WindowDays int              `json:"window_days"`
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	ByType     map[string]int64 `json:"by_type"`
}
