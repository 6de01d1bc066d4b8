package dto

import (
	"time"

	"notification-hub-be/pkg/batch"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	Id        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Link      *string   `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationPageResponse is one page of results. NextCursor is null at the
// end of the result set.
type NotificationPageResponse struct {
	Data       []NotificationResponse `json:"data"`
	NextCursor *string                `json:"next_cursor"`
}

type NotificationCountsResponse struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
	Read   int64 `json:"read"`
}

type NotificationAnalyticsResponse struct {
	WindowDays int              `json:"window_days"`
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	ByType     map[string]int64 `json:"by_type"`
}

type BulkIdsRequest struct {
	Ids []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type BulkOptimizedRequest struct {
	Ids       []uuid.UUID `json:"ids" validate:"required,min=1"`
	BatchSize int         `json:"batch_size"`
}

type BulkResultResponse struct {
	Result batch.Aggregate `json:"result"`
}

type AffectedResponse struct {
	Affected int64 `json:"affected"`
}

type DigestFlushResponse struct {
	Flushed int       `json:"flushed"`
	Swept   int       `json:"swept"`
	Failed  int       `json:"failed"`
	At      time.Time `json:"at"`
}
