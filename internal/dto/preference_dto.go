package dto

import (
	"time"

	"github.com/google/uuid"
)

// UpdatePreferenceRequest is a partial merge: only non-nil fields change the
// stored record. Pointer fields keep "false"/"empty" distinguishable from
// "not provided".
type UpdatePreferenceRequest struct {
	EmailEnabled       *bool     `json:"email_enabled"`
	EmailTypes         *[]string `json:"email_types"`
	PushEnabled        *bool     `json:"push_enabled"`
	PushTypes          *[]string `json:"push_types"`
	InAppEnabled       *bool     `json:"in_app_enabled"`
	InAppTypes         *[]string `json:"in_app_types"`
	EmailFrequency     *string   `json:"email_frequency" validate:"omitempty,oneof=immediate hourly daily weekly"`
	DigestEnabled      *bool     `json:"digest_enabled"`
	QuietHoursEnabled  *bool     `json:"quiet_hours_enabled"`
	QuietHoursStart    *string   `json:"quiet_hours_start" validate:"omitempty,len=5"`
	QuietHoursEnd      *string   `json:"quiet_hours_end" validate:"omitempty,len=5"`
	MarketingEnabled   *bool     `json:"marketing_enabled"`
	PromotionalEnabled *bool     `json:"promotional_enabled"`
}

type PreferenceResponse struct {
	UserId             uuid.UUID `json:"user_id"`
	EmailEnabled       bool      `json:"email_enabled"`
	EmailTypes         []string  `json:"email_types"`
	PushEnabled        bool      `json:"push_enabled"`
	PushTypes          []string  `json:"push_types"`
	InAppEnabled       bool      `json:"in_app_enabled"`
	InAppTypes         []string  `json:"in_app_types"`
	EmailFrequency     string    `json:"email_frequency"`
	DigestEnabled      bool      `json:"digest_enabled"`
	QuietHoursEnabled  bool      `json:"quiet_hours_enabled"`
	QuietHoursStart    string    `json:"quiet_hours_start"`
	QuietHoursEnd      string    `json:"quiet_hours_end"`
	MarketingEnabled   bool      `json:"marketing_enabled"`
	PromotionalEnabled bool      `json:"promotional_enabled"`
	UpdatedAt          time.Time `json:"updated_at"`
}
