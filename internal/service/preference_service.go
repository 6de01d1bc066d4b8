package service

import (
	"context"
	"fmt"

	"notification-hub-be/internal/dto"
	"notification-hub-be/internal/model"
	"notification-hub-be/internal/pkg/logger"
	"notification-hub-be/internal/repository"
	"notification-hub-be/internal/repository/memory"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PreferenceService manages the per-user delivery preference record. Reads
// go through an in-memory cache because the dispatcher consults preferences
// on every delivery; writes invalidate it.
type PreferenceService struct {
	repo   repository.PreferenceRepository
	cache  *memory.PreferenceCache
	logger logger.ILogger
}

func NewPreferenceService(repo repository.PreferenceRepository, cache *memory.PreferenceCache, log logger.ILogger) *PreferenceService {
	return &PreferenceService{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

// GetPreferences returns the stored record, or the documented defaults when
// the user has never written one. Defaults are not persisted on read.
func (s *PreferenceService) GetPreferences(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	return s.get(ctx, userID)
}

func (s *PreferenceService) get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	if cached, ok := s.cache.Get(userID); ok {
		return cached, nil
	}

	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if prefs == nil {
		prefs = model.DefaultPreference(userID)
	}
	s.cache.Set(prefs)
	return prefs, nil
}

// UpdatePreferences merges the supplied fields into the stored record.
// Unspecified fields keep their prior values; on first write every
// unspecified field takes its default.
func (s *PreferenceService) UpdatePreferences(ctx context.Context, userID uuid.UUID, req *dto.UpdatePreferenceRequest) (*model.NotificationPreference, error) {
	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if prefs == nil {
		prefs = model.DefaultPreference(userID)
	}

	applyPreferencePatch(prefs, req)

	if err := s.repo.Save(ctx, prefs); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	s.cache.Invalidate(userID)

	s.logger.Info("PreferenceService", "Preferences updated", map[string]interface{}{"user_id": userID})
	return prefs, nil
}

func (s *PreferenceService) DeletePreferences(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete preferences: %w", err)
	}
	s.cache.Invalidate(userID)
	return nil
}

// applyPreferencePatch copies only the fields the request actually carries.
// Presence is explicit (pointers), never inferred from zero values.
func applyPreferencePatch(prefs *model.NotificationPreference, req *dto.UpdatePreferenceRequest) {
	if req.EmailEnabled != nil {
		prefs.EmailEnabled = *req.EmailEnabled
	}
	if req.EmailTypes != nil {
		prefs.EmailTypes = datatypes.NewJSONSlice(*req.EmailTypes)
	}
	if req.PushEnabled != nil {
		prefs.PushEnabled = *req.PushEnabled
	}
	if req.PushTypes != nil {
		prefs.PushTypes = datatypes.NewJSONSlice(*req.PushTypes)
	}
	if req.InAppEnabled != nil {
		prefs.InAppEnabled = *req.InAppEnabled
	}
	if req.InAppTypes != nil {
		prefs.InAppTypes = datatypes.NewJSONSlice(*req.InAppTypes)
	}
	if req.EmailFrequency != nil {
		prefs.EmailFrequency = *req.EmailFrequency
	}
	if req.DigestEnabled != nil {
		prefs.DigestEnabled = *req.DigestEnabled
	}
	if req.QuietHoursEnabled != nil {
		prefs.QuietHoursEnabled = *req.QuietHoursEnabled
	}
	if req.QuietHoursStart != nil {
		prefs.QuietHoursStart = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		prefs.QuietHoursEnd = *req.QuietHoursEnd
	}
	if req.MarketingEnabled != nil {
		prefs.MarketingEnabled = *req.MarketingEnabled
	}
	if req.PromotionalEnabled != nil {
		prefs.PromotionalEnabled = *req.PromotionalEnabled
	}
}
