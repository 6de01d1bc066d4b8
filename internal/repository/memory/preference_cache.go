package memory

import (
	"time"

	"notification-hub-be/internal/model"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PreferenceCache keeps recently read preference records in memory. The
// evaluator consults preferences on every delivery, so this sits in front of
// the store as a read-through cache invalidated on write.
type PreferenceCache struct {
	cache *cache.Cache
}

func NewPreferenceCache() *PreferenceCache {
	// Preferences change rarely; 5 minutes of staleness is acceptable for
	// delivery decisions.
	c := cache.New(5*time.Minute, 10*time.Minute)
	return &PreferenceCache{cache: c}
}

func (p *PreferenceCache) Get(userID uuid.UUID) (*model.NotificationPreference, bool) {
	if x, found := p.cache.Get(userID.String()); found {
		return x.(*model.NotificationPreference), true
	}
	return nil, false
}

func (p *PreferenceCache) Set(prefs *model.NotificationPreference) {
	p.cache.Set(prefs.UserID.String(), prefs, cache.DefaultExpiration)
}

func (p *PreferenceCache) Invalidate(userID uuid.UUID) {
	p.cache.Delete(userID.String())
}
