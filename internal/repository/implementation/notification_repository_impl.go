package implementation

import (
	"context"
	"time"

	"notification-hub-be/internal/model"
	"notification-hub-be/internal/query"
	"notification-hub-be/internal/repository"
	"notification-hub-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) repository.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *NotificationRepositoryImpl) Find(ctx context.Context, userID uuid.UUID, desc *query.Descriptor, cursor *query.Cursor, limit int) ([]model.Notification, error) {
	db := r.db.WithContext(ctx).Model(&model.Notification{})

	for _, spec := range specification.Compile(userID, desc) {
		db = spec.Apply(db)
	}
	sort := query.SortNewest
	if desc != nil {
		sort = desc.Sort
	}
	db = specification.After{Cursor: cursor}.Apply(db)
	db = specification.OrderFor{Sort: sort}.Apply(db)
	if limit > 0 {
		db = db.Limit(limit)
	}

	var notifications []model.Notification
	if err := db.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// Counts runs a single aggregate statement; the read paths never page full
// rows just to count them.
func (r *NotificationRepositoryImpl) Counts(ctx context.Context, userID uuid.UUID) (*model.NotificationCounts, error) {
	var counts model.NotificationCounts
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE NOT read) AS unread, COUNT(*) FILTER (WHERE read) AS read").
		Where("user_id = ?", userID).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *NotificationRepositoryImpl) Analytics(ctx context.Context, userID uuid.UUID, since time.Time) (int64, int64, map[string]int64, error) {
	var rows []struct {
		Type   string
		Count  int64
		Unread int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Select("type, COUNT(*) AS count, COUNT(*) FILTER (WHERE NOT read) AS unread").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, nil, err
	}

	var total, unread int64
	byType := make(map[string]int64, len(rows))
	for _, row := range rows {
		total += row.Count
		unread += row.Unread
		byType[row.Type] = row.Count
	}
	return total, unread, byType, nil
}

func (r *NotificationRepositoryImpl) UpdateByID(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(patch)
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) UpdateByIDs(ctx context.Context, ids []uuid.UUID, patch map[string]interface{}) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id IN ?", ids).
		Updates(patch)
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteByID(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]interface{}{
			"read":       true,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND read = ?", userID, true).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteByType(ctx context.Context, userID uuid.UUID, notifType string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, notifType).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) FindUndigested(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	var notifications []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND read = ? AND digested_at IS NULL", userID, false).
		Order("created_at ASC, id ASC").
		Find(&notifications).Error
	return notifications, err
}
