package service

import (
	"context"
	"fmt"
	"time"

	"notification-hub-be/internal/model"
	"notification-hub-be/internal/pkg/logger"
	"notification-hub-be/internal/query"
	"notification-hub-be/internal/repository"
	"notification-hub-be/pkg/batch"

	"github.com/google/uuid"
)

const (
	MaxPageLimit   = 100
	MaxRecentLimit = 50
	MaxWindowDays  = 365
)

// DigestTransmitter hands one user's accumulated notifications to the
// transmission layer as a single unit.
type DigestTransmitter interface {
	SendDigest(ctx context.Context, userID uuid.UUID, notifications []model.Notification) error
}

// NotificationService orchestrates filtering, pagination, bulk mutation and
// digest flushing over the notification store. It holds no state between
// calls; every durable fact lives in the store.
type NotificationService struct {
	repo     repository.NotificationRepository
	digest   DigestTransmitter
	prefs    *PreferenceService
	logger   logger.ILogger
	onCreate func(model.Notification)
}

func NewNotificationService(repo repository.NotificationRepository, prefs *PreferenceService, digest DigestTransmitter, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		digest: digest,
		prefs:  prefs,
		logger: log,
	}
}

// OnCreate registers the hook invoked after every successful create. The
// dispatcher uses it to feed the channel pipeline.
func (s *NotificationService) OnCreate(fn func(model.Notification)) {
	s.onCreate = fn
}

// Create persists a new unread notification.
func (s *NotificationService) Create(ctx context.Context, userID uuid.UUID, notifType, message string, link *string) (*model.Notification, error) {
	now := time.Now()
	notif := model.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Message:   message,
		Link:      link,
		Read:      false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, &notif); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	if s.onCreate != nil {
		s.onCreate(notif)
	}
	return &notif, nil
}

// GetPage returns one page of up to limit rows plus the cursor for the next
// page, or an empty cursor at the end of results. It fetches limit+1 rows to
// detect "has more" without a count query.
func (s *NotificationService) GetPage(ctx context.Context, userID uuid.UUID, spec query.FilterSpec, cursorToken string, limit int) ([]model.Notification, *string, error) {
	if limit < 1 || limit > MaxPageLimit {
		return nil, nil, fmt.Errorf("%w: limit %d out of [1,%d]", query.ErrInvalidFilter, limit, MaxPageLimit)
	}
	desc, err := query.Compile(spec)
	if err != nil {
		return nil, nil, err
	}

	var cursor *query.Cursor
	if cursorToken != "" {
		if cursor, err = query.DecodeCursor(desc.Sort, cursorToken); err != nil {
			return nil, nil, err
		}
	}

	rows, err := s.repo.Find(ctx, userID, desc, cursor, limit+1)
	if err != nil {
		return nil, nil, fmt.Errorf("find notifications: %w", err)
	}

	if len(rows) <= limit {
		return rows, nil, nil
	}
	rows = rows[:limit]
	last := rows[limit-1]
	next := query.Cursor{
		Sort:      desc.Sort,
		CreatedAt: last.CreatedAt,
		ID:        last.ID,
	}
	if desc.Sort == query.SortType {
		next.Type = last.Type
	}
	token := next.Encode()
	return rows, &token, nil
}

// GetRecent is GetPage with sortBy=newest and no filters, items only.
func (s *NotificationService) GetRecent(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error) {
	if limit < 1 || limit > MaxRecentLimit {
		return nil, fmt.Errorf("%w: limit %d out of [1,%d]", query.ErrInvalidFilter, limit, MaxRecentLimit)
	}
	items, _, err := s.GetPage(ctx, userID, query.FilterSpec{SortBy: query.SortNewest}, "", limit)
	return items, err
}

// Export returns the full ordered result set for a filter, unbounded. Filter
// and order semantics are identical to GetPage so preview and export agree.
func (s *NotificationService) Export(ctx context.Context, userID uuid.UUID, spec query.FilterSpec) ([]model.Notification, error) {
	desc, err := query.Compile(spec)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Find(ctx, userID, desc, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("export notifications: %w", err)
	}
	return rows, nil
}

func (s *NotificationService) Counts(ctx context.Context, userID uuid.UUID) (*model.NotificationCounts, error) {
	counts, err := s.repo.Counts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	return counts, nil
}

func (s *NotificationService) Analytics(ctx context.Context, userID uuid.UUID, windowDays int) (*model.NotificationAnalytics, error) {
	if windowDays < 1 || windowDays > MaxWindowDays {
		return nil, fmt.Errorf("%w: windowDays %d out of [1,%d]", query.ErrInvalidFilter, windowDays, MaxWindowDays)
	}
	since := time.Now().AddDate(0, 0, -windowDays)
	total, unread, byType, err := s.repo.Analytics(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate analytics: %w", err)
	}
	return &model.NotificationAnalytics{
		WindowDays: windowDays,
		Total:      total,
		Unread:     unread,
		ByType:     byType,
	}, nil
}

// MarkAsRead sets read=true and bumps updated_at. A missing id is reported
// as ErrNotFound; an already-read row is a plain no-op.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.setRead(ctx, id, true)
}

func (s *NotificationService) MarkAsUnread(ctx context.Context, id uuid.UUID) error {
	return s.setRead(ctx, id, false)
}

func (s *NotificationService) setRead(ctx context.Context, id uuid.UUID, read bool) error {
	affected, err := s.repo.UpdateByID(ctx, id, map[string]interface{}{
		"read":       read,
		"updated_at": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete is idempotent: deleting a row that no longer exists succeeds.
func (s *NotificationService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// Predicate-scoped bulk operations, each one store statement.

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return affected, nil
}

func (s *NotificationService) DeleteAllNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	return affected, nil
}

func (s *NotificationService) DeleteReadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.DeleteRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete read: %w", err)
	}
	return affected, nil
}

func (s *NotificationService) DeleteNotificationsByType(ctx context.Context, userID uuid.UUID, notifType string) (int64, error) {
	affected, err := s.repo.DeleteByType(ctx, userID, notifType)
	if err != nil {
		return 0, fmt.Errorf("delete by type: %w", err)
	}
	return affected, nil
}

// Unbatched id-list conveniences for small lists.

func (s *NotificationService) BulkMarkAsRead(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return s.bulkSetRead(ctx, ids, true)
}

func (s *NotificationService) BulkMarkAsUnread(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return s.bulkSetRead(ctx, ids, false)
}

func (s *NotificationService) bulkSetRead(ctx context.Context, ids []uuid.UUID, read bool) (int64, error) {
	affected, err := s.repo.UpdateByIDs(ctx, ids, map[string]interface{}{
		"read":       read,
		"updated_at": time.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("bulk update: %w", err)
	}
	return affected, nil
}

func (s *NotificationService) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	affected, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete: %w", err)
	}
	return affected, nil
}

// BulkMarkAsReadOptimized processes large id lists in bounded sequential
// chunks. A failing chunk is reported in the aggregate and the run continues
// with the next chunk; ids whose rows vanished concurrently are not failures.
func (s *NotificationService) BulkMarkAsReadOptimized(ctx context.Context, ids []uuid.UUID, batchSize int) batch.Aggregate {
	agg := batch.Run(ctx, ids, batchSize, func(ctx context.Context, chunk []uuid.UUID) error {
		_, err := s.repo.UpdateByIDs(ctx, chunk, map[string]interface{}{
			"read":       true,
			"updated_at": time.Now(),
		})
		return err
	})
	if agg.Failed > 0 {
		s.logger.Warn("NotificationService", "Bulk mark-as-read completed with failures", map[string]interface{}{
			"requested": agg.Requested,
			"failed":    agg.Failed,
		})
	}
	return agg
}

// DigestFlushResult reports one digest flush: how many notifications were
// handed to the transmission layer and how the digested_at sweep went.
type DigestFlushResult struct {
	Flushed int
	Swept   int
	Failed  int
	At      time.Time
}

// FlushDigest is the scheduler hook. It collects the user's accumulated
// undigested notifications, hands them to the transmission layer as one
// unit, then stamps digested_at in bounded chunks so a huge backlog never
// becomes one giant transaction.
func (s *NotificationService) FlushDigest(ctx context.Context, userID uuid.UUID) (*DigestFlushResult, error) {
	now := time.Now()
	result := &DigestFlushResult{At: now}

	prefs, err := s.prefs.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !prefs.DigestEnabled || prefs.EmailFrequency == model.FrequencyImmediate {
		return result, nil
	}

	notifications, err := s.repo.FindUndigested(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("collect digest: %w", err)
	}
	if len(notifications) == 0 {
		return result, nil
	}

	if s.digest != nil {
		if err := s.digest.SendDigest(ctx, userID, notifications); err != nil {
			return nil, fmt.Errorf("transmit digest: %w", err)
		}
	}
	result.Flushed = len(notifications)

	ids := make([]uuid.UUID, len(notifications))
	for i, n := range notifications {
		ids[i] = n.ID
	}
	agg := batch.Run(ctx, ids, batch.DefaultChunkSize, func(ctx context.Context, chunk []uuid.UUID) error {
		_, err := s.repo.UpdateByIDs(ctx, chunk, map[string]interface{}{"digested_at": now})
		return err
	})
	result.Swept = agg.Succeeded
	result.Failed = agg.Failed

	s.logger.Info("NotificationService", "Digest flushed", map[string]interface{}{
		"user_id": userID,
		"flushed": result.Flushed,
		"swept":   result.Swept,
		"failed":  result.Failed,
	})
	return result, nil
}
