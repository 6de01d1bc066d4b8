package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"notification-hub-be/internal/model"
	"notification-hub-be/internal/query"
	"notification-hub-be/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopLogger satisfies ILogger for tests.
type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// fakeNotificationRepo is an in-memory NotificationRepository honoring the
// descriptor/cursor contract, so pagination tests exercise real ordering.
type fakeNotificationRepo struct {
	rows []model.Notification

	updateByIDsErr func(call int) error
	updateCalls    int
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	f.rows = append(f.rows, *n)
	return nil
}

func matches(n model.Notification, userID uuid.UUID, desc *query.Descriptor) bool {
	if n.UserID != userID {
		return false
	}
	if desc == nil {
		return true
	}
	if len(desc.Types) > 0 {
		found := false
		for _, t := range desc.Types {
			if n.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	switch desc.Status {
	case query.StatusRead:
		if !n.Read {
			return false
		}
	case query.StatusUnread:
		if n.Read {
			return false
		}
	}
	if desc.DateFrom != nil && n.CreatedAt.Before(*desc.DateFrom) {
		return false
	}
	if desc.DateTo != nil && !n.CreatedAt.Before(*desc.DateTo) {
		return false
	}
	if desc.Search != "" && !strings.Contains(strings.ToLower(n.Message), desc.Search) {
		return false
	}
	return true
}

// less orders a before b under the composite sort key of the given sort.
func less(a, b model.Notification, s query.Sort) bool {
	switch s {
	case query.SortOldest:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	case query.SortType:
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	default: // newest
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	}
}

func (f *fakeNotificationRepo) Find(_ context.Context, userID uuid.UUID, desc *query.Descriptor, cursor *query.Cursor, limit int) ([]model.Notification, error) {
	s := query.SortNewest
	if desc != nil {
		s = desc.Sort
	}

	var out []model.Notification
	for _, n := range f.rows {
		if matches(n, userID, desc) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j], s) })

	if cursor != nil {
		anchor := model.Notification{ID: cursor.ID, Type: cursor.Type, CreatedAt: cursor.CreatedAt}
		var after []model.Notification
		for _, n := range out {
			if less(anchor, n, s) {
				after = append(after, n)
			}
		}
		out = after
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotificationRepo) Counts(_ context.Context, userID uuid.UUID) (*model.NotificationCounts, error) {
	counts := &model.NotificationCounts{}
	for _, n := range f.rows {
		if n.UserID != userID {
			continue
		}
		counts.Total++
		if n.Read {
			counts.Read++
		} else {
			counts.Unread++
		}
	}
	return counts, nil
}

func (f *fakeNotificationRepo) Analytics(_ context.Context, userID uuid.UUID, since time.Time) (int64, int64, map[string]int64, error) {
	var total, unread int64
	byType := map[string]int64{}
	for _, n := range f.rows {
		if n.UserID != userID || n.CreatedAt.Before(since) {
			continue
		}
		total++
		byType[n.Type]++
		if !n.Read {
			unread++
		}
	}
	return total, unread, byType, nil
}

func (f *fakeNotificationRepo) UpdateByID(_ context.Context, id uuid.UUID, patch map[string]interface{}) (int64, error) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			applyPatch(&f.rows[i], patch)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeNotificationRepo) UpdateByIDs(_ context.Context, ids []uuid.UUID, patch map[string]interface{}) (int64, error) {
	f.updateCalls++
	if f.updateByIDsErr != nil {
		if err := f.updateByIDsErr(f.updateCalls); err != nil {
			return 0, err
		}
	}
	var affected int64
	for _, id := range ids {
		for i := range f.rows {
			if f.rows[i].ID == id {
				applyPatch(&f.rows[i], patch)
				affected++
			}
		}
	}
	return affected, nil
}

func applyPatch(n *model.Notification, patch map[string]interface{}) {
	if read, ok := patch["read"].(bool); ok {
		n.Read = read
	}
	if at, ok := patch["updated_at"].(time.Time); ok {
		n.UpdatedAt = at
	}
	if at, ok := patch["digested_at"].(time.Time); ok {
		n.DigestedAt = &at
	}
}

func (f *fakeNotificationRepo) DeleteByID(_ context.Context, id uuid.UUID) (int64, error) {
	return f.deleteWhere(func(n model.Notification) bool { return n.ID == id }), nil
}

func (f *fakeNotificationRepo) DeleteByIDs(_ context.Context, ids []uuid.UUID) (int64, error) {
	set := map[uuid.UUID]bool{}
	for _, id := range ids {
		set[id] = true
	}
	return f.deleteWhere(func(n model.Notification) bool { return set[n.ID] }), nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	var affected int64
	for i := range f.rows {
		if f.rows[i].UserID == userID && !f.rows[i].Read {
			f.rows[i].Read = true
			affected++
		}
	}
	return affected, nil
}

func (f *fakeNotificationRepo) DeleteAll(_ context.Context, userID uuid.UUID) (int64, error) {
	return f.deleteWhere(func(n model.Notification) bool { return n.UserID == userID }), nil
}

func (f *fakeNotificationRepo) DeleteRead(_ context.Context, userID uuid.UUID) (int64, error) {
	return f.deleteWhere(func(n model.Notification) bool { return n.UserID == userID && n.Read }), nil
}

func (f *fakeNotificationRepo) DeleteByType(_ context.Context, userID uuid.UUID, notifType string) (int64, error) {
	return f.deleteWhere(func(n model.Notification) bool { return n.UserID == userID && n.Type == notifType }), nil
}

func (f *fakeNotificationRepo) deleteWhere(match func(model.Notification) bool) int64 {
	var kept []model.Notification
	var deleted int64
	for _, n := range f.rows {
		if match(n) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	f.rows = kept
	return deleted
}

func (f *fakeNotificationRepo) FindUndigested(_ context.Context, userID uuid.UUID) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.rows {
		if n.UserID == userID && !n.Read && n.DigestedAt == nil {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j], query.SortOldest) })
	return out, nil
}

// fakePreferenceRepo backs PreferenceService in tests.
type fakePreferenceRepo struct {
	records map[uuid.UUID]model.NotificationPreference
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{records: map[uuid.UUID]model.NotificationPreference{}}
}

func (f *fakePreferenceRepo) Get(_ context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	if rec, ok := f.records[userID]; ok {
		out := rec
		return &out, nil
	}
	return nil, nil
}

func (f *fakePreferenceRepo) Save(_ context.Context, prefs *model.NotificationPreference) error {
	f.records[prefs.UserID] = *prefs
	return nil
}

func (f *fakePreferenceRepo) Delete(_ context.Context, userID uuid.UUID) error {
	delete(f.records, userID)
	return nil
}

type capturedDigest struct {
	userID uuid.UUID
	items  []model.Notification
}

type fakeDigestTransmitter struct {
	sent []capturedDigest
}

func (f *fakeDigestTransmitter) SendDigest(_ context.Context, userID uuid.UUID, items []model.Notification) error {
	f.sent = append(f.sent, capturedDigest{userID: userID, items: items})
	return nil
}

func newTestEngine(t *testing.T) (*NotificationService, *fakeNotificationRepo, *fakePreferenceRepo, *fakeDigestTransmitter) {
	t.Helper()
	repo := &fakeNotificationRepo{}
	prefRepo := newFakePreferenceRepo()
	digest := &fakeDigestTransmitter{}
	prefs := NewPreferenceService(prefRepo, newTestCache(), nopLogger{})
	engine := NewNotificationService(repo, prefs, digest, nopLogger{})
	return engine, repo, prefRepo, digest
}

func seed(repo *fakeNotificationRepo, userID uuid.UUID, notifType, message string, read bool, createdAt time.Time) model.Notification {
	n := model.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Message:   message,
		Read:      read,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	repo.rows = append(repo.rows, n)
	return n
}

func TestGetPageEndToEnd(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	n1 := seed(repo, u1, "info", "first", false, base)
	seed(repo, u1, "billing", "second", true, base.Add(time.Minute))
	n3 := seed(repo, u1, "info", "third", false, base.Add(2*time.Minute))

	spec := query.FilterSpec{Types: []string{"info"}, SortBy: query.SortNewest}

	page1, next, err := engine.GetPage(ctx, u1, spec, "", 1)
	require.NoError(t, err)
	require.Len(t, page1, 1)
	assert.Equal(t, n3.ID, page1[0].ID)
	require.NotNil(t, next)

	page2, next2, err := engine.GetPage(ctx, u1, spec, *next, 1)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, n1.ID, page2[0].ID)
	assert.Nil(t, next2)
}

func TestPaginationStabilityMatchesExport(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	types := []string{"info", "billing", "security"}
	for i := 0; i < 23; i++ {
		// Deliberate timestamp collisions every three rows exercise the id
		// tiebreaker.
		seed(repo, u1, types[i%3], "msg", i%2 == 0, base.Add(time.Duration(i/3)*time.Hour))
	}

	for _, sortBy := range []query.Sort{query.SortNewest, query.SortOldest, query.SortType} {
		t.Run(string(sortBy), func(t *testing.T) {
			spec := query.FilterSpec{SortBy: sortBy}

			exported, err := engine.Export(ctx, u1, spec)
			require.NoError(t, err)
			require.Len(t, exported, 23)

			var paged []model.Notification
			cursor := ""
			for {
				page, next, err := engine.GetPage(ctx, u1, spec, cursor, 4)
				require.NoError(t, err)
				paged = append(paged, page...)
				if next == nil {
					break
				}
				cursor = *next
			}

			require.Len(t, paged, len(exported), "no duplicates, no omissions")
			for i := range exported {
				assert.Equal(t, exported[i].ID, paged[i].ID, "order diverges at %d", i)
			}
		})
	}
}

func TestGetPageRejectsForeignCursor(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	for i := 0; i < 3; i++ {
		seed(repo, u1, "info", "msg", false, time.Now().Add(time.Duration(i)*time.Minute))
	}

	_, next, err := engine.GetPage(ctx, u1, query.FilterSpec{SortBy: query.SortNewest}, "", 1)
	require.NoError(t, err)
	require.NotNil(t, next)

	_, _, err = engine.GetPage(ctx, u1, query.FilterSpec{SortBy: query.SortType}, *next, 1)
	assert.ErrorIs(t, err, query.ErrInvalidCursor)
}

func TestGetPageLimitValidation(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	for _, limit := range []int{0, -1, 101} {
		_, _, err := engine.GetPage(ctx, uuid.New(), query.FilterSpec{}, "", limit)
		assert.ErrorIs(t, err, query.ErrInvalidFilter, "limit %d", limit)
	}

	_, err := engine.GetRecent(ctx, uuid.New(), 51)
	assert.ErrorIs(t, err, query.ErrInvalidFilter)

	_, err = engine.Analytics(ctx, uuid.New(), 366)
	assert.ErrorIs(t, err, query.ErrInvalidFilter)
}

func TestMarkAsRead(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	n := seed(repo, u1, "info", "msg", false, time.Now())

	require.NoError(t, engine.MarkAsRead(ctx, n.ID))
	assert.True(t, repo.rows[0].Read)

	// Already read: still a success.
	require.NoError(t, engine.MarkAsRead(ctx, n.ID))

	// Missing id is NotFound, unlike the batch paths.
	err := engine.MarkAsRead(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, engine.MarkAsUnread(ctx, n.ID))
	assert.False(t, repo.rows[0].Read)
}

func TestDeleteIdempotent(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	n := seed(repo, uuid.New(), "info", "msg", false, time.Now())

	require.NoError(t, engine.Delete(ctx, n.ID))
	assert.Empty(t, repo.rows)
	require.NoError(t, engine.Delete(ctx, n.ID), "second delete must also succeed")
}

func TestPredicateScopedBulkOps(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	u2 := uuid.New()
	now := time.Now()

	seed(repo, u1, "info", "a", false, now)
	seed(repo, u1, "billing", "b", false, now)
	seed(repo, u1, "billing", "c", true, now)
	seed(repo, u2, "info", "other user", false, now)

	affected, err := engine.MarkAllAsRead(ctx, u1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	affected, err = engine.DeleteNotificationsByType(ctx, u1, "billing")
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	affected, err = engine.DeleteReadNotifications(ctx, u1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	// The other user's inbox is untouched.
	counts, err := engine.Counts(ctx, u2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.Total)
}

func TestCountsConsistentWithExport(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	now := time.Now()

	for i := 0; i < 9; i++ {
		seed(repo, u1, "info", "msg", i%3 == 0, now.Add(time.Duration(i)*time.Second))
	}

	counts, err := engine.Counts(ctx, u1)
	require.NoError(t, err)

	exported, err := engine.Export(ctx, u1, query.FilterSpec{Status: query.StatusAll})
	require.NoError(t, err)

	assert.EqualValues(t, len(exported), counts.Total)
	assert.Equal(t, counts.Total, counts.Read+counts.Unread)
}

func TestBulkMarkAsReadOptimizedPartialFailure(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	now := time.Now()

	ids := make([]uuid.UUID, 250)
	for i := range ids {
		ids[i] = seed(repo, u1, "info", "msg", false, now).ID
	}

	repo.updateByIDsErr = func(call int) error {
		if call == 2 {
			return errors.New("connection reset")
		}
		return nil
	}

	agg := engine.BulkMarkAsReadOptimized(ctx, ids, 100)

	assert.Equal(t, 250, agg.Requested)
	assert.Equal(t, 150, agg.Succeeded)
	assert.Equal(t, 100, agg.Failed)
	assert.Equal(t, 3, repo.updateCalls, "third chunk still runs after the second fails")
	require.Len(t, agg.Failures, 100)
	assert.Equal(t, ids[100], agg.Failures[0].ID)
}

func TestBulkConveniences(t *testing.T) {
	engine, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	now := time.Now()

	a := seed(repo, u1, "info", "a", false, now)
	b := seed(repo, u1, "info", "b", false, now)

	// A vanished id is not an error on the bulk path, just unmatched.
	affected, err := engine.BulkMarkAsRead(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	affected, err = engine.BulkDelete(ctx, []uuid.UUID{a.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
}

func TestFlushDigest(t *testing.T) {
	engine, repo, prefRepo, digest := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	now := time.Now()

	prefs := model.DefaultPreference(u1)
	prefs.DigestEnabled = true
	prefs.EmailFrequency = model.FrequencyDaily
	require.NoError(t, prefRepo.Save(ctx, prefs))

	seed(repo, u1, "info", "a", false, now.Add(-2*time.Hour))
	seed(repo, u1, "billing", "b", false, now.Add(-time.Hour))
	seed(repo, u1, "info", "already read", true, now)

	result, err := engine.FlushDigest(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Flushed)
	assert.Equal(t, 2, result.Swept)
	assert.Zero(t, result.Failed)

	require.Len(t, digest.sent, 1)
	assert.Equal(t, u1, digest.sent[0].userID)
	require.Len(t, digest.sent[0].items, 2)
	assert.Equal(t, "a", digest.sent[0].items[0].Message, "oldest first")

	// Everything swept: the next flush transmits nothing.
	result, err = engine.FlushDigest(ctx, u1)
	require.NoError(t, err)
	assert.Zero(t, result.Flushed)
	require.Len(t, digest.sent, 1)
}

func TestFlushDigestSkippedWithoutDigestMode(t *testing.T) {
	engine, repo, _, digest := newTestEngine(t)
	ctx := context.Background()
	u1 := uuid.New()
	seed(repo, u1, "info", "a", false, time.Now())

	// Default preferences: digest disabled, immediate frequency.
	result, err := engine.FlushDigest(ctx, u1)
	require.NoError(t, err)
	assert.Zero(t, result.Flushed)
	assert.Empty(t, digest.sent)
}
