package specification

import (
	"time"

	"notification-hub-be/internal/query"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Specification defines the interface for composable query predicates.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

// ForUser scopes a query to one owner.
type ForUser struct {
	UserID uuid.UUID
}

func (s ForUser) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// TypeIn is a set-membership filter (OR across the set).
type TypeIn struct {
	Types []string
}

func (s TypeIn) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Types) == 0 {
		return db
	}
	return db.Where("type IN ?", s.Types)
}

// ReadIs filters by read status.
type ReadIs struct {
	Read bool
}

func (s ReadIs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("read = ?", s.Read)
}

// CreatedWithin applies the half-open [From, To) window. Either bound may
// be nil.
type CreatedWithin struct {
	From *time.Time
	To   *time.Time
}

func (s CreatedWithin) Apply(db *gorm.DB) *gorm.DB {
	if s.From != nil {
		db = db.Where("created_at >= ?", *s.From)
	}
	if s.To != nil {
		db = db.Where("created_at < ?", *s.To)
	}
	return db
}

// MessageContains matches the message by case-insensitive substring.
type MessageContains struct {
	Search string
}

func (s MessageContains) Apply(db *gorm.DB) *gorm.DB {
	if s.Search == "" {
		return db
	}
	return db.Where("message ILIKE ?", "%"+s.Search+"%")
}

// OrderFor applies the composite sort key of a sort order. The id tiebreaker
// keeps the order total when created_at collides.
type OrderFor struct {
	Sort query.Sort
}

func (s OrderFor) Apply(db *gorm.DB) *gorm.DB {
	switch s.Sort {
	case query.SortOldest:
		return db.Order("created_at ASC, id ASC")
	case query.SortType:
		return db.Order("type ASC, created_at DESC, id DESC")
	default: // newest
		return db.Order("created_at DESC, id DESC")
	}
}

// After bounds a query strictly past a cursor position, in the cursor's own
// sort order, using row-value comparison on the composite key.
type After struct {
	Cursor *query.Cursor
}

func (s After) Apply(db *gorm.DB) *gorm.DB {
	if s.Cursor == nil {
		return db
	}
	c := s.Cursor
	switch c.Sort {
	case query.SortOldest:
		return db.Where("(created_at, id) > (?, ?)", c.CreatedAt, c.ID)
	case query.SortType:
		// Mixed directions (type asc, created_at desc, id desc) rule out a
		// row-value comparison.
		return db.Where(
			"type > ? OR (type = ? AND (created_at < ? OR (created_at = ? AND id < ?)))",
			c.Type, c.Type, c.CreatedAt, c.CreatedAt, c.ID,
		)
	default: // newest
		return db.Where("(created_at, id) < (?, ?)", c.CreatedAt, c.ID)
	}
}

// Compile translates a query descriptor into its predicate specifications.
// Ordering and cursor bounds are applied separately by the repository.
func Compile(userID uuid.UUID, desc *query.Descriptor) []Specification {
	specs := []Specification{ForUser{UserID: userID}}
	if desc == nil {
		return specs
	}
	if len(desc.Types) > 0 {
		specs = append(specs, TypeIn{Types: desc.Types})
	}
	switch desc.Status {
	case query.StatusRead:
		specs = append(specs, ReadIs{Read: true})
	case query.StatusUnread:
		specs = append(specs, ReadIs{Read: false})
	}
	if desc.DateFrom != nil || desc.DateTo != nil {
		specs = append(specs, CreatedWithin{From: desc.DateFrom, To: desc.DateTo})
	}
	if desc.Search != "" {
		specs = append(specs, MessageContains{Search: desc.Search})
	}
	return specs
}
