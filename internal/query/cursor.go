package query

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCursor signals a malformed cursor token or one encoded under a
// different sort order than the request asks for.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the position of the last item of the previous page. The id is
// the tiebreaker that keeps the composite sort key totally ordered even when
// timestamps collide. For SortType the cursor additionally carries the type
// of the last item (primary key of that ordering).
type Cursor struct {
	Sort      Sort      `json:"sort"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

// Encode serializes a cursor into an opaque base64 token.
func (c Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token and verifies it was produced under the
// requested sort. A cursor from another sort order is rejected, never
// silently reinterpreted.
func DecodeCursor(sort Sort, token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidCursor, err)
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Join(ErrInvalidCursor, err)
	}
	if c.Sort != sort {
		return nil, errors.Join(ErrInvalidCursor,
			errors.New("cursor was issued for sort "+string(c.Sort)))
	}
	if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		return nil, errors.Join(ErrInvalidCursor, errors.New("missing sort key"))
	}
	if c.Sort == SortType && c.Type == "" {
		return nil, errors.Join(ErrInvalidCursor, errors.New("missing type key"))
	}
	return &c, nil
}
