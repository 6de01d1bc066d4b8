package query

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundtrip(t *testing.T) {
	created := time.Date(2026, 5, 2, 14, 30, 0, 123456000, time.UTC)
	id := uuid.New()

	tests := []struct {
		name   string
		cursor Cursor
	}{
		{"newest", Cursor{Sort: SortNewest, CreatedAt: created, ID: id}},
		{"oldest", Cursor{Sort: SortOldest, CreatedAt: created, ID: id}},
		{"type carries type key", Cursor{Sort: SortType, Type: "billing", CreatedAt: created, ID: id}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.cursor.Encode()
			got, err := DecodeCursor(tt.cursor.Sort, token)
			if err != nil {
				t.Fatalf("DecodeCursor() error = %v", err)
			}
			if !got.CreatedAt.Equal(tt.cursor.CreatedAt) || got.ID != tt.cursor.ID || got.Type != tt.cursor.Type {
				t.Errorf("DecodeCursor() = %+v, want %+v", got, tt.cursor)
			}
		})
	}
}

func TestCursorSortMismatchRejected(t *testing.T) {
	token := Cursor{Sort: SortNewest, CreatedAt: time.Now(), ID: uuid.New()}.Encode()

	_, err := DecodeCursor(SortType, token)
	if !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("DecodeCursor() error = %v, want ErrInvalidCursor", err)
	}
}

func TestCursorMalformedRejected(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"not json", "bm90LWpzb24"},
		{"empty payload", Cursor{Sort: SortNewest}.Encode()},
		{"type sort without type key", Cursor{Sort: SortType, CreatedAt: time.Now(), ID: uuid.New()}.Encode()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCursor(SortType, tt.token); !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("DecodeCursor(%q) error = %v, want ErrInvalidCursor", tt.token, err)
			}
		})
	}
}
