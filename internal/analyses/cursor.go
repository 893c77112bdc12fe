package analyses

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor is the keyset position after the last record of a page.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	Score     int       `json:"s"`
	ID        string    `json:"id"`
}

// EncodeCursor returns the opaque cursor positioned after r.
func EncodeCursor(r Record) string {
	payload, _ := json.Marshal(Cursor{CreatedAt: r.CreatedAt.UTC(), Score: r.OverallScore, ID: r.ID})
	return base64.RawURLEncoding.EncodeToString(payload)
}

// DecodeCursor parses a cursor produced by EncodeCursor. An empty string
// yields nil.
func DecodeCursor(raw string) (*Cursor, error) {
	if raw == "" {
		return nil, nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(payload, &c); err != nil || c.ID == "" {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// less orders records by the sort key then by id.
func less(a, b Record, sort SortField) bool {
	if sort == SortByScore {
		if a.OverallScore != b.OverallScore {
			return a.OverallScore < b.OverallScore
		}
	} else if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// afterCursor reports whether r comes after c in the listing order.
func afterCursor(r Record, c *Cursor, sort SortField, desc bool) bool {
	if c == nil {
		return true
	}
	pivot := Record{ID: c.ID, CreatedAt: c.CreatedAt, OverallScore: c.Score}
	if desc {
		return less(r, pivot, sort)
	}
	return less(pivot, r, sort)
}
