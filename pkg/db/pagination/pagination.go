package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const (
	DefaultTake = 20
	MaxTake     = 100
)

var ErrInvalidCursor = errors.New("invalid_cursor")

// Cursor points at the last row of the previous page in (created_at, id) order.
type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}
	if cursor.ID == "" {
		return nil, ErrInvalidCursor
	}
	return &cursor, nil
}

// ClampTake bounds a requested page size to [1, MaxTake]; zero selects DefaultTake.
func ClampTake(take int) int {
	switch {
	case take == 0:
		return DefaultTake
	case take < 1:
		return 1
	case take > MaxTake:
		return MaxTake
	default:
		return take
	}
}
