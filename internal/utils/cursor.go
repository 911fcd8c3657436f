package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// RecordCursor is the keyset position of the last item on a newest-first page.
type RecordCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeRecordCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(RecordCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeRecordCursor(cursor string) (RecordCursor, error) {
	if cursor == "" {
		return RecordCursor{}, ErrInvalidCursor
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return RecordCursor{}, ErrInvalidCursor
	}
	var c RecordCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return RecordCursor{}, ErrInvalidCursor
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return RecordCursor{}, ErrInvalidCursor
	}
	return c, nil
}
