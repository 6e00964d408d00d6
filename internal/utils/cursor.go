package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

type cursorPayload struct {
	TS time.Time `json:"ts"`
	ID string    `json:"id"`
}

// EncodeCursor packs a keyset position into an opaque base64url token.
func EncodeCursor(ts time.Time, id string) (string, error) {
	b, err := json.Marshal(cursorPayload{TS: ts.UTC(), ID: id})

	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(raw string) (time.Time, string, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)

	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}

	var p cursorPayload

	if err := json.Unmarshal(b, &p); err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}

	if p.ID == "" {
		return time.Time{}, "", ErrInvalidCursor
	}

	return p.TS, p.ID, nil
}
