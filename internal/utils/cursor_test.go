package utils

import (
	"errors"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)

	cur, err := EncodeCursor(ts, "e42b6ed3-0af3-49f0-9dcd-37aa7ed8c980")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	gotTS, gotID, err := DecodeCursor(cur)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !gotTS.Equal(ts) || gotID != "e42b6ed3-0af3-49f0-9dcd-37aa7ed8c980" {
		t.Fatalf("round trip mismatch: %v %s", gotTS, gotID)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"!!!", "", "bm90LWpzb24", "e30"} {
		if _, _, err := DecodeCursor(raw); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("cursor %q: got %v, want ErrInvalidCursor", raw, err)
		}
	}
}
