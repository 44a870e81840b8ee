package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		name string
		in   int
		want int
	}{
		{"zero falls back to default", 0, DefaultLimit},
		{"negative falls back to default", -5, DefaultLimit},
		{"in range passes through", 40, 40},
		{"above max is clamped", MaxLimit + 1, MaxLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeLimit(tc.in); got != tc.want {
				t.Fatalf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC),
		ID:        uuid.New(),
	}

	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if got == nil {
		t.Fatal("expected a cursor, got nil")
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestParseCursorEmptyMeansFirstPage(t *testing.T) {
	for _, token := range []string{"", "   "} {
		cursor, err := ParseCursor(token)
		if err != nil {
			t.Fatalf("ParseCursor(%q): %v", token, err)
		}
		if cursor != nil {
			t.Fatalf("ParseCursor(%q) = %+v, want nil", token, cursor)
		}
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"!!!", "bm8tc2VwYXJhdG9y", EncodeCursor(Cursor{}) + "x"} {
		if _, err := ParseCursor(token); err == nil {
			t.Fatalf("ParseCursor(%q): expected error", token)
		}
	}
}
