package record

import (
	"errors"
	"testing"
	"time"
)

func TestNewRejectsEmptyTitle(t *testing.T) {
	now := time.Now()

	for _, title := range []string{"", "   ", "\t"} {
		_, err := New(title, "//example.com/v/1", "someone", now, 1, 0, 60, SourceSearch, now)
		if !errors.Is(err, ErrEmptyTitle) {
			t.Errorf("New(title=%q) error = %v, want ErrEmptyTitle", title, err)
		}
	}
}

func TestNewStampsCollectDate(t *testing.T) {
	release := time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC)
	collected := time.Date(2024, 8, 20, 15, 30, 0, 0, time.UTC)

	rec, err := New("a title", "//example.com/v/1", "someone", release, 12000, 34, 62, SourceAPI, collected)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !rec.CollectDate.Equal(collected) {
		t.Errorf("CollectDate = %v, want %v", rec.CollectDate, collected)
	}
	if !rec.ReleaseDate.Equal(release) {
		t.Errorf("ReleaseDate = %v, want %v", rec.ReleaseDate, release)
	}
	if rec.Source != SourceAPI {
		t.Errorf("Source = %q, want %q", rec.Source, SourceAPI)
	}
}
