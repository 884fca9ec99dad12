package attempt

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-academy/internal/progress"
)

func TestCooldownAt(t *testing.T) {
	last := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entry := &progress.Cooldown{LastAttemptAt: last}

	tests := []struct {
		name          string
		entry         *progress.Cooldown
		hours         int
		now           time.Time
		wantActive    bool
		wantRemaining int
	}{
		{"no entry", nil, 24, last, false, 0},
		{"zero window", entry, 0, last, false, 0},
		{"just attempted", entry, 24, last, true, 1440},
		{"one second left", entry, 24, last.Add(24*time.Hour - time.Second), true, 1},
		{"ninety seconds left rounds up", entry, 24, last.Add(24*time.Hour - 90*time.Second), true, 2},
		{"exactly elapsed", entry, 24, last.Add(24 * time.Hour), false, 0},
		{"elapsed plus one second", entry, 24, last.Add(24*time.Hour + time.Second), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cooldownAt(tt.entry, tt.hours, tt.now)
			if got.Active != tt.wantActive {
				t.Fatalf("Active = %v, want %v", got.Active, tt.wantActive)
			}
			if got.RemainingMinutes != tt.wantRemaining {
				t.Errorf("RemainingMinutes = %d, want %d", got.RemainingMinutes, tt.wantRemaining)
			}
			if tt.wantActive {
				if got.RetryAt == nil || !got.RetryAt.Equal(last.Add(time.Duration(tt.hours)*time.Hour)) {
					t.Errorf("RetryAt = %v, want %v", got.RetryAt, last.Add(time.Duration(tt.hours)*time.Hour))
				}
			}
		})
	}
}

func TestChapterCooldown_PerChapter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := progress.New("u1", "c1")
	p.AppendChapterTestAttempt("ch1", 10, false, now)

	if !chapterCooldown(p, "ch1", 24, now.Add(time.Hour)).Active {
		t.Error("ch1 should be cooling down")
	}
	if chapterCooldown(p, "ch2", 24, now.Add(time.Hour)).Active {
		t.Error("ch2 has no attempts and should not be cooling down")
	}
	if chapterCooldown(nil, "ch1", 24, now).Active {
		t.Error("missing progress should never block")
	}
}
