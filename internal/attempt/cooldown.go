package attempt

import (
	"fmt"
	"math"
	"time"

	"github.com/p-n-ai/pai-academy/internal/progress"
)

// Cooldown is the retry state of a throttled assessment.
type Cooldown struct {
	Active           bool       `json:"active"`
	RemainingMinutes int        `json:"remaining_minutes"`
	RetryAt          *time.Time `json:"retry_at,omitempty"`
}

// Message is the denial text shown while the cooldown is active.
func (c Cooldown) Message() string {
	return fmt.Sprintf("please wait %d minutes before retrying", c.RemainingMinutes)
}

// cooldownAt reports the cooldown state at now for the given last attempt.
// A nil entry or a non-positive window never blocks.
func cooldownAt(entry *progress.Cooldown, hours int, now time.Time) Cooldown {
	if entry == nil || hours <= 0 {
		return Cooldown{}
	}
	window := time.Duration(hours) * time.Hour
	retryAt := entry.LastAttemptAt.Add(window)
	if now.Sub(entry.LastAttemptAt) >= window {
		return Cooldown{}
	}
	remaining := retryAt.Sub(now)
	return Cooldown{
		Active:           true,
		RemainingMinutes: int(math.Ceil(remaining.Minutes())),
		RetryAt:          &retryAt,
	}
}

func chapterCooldown(p *progress.Progress, chapterID string, hours int, now time.Time) Cooldown {
	if p == nil {
		return Cooldown{}
	}
	entry, ok := p.ChapterTestCooldowns[chapterID]
	if !ok {
		return Cooldown{}
	}
	return cooldownAt(&entry, hours, now)
}

func finalExamCooldown(p *progress.Progress, hours int, now time.Time) Cooldown {
	if p == nil {
		return Cooldown{}
	}
	return cooldownAt(p.FinalExamCooldown, hours, now)
}

// cooldownError aborts a store update when the cooldown became active between
// the pre-check and the locked re-check.
type cooldownError struct {
	cooldown Cooldown
}

func (e *cooldownError) Error() string { return e.cooldown.Message() }
