package scheduler

import (
	"sync"
	"time"
)

// ImageBudget caps how many images are posted per clock hour and per day.
// A zero limit is unlimited.
type ImageBudget struct {
	mu         sync.Mutex
	maxPerHour int
	maxPerDay  int
	loc        *time.Location

	hourStart time.Time
	dayStart  time.Time
	thisHour  int
	today     int
}

func NewImageBudget(maxPerHour, maxPerDay int, loc *time.Location) *ImageBudget {
	if loc == nil {
		loc = time.UTC
	}
	return &ImageBudget{maxPerHour: maxPerHour, maxPerDay: maxPerDay, loc: loc}
}

func (b *ImageBudget) roll(now time.Time) {
	local := now.In(b.loc)
	hour := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, b.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, b.loc)
	if !hour.Equal(b.hourStart) {
		b.hourStart, b.thisHour = hour, 0
	}
	if !day.Equal(b.dayStart) {
		b.dayStart, b.today = day, 0
	}
}

// Allow clamps want to what is left of both budgets.
func (b *ImageBudget) Allow(now time.Time, want int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll(now)

	allowed := want
	if b.maxPerHour > 0 {
		allowed = min(allowed, b.maxPerHour-b.thisHour)
	}
	if b.maxPerDay > 0 {
		allowed = min(allowed, b.maxPerDay-b.today)
	}
	return max(allowed, 0)
}

func (b *ImageBudget) Record(now time.Time, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll(now)
	b.thisHour += n
	b.today += n
}

// Usage returns the images used this hour and today.
func (b *ImageBudget) Usage(now time.Time) (hour, day int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll(now)
	return b.thisHour, b.today
}
