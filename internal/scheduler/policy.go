package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spacesedan/photobot/internal/captions"
)

const (
	DEFAULT_INTERVAL    = 60 * time.Minute
	DEFAULT_QUIET_START = 2
	DEFAULT_QUIET_END   = 6
	MAX_POSTS_PER_RUN   = 4
)

// WeightTable maps a number of posts per run to its relative weight.
type WeightTable map[int]int

var (
	DefaultWeekdayWeights = WeightTable{1: 5, 2: 3, 3: 2}
	DefaultWeekendWeights = WeightTable{2: 3, 3: 4, 4: 3}
)

// Policy decides when runs fire and how many posts each one makes.
type Policy struct {
	Interval   time.Duration
	QuietStart int
	QuietEnd   int
	Location   *time.Location
	Weekday    WeightTable
	Weekend    WeightTable
}

func DefaultPolicy() Policy {
	return Policy{
		Interval:   DEFAULT_INTERVAL,
		QuietStart: DEFAULT_QUIET_START,
		QuietEnd:   DEFAULT_QUIET_END,
		Location:   time.UTC,
		Weekday:    DefaultWeekdayWeights,
		Weekend:    DefaultWeekendWeights,
	}
}

func (p Policy) Validate() error {
	var errs []error
	if p.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if p.QuietStart < 0 || p.QuietStart > 23 || p.QuietEnd < 0 || p.QuietEnd > 23 {
		errs = append(errs, errors.New("quiet window hours must be within 0-23"))
	}
	for name, table := range map[string]WeightTable{"weekday": p.Weekday, "weekend": p.Weekend} {
		for posts, weight := range table {
			if posts < 1 || posts > MAX_POSTS_PER_RUN {
				errs = append(errs, fmt.Errorf("%s table: posts per run %d outside 1-%d", name, posts, MAX_POSTS_PER_RUN))
			}
			if weight < 0 {
				errs = append(errs, fmt.Errorf("%s table: negative weight for %d", name, posts))
			}
		}
	}
	return errors.Join(errs...)
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// InQuietWindow reports whether t falls in [QuietStart, QuietEnd). The window
// may wrap midnight; equal bounds mean there is no quiet window.
func (p Policy) InQuietWindow(t time.Time) bool {
	if p.QuietStart == p.QuietEnd {
		return false
	}
	h := t.In(p.location()).Hour()
	if p.QuietStart < p.QuietEnd {
		return h >= p.QuietStart && h < p.QuietEnd
	}
	return h >= p.QuietStart || h < p.QuietEnd
}

// NextFire is one interval after from, pushed to the end of the quiet window
// when it lands inside it.
func (p Policy) NextFire(from time.Time) time.Time {
	next := from.Add(p.Interval)
	if !p.InQuietWindow(next) {
		return next
	}
	local := next.In(p.location())
	end := time.Date(local.Year(), local.Month(), local.Day(), p.QuietEnd, 0, 0, 0, p.location())
	if !end.After(local) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// PostsPerRun draws from the weekday or weekend table for t.
func (p Policy) PostsPerRun(t time.Time, rng captions.Rand) int {
	table := p.Weekday
	switch t.In(p.location()).Weekday() {
	case time.Saturday, time.Sunday:
		table = p.Weekend
	}

	keys := make([]int, 0, len(table))
	total := 0
	for posts, weight := range table {
		if weight > 0 && posts >= 1 && posts <= MAX_POSTS_PER_RUN {
			keys = append(keys, posts)
			total += weight
		}
	}
	if total == 0 {
		return 1
	}
	sort.Ints(keys)

	r := rng.IntN(total)
	for _, posts := range keys {
		if r < table[posts] {
			return posts
		}
		r -= table[posts]
	}
	return keys[len(keys)-1]
}
