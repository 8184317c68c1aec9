package scheduler

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	// 2024-05-01 is a Wednesday
	return time.Date(2024, 5, 1, hour, minute, 0, 0, time.UTC)
}

func TestInQuietWindow(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		hour       int
		want       bool
	}{
		{"inside", 2, 6, 3, true},
		{"start inclusive", 2, 6, 2, true},
		{"end exclusive", 2, 6, 6, false},
		{"before", 2, 6, 1, false},
		{"wrap late", 22, 5, 23, true},
		{"wrap early", 22, 5, 4, true},
		{"wrap outside", 22, 5, 12, false},
		{"empty window", 4, 4, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			p.QuietStart, p.QuietEnd = tt.start, tt.end
			assert.Equal(t, tt.want, p.InQuietWindow(at(tt.hour, 0)))
		})
	}
}

func TestNextFire(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, at(13, 0), p.NextFire(at(12, 0)))
	assert.Equal(t, at(6, 0), p.NextFire(at(1, 30)), "pushed to window end")

	p.QuietStart, p.QuietEnd = 22, 5
	next := p.NextFire(at(21, 30))
	assert.Equal(t, time.Date(2024, 5, 2, 5, 0, 0, 0, time.UTC), next, "wrapping window ends the next day")
	assert.Equal(t, at(5, 0), p.NextFire(at(3, 0)))
}

func TestNextFireUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	p := DefaultPolicy()
	p.Location = loc

	// 23:30 UTC is 02:30 local, inside 02:00-06:00 local
	next := p.NextFire(time.Date(2024, 5, 1, 22, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 2, 6, 0, 0, 0, loc), next)
	assert.True(t, next.Equal(time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC)))
}

func TestPostsPerRunFollowsWeightTables(t *testing.T) {
	p := DefaultPolicy()
	rng := rand.New(rand.NewPCG(7, 11))

	weekday := at(12, 0)
	saturday := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)

	seenWeekday := map[int]bool{}
	seenWeekend := map[int]bool{}
	for range 500 {
		seenWeekday[p.PostsPerRun(weekday, rng)] = true
		seenWeekend[p.PostsPerRun(saturday, rng)] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seenWeekday)
	assert.Equal(t, map[int]bool{2: true, 3: true, 4: true}, seenWeekend)
}

func TestPostsPerRunEmptyTable(t *testing.T) {
	p := DefaultPolicy()
	p.Weekday = WeightTable{}
	assert.Equal(t, 1, p.PostsPerRun(at(12, 0), rand.New(rand.NewPCG(1, 2))))
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.Interval = 0
	p.QuietEnd = 24
	p.Weekend = WeightTable{5: 1}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")
	assert.Contains(t, err.Error(), "0-23")
	assert.Contains(t, err.Error(), "weekend")
}

func TestImageBudget(t *testing.T) {
	b := NewImageBudget(3, 5, time.UTC)

	assert.Equal(t, 2, b.Allow(at(10, 0), 2))
	b.Record(at(10, 0), 2)
	assert.Equal(t, 1, b.Allow(at(10, 30), 4))
	b.Record(at(10, 30), 1)
	assert.Equal(t, 0, b.Allow(at(10, 59), 1))

	// new hour, day budget still applies
	assert.Equal(t, 2, b.Allow(at(11, 0), 4))
	b.Record(at(11, 0), 2)
	assert.Equal(t, 0, b.Allow(at(12, 0), 1))

	hour, day := b.Usage(at(12, 0))
	assert.Equal(t, 0, hour)
	assert.Equal(t, 5, day)

	// next day resets both
	assert.Equal(t, 3, b.Allow(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), 4))
}

func TestImageBudgetUnlimited(t *testing.T) {
	b := NewImageBudget(0, 0, nil)
	b.Record(at(10, 0), 1000)
	assert.Equal(t, 4, b.Allow(at(10, 0), 4))
}

func TestStatsSnapshotIsCopy(t *testing.T) {
	s := NewStats(at(0, 0))
	s.RecordSuccess("tech")
	snap := s.Snapshot()
	snap.PersonalityDistribution["tech"] = 99

	s.RecordFailure("submission")
	got := s.Snapshot()
	assert.Equal(t, 1, got.PersonalityDistribution["tech"])
	assert.Equal(t, 2, got.TotalPosts)
	assert.Equal(t, 1, got.FailuresByKind["submission"])
}
