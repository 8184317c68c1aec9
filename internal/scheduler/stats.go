package scheduler

import (
	"sync"
	"time"

	"github.com/spacesedan/photobot/internal/models"
)

// Stats holds the runner's counters. Only the active run writes; API handlers
// read snapshots.
type Stats struct {
	mu           sync.Mutex
	startedAt    time.Time
	total        int
	success      int
	failure      int
	distribution map[models.PersonalityType]int
	failures     map[models.FailureKind]int
}

func NewStats(startedAt time.Time) *Stats {
	return &Stats{
		startedAt:    startedAt,
		distribution: make(map[models.PersonalityType]int),
		failures:     make(map[models.FailureKind]int),
	}
}

func (s *Stats) RecordSuccess(pt models.PersonalityType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.success++
	s.distribution[pt]++
}

func (s *Stats) RecordFailure(kind models.FailureKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.failure++
	s.failures[kind]++
}

func (s *Stats) Snapshot() models.RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	distribution := make(map[models.PersonalityType]int, len(s.distribution))
	for k, v := range s.distribution {
		distribution[k] = v
	}
	failures := make(map[models.FailureKind]int, len(s.failures))
	for k, v := range s.failures {
		failures[k] = v
	}
	return models.RunStats{
		TotalPosts:              s.total,
		SuccessCount:            s.success,
		FailureCount:            s.failure,
		PersonalityDistribution: distribution,
		FailuresByKind:          failures,
		StartedAt:               s.startedAt,
	}
}
