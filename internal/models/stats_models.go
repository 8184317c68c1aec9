package models

import "time"

type RunStats struct {
	TotalPosts              int                     `json:"total_posts"`
	SuccessCount            int                     `json:"success_count"`
	FailureCount            int                     `json:"failure_count"`
	PersonalityDistribution map[PersonalityType]int `json:"personality_distribution"`
	FailuresByKind          map[FailureKind]int     `json:"failures_by_kind"`
	ImagesToday             int                     `json:"images_today"`
	ImagesThisHour          int                     `json:"images_this_hour"`
	StartedAt               time.Time               `json:"started_at"`
}

type RunStatus struct {
	Enabled         bool      `json:"enabled"`
	State           string    `json:"state"`
	LastRunAt       time.Time `json:"last_run_at,omitempty"`
	LastOutcome     string    `json:"last_outcome,omitempty"`
	NextRunAt       time.Time `json:"next_run_at,omitempty"`
	BackendHealthy  bool      `json:"backend_healthy"`
	IntervalMinutes int       `json:"interval_minutes"`
}
