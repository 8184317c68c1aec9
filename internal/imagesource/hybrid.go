package imagesource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/spacesedan/photobot/internal/captions"
	"github.com/spacesedan/photobot/internal/clients"
	"github.com/spacesedan/photobot/internal/models"
)

const (
	MAX_CONSECUTIVE_ERRORS = 3
	MIN_SEARCH_PAGE        = 10
	SEARCH_PAGE_FACTOR     = 3
)

// Source is one image-search provider. clients.UnsplashClient and
// clients.PexelsClient implement it.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, perPage int) ([]models.CandidatePhoto, error)
}

// DownloadTracker is implemented by providers that want a ping when a photo is used.
type DownloadTracker interface {
	TrackDownload(ctx context.Context, photo models.CandidatePhoto) error
}

type Weighted struct {
	Source Source
	Weight float64
}

type ProviderHealth struct {
	Name              string `json:"name"`
	Healthy           bool   `json:"healthy"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
	RateLimited       bool   `json:"rate_limited"`
}

// Hybrid picks a provider by weight, falls through to the others on failure
// or empty results, and drops photos posted in the last 24 hours.
type Hybrid struct {
	mu      sync.Mutex
	sources []Weighted
	health  map[string]*ProviderHealth
	tracker PhotoTracker
	rng     captions.Rand
}

func NewHybrid(sources []Weighted, tracker PhotoTracker, rng captions.Rand) *Hybrid {
	if rng == nil {
		rng = captions.DefaultRand
	}
	health := make(map[string]*ProviderHealth, len(sources))
	for _, s := range sources {
		health[s.Source.Name()] = &ProviderHealth{Name: s.Source.Name(), Healthy: true}
	}
	return &Hybrid{sources: sources, health: health, tracker: tracker, rng: rng}
}

// Search returns between 1 and count unused photos for topic, or an error
// wrapping models.ErrExternalFetch.
func (h *Hybrid) Search(ctx context.Context, topic string, count int) ([]models.CandidatePhoto, error) {
	if count < 1 {
		count = 1
	}
	perPage := count * SEARCH_PAGE_FACTOR
	if perPage < MIN_SEARCH_PAGE {
		perPage = MIN_SEARCH_PAGE
	}

	order := h.providerOrder()
	if len(order) == 0 {
		return nil, fmt.Errorf("[ImageSource] no providers configured: %w", models.ErrExternalFetch)
	}

	var lastErr error
	for _, source := range order {
		photos, err := source.Search(ctx, topic, perPage)
		if err != nil {
			h.recordFailure(source.Name(), err)
			lastErr = err
			slog.Warn("[ImageSource] Provider failed, trying next",
				slog.String("provider", source.Name()),
				slog.String("topic", topic),
				slog.String("error", err.Error()))
			continue
		}
		h.recordSuccess(source.Name())

		fresh := h.filterUsed(ctx, photos)
		if len(fresh) == 0 {
			slog.Info("[ImageSource] Provider returned no unused photos",
				slog.String("provider", source.Name()),
				slog.String("topic", topic),
				slog.Int("raw_results", len(photos)))
			continue
		}
		if len(fresh) > count {
			fresh = fresh[:count]
		}
		slog.Info("[ImageSource] Photos selected",
			slog.String("provider", source.Name()),
			slog.String("topic", topic),
			slog.Int("count", len(fresh)))
		return fresh, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("[ImageSource] all providers failed for %q: %w", topic, lastErr)
	}
	return nil, fmt.Errorf("[ImageSource] no photos for %q: %w", topic, models.ErrExternalFetch)
}

// MarkUsed records posted photos and pings providers that track downloads.
// Failures are logged only.
func (h *Hybrid) MarkUsed(ctx context.Context, photos []models.CandidatePhoto) {
	for _, photo := range photos {
		if h.tracker != nil {
			if err := h.tracker.MarkPhotoUsed(ctx, photo.DedupeKey()); err != nil {
				slog.Warn("[ImageSource] Failed to mark photo used",
					slog.String("photo", photo.DedupeKey()),
					slog.String("error", err.Error()))
			}
		}
		for _, s := range h.sources {
			dt, ok := s.Source.(DownloadTracker)
			if !ok || s.Source.Name() != photo.Provider {
				continue
			}
			if err := dt.TrackDownload(ctx, photo); err != nil {
				slog.Warn("[ImageSource] Download tracking failed",
					slog.String("photo", photo.DedupeKey()),
					slog.String("error", err.Error()))
			}
		}
	}
}

func (h *Hybrid) Health() []ProviderHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ProviderHealth, 0, len(h.health))
	for _, ph := range h.health {
		out = append(out, *ph)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResetHealth marks every provider healthy and clears rate limits.
func (h *Hybrid) ResetHealth() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetLocked()
	slog.Info("[ImageSource] Provider health reset", slog.Int("providers", len(h.health)))
}

func (h *Hybrid) resetLocked() {
	for _, ph := range h.health {
		ph.Healthy, ph.ConsecutiveErrors, ph.RateLimited = true, 0, false
	}
}

// providerOrder puts a weighted pick among healthy providers first, followed
// by the remaining healthy ones. When none is healthy every provider is reset.
func (h *Hybrid) providerOrder() []Source {
	h.mu.Lock()
	defer h.mu.Unlock()

	var healthy []Weighted
	for _, s := range h.sources {
		if h.health[s.Source.Name()].Healthy {
			healthy = append(healthy, s)
		}
	}
	if len(healthy) == 0 && len(h.sources) > 0 {
		slog.Warn("[ImageSource] All providers unhealthy, resetting health")
		h.resetLocked()
		healthy = append(healthy, h.sources...)
	}
	if len(healthy) == 0 {
		return nil
	}

	first := h.weightedIndex(healthy)
	order := []Source{healthy[first].Source}
	for i, s := range healthy {
		if i != first {
			order = append(order, s.Source)
		}
	}
	return order
}

func (h *Hybrid) weightedIndex(sources []Weighted) int {
	var total float64
	for _, s := range sources {
		if s.Weight > 0 {
			total += s.Weight
		}
	}
	if total <= 0 {
		return h.rng.IntN(len(sources))
	}
	r := h.rng.Float64() * total
	for i, s := range sources {
		if s.Weight <= 0 {
			continue
		}
		if r < s.Weight {
			return i
		}
		r -= s.Weight
	}
	return len(sources) - 1
}

func (h *Hybrid) recordFailure(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ph := h.health[name]
	ph.ConsecutiveErrors++
	if errors.Is(err, clients.ErrRateLimited) {
		ph.RateLimited = true
	}
	if ph.RateLimited || ph.ConsecutiveErrors >= MAX_CONSECUTIVE_ERRORS {
		if ph.Healthy {
			slog.Warn("[ImageSource] Provider marked unhealthy",
				slog.String("provider", name),
				slog.Int("consecutive_errors", ph.ConsecutiveErrors),
				slog.Bool("rate_limited", ph.RateLimited))
		}
		ph.Healthy = false
	}
}

func (h *Hybrid) recordSuccess(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ph := h.health[name]
	ph.Healthy, ph.ConsecutiveErrors, ph.RateLimited = true, 0, false
}

func (h *Hybrid) filterUsed(ctx context.Context, photos []models.CandidatePhoto) []models.CandidatePhoto {
	seen := make(map[string]struct{}, len(photos))
	out := make([]models.CandidatePhoto, 0, len(photos))
	for _, photo := range photos {
		key := photo.DedupeKey()
		if _, dup := seen[key]; dup || photo.PostURL() == "" {
			continue
		}
		seen[key] = struct{}{}

		if h.tracker != nil {
			used, err := h.tracker.IsPhotoUsed(ctx, key)
			if err != nil {
				slog.Warn("[ImageSource] Used-photo check failed, keeping photo",
					slog.String("photo", key),
					slog.String("error", err.Error()))
			} else if used {
				continue
			}
		}
		out = append(out, photo)
	}
	return out
}
