package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/photobot/internal/imagesource"
	"github.com/spacesedan/photobot/internal/models"
	"github.com/spacesedan/photobot/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	enabled bool
	err     error
	outcome scheduler.CycleOutcome
	topic   string
	photos  int
	calls   int
}

func (b *fakeBot) RunNow(_ context.Context, topic string, photos int) (scheduler.CycleOutcome, error) {
	b.calls++
	b.topic, b.photos = topic, photos
	return b.outcome, b.err
}
func (b *fakeBot) Enable()  { b.enabled = true }
func (b *fakeBot) Disable() { b.enabled = false }
func (b *fakeBot) Status() models.RunStatus {
	return models.RunStatus{Enabled: b.enabled, State: "idle", IntervalMinutes: 60}
}
func (b *fakeBot) Stats() models.RunStats {
	return models.RunStats{TotalPosts: 3, SuccessCount: 2, FailureCount: 1,
		PersonalityDistribution: map[models.PersonalityType]int{models.PersonalityTech: 2}}
}

type fakePersonas []models.BotPersona

func (p fakePersonas) List() []models.BotPersona { return p }
func (p fakePersonas) Capacity() int               { return 5 }

type fakeProviders struct {
	health []imagesource.ProviderHealth
	resets int
}

func (p *fakeProviders) Health() []imagesource.ProviderHealth { return p.health }

func (p *fakeProviders) ResetHealth() {
	p.resets++
	for i := range p.health {
		p.health[i].Healthy, p.health[i].ConsecutiveErrors, p.health[i].RateLimited = true, 0, false
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestCreatePostSuccess(t *testing.T) {
	bot := &fakeBot{outcome: scheduler.CycleOutcome{Success: true, PostID: "p-1", Topic: "nature", Photos: 1}}
	r := NewRouter(bot, fakePersonas{}, &fakeProviders{})

	w, out := do(t, r, http.MethodPost, "/bot/create-post", `{"topic":"nature","count":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["triggered"])
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "p-1", out["post_id"])
	assert.Equal(t, "nature", bot.topic)
	assert.Equal(t, 1, bot.photos)
}

func TestCreatePostEmptyBody(t *testing.T) {
	bot := &fakeBot{outcome: scheduler.CycleOutcome{Success: true}}
	w, _ := do(t, NewRouter(bot, fakePersonas{}, &fakeProviders{}), http.MethodPost, "/bot/create-post", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, bot.calls)
	assert.Empty(t, bot.topic)
}

func TestCreatePostCycleFailureIsReported(t *testing.T) {
	bot := &fakeBot{outcome: scheduler.CycleOutcome{
		Kind: models.FailureSubmission,
		Err:  fmt.Errorf("backend returned 500: %w", models.ErrSubmission),
	}}
	w, out := do(t, NewRouter(bot, fakePersonas{}, &fakeProviders{}), http.MethodPost, "/bot/create-post", `{"topic":"nature"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["triggered"])
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "submission", out["failure_kind"])
}

func TestCreatePostRejections(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		body      string
		wantCode  int
		triggered bool
	}{
		{"unknown topic", fmt.Errorf("%w: %q", scheduler.ErrUnknownTopic, "mars"), `{"topic":"mars"}`, http.StatusBadRequest, false},
		{"bad count", scheduler.ErrInvalidCount, `{"topic":"nature","count":9}`, http.StatusBadRequest, false},
		{"malformed", nil, `{"topic":`, http.StatusBadRequest, false},
		{"in progress", scheduler.ErrRunInProgress, `{"topic":"nature"}`, http.StatusOK, false},
		{"disabled", scheduler.ErrDisabled, `{"topic":"nature"}`, http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &fakeBot{err: tt.err}
			w, out := do(t, NewRouter(bot, fakePersonas{}, &fakeProviders{}), http.MethodPost, "/bot/create-post", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, false, out["triggered"])
				assert.NotEmpty(t, out["reason"])
			} else {
				assert.NotEmpty(t, out["error"])
			}
		})
	}
}

func TestStartStopStatus(t *testing.T) {
	bot := &fakeBot{}
	r := NewRouter(bot, fakePersonas{}, &fakeProviders{})

	_, out := do(t, r, http.MethodPost, "/bot/start", "")
	assert.Equal(t, true, out["enabled"])
	_, out = do(t, r, http.MethodGet, "/bot/status", "")
	assert.Equal(t, true, out["enabled"])
	assert.Equal(t, float64(60), out["interval_minutes"])

	_, out = do(t, r, http.MethodPost, "/bot/stop", "")
	assert.Equal(t, false, out["enabled"])
	assert.False(t, bot.enabled)
}

func TestStatsAndPersonas(t *testing.T) {
	r := NewRouter(&fakeBot{}, fakePersonas{{ID: "p1", Username: "luna_stone", PersonalityType: models.PersonalityTech}}, &fakeProviders{})

	_, out := do(t, r, http.MethodGet, "/bot/stats", "")
	assert.Equal(t, float64(3), out["total_posts"])
	assert.Equal(t, map[string]any{"tech": float64(2)}, out["personality_distribution"])

	_, out = do(t, r, http.MethodGet, "/bot/personas", "")
	assert.Equal(t, float64(1), out["count"])
	assert.Equal(t, float64(5), out["capacity"])

	w, out := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestHybridStatsAndReset(t *testing.T) {
	providers := &fakeProviders{health: []imagesource.ProviderHealth{
		{Name: "pexels", Healthy: false, ConsecutiveErrors: 1, RateLimited: true},
		{Name: "unsplash", Healthy: true},
	}}
	r := NewRouter(&fakeBot{}, fakePersonas{}, providers)

	w, out := do(t, r, http.MethodGet, "/bot/hybrid-stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	list := out["providers"].([]any)
	require.Len(t, list, 2)
	pexels := list[0].(map[string]any)
	assert.Equal(t, "pexels", pexels["name"])
	assert.Equal(t, true, pexels["rate_limited"])
	assert.Equal(t, false, pexels["healthy"])

	w, out = do(t, r, http.MethodPost, "/bot/reset-rate-limits", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["reset"])
	assert.Equal(t, 1, providers.resets)
	pexels = out["providers"].([]any)[0].(map[string]any)
	assert.Equal(t, true, pexels["healthy"])
	assert.Equal(t, false, pexels["rate_limited"])
}

func TestHybridStatsOverRealProviders(t *testing.T) {
	h := imagesource.NewHybrid(nil, nil, nil)
	w, out := do(t, NewRouter(&fakeBot{}, fakePersonas{}, h), http.MethodGet, "/bot/hybrid-stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, out["providers"])
}
