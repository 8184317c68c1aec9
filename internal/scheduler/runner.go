package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/photobot/internal/captions"
	"github.com/spacesedan/photobot/internal/models"
	"github.com/spacesedan/photobot/internal/sentiment"
)

const (
	DEFAULT_CALL_TIMEOUT = 10 * time.Second
	MAX_PHOTOS_PER_POST  = 4
	POST_TYPE_PHOTO      = "photo"
)

var (
	ErrRunInProgress = errors.New("a run is already in progress")
	ErrDisabled      = errors.New("bot is disabled")
	ErrUnknownTopic  = errors.New("unknown topic")
	ErrInvalidCount  = fmt.Errorf("photo count must be between 1 and %d", MAX_PHOTOS_PER_POST)
)

type State int32

const (
	StateIdle State = iota
	StateSelecting
	StateFetching
	StateComposing
	StateSubmitting
	StateRecording
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateFetching:
		return "fetching"
	case StateComposing:
		return "composing"
	case StateSubmitting:
		return "submitting"
	case StateRecording:
		return "recording"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

type PersonaPool interface {
	SelectPersona(ctx context.Context) (models.BotPersona, error)
	Release(ctx context.Context, id string, posted bool, at time.Time) error
}

type ImageSource interface {
	Search(ctx context.Context, topic string, count int) ([]models.CandidatePhoto, error)
	MarkUsed(ctx context.Context, photos []models.CandidatePhoto)
}

type Poster interface {
	CreatePost(ctx context.Context, req models.CreatePostRequest) (models.CreatePostResponse, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.PostEvent) error
}

type HealthReporter interface {
	Healthy() bool
}

// Deps are the collaborators of a Runner. Events and Health are optional.
type Deps struct {
	Pool     PersonaPool
	Images   ImageSource
	Composer captions.Composer
	Poster   Poster
	Catalog  *captions.Catalog
	Events   EventPublisher
	Health   HealthReporter
}

type Options struct {
	Policy           Policy
	Enabled          bool
	MaxImagesPerHour int
	MaxImagesPerDay  int
	CallTimeout      time.Duration
	Rand             captions.Rand
	Now              func() time.Time
}

// CycleOutcome is what one cycle recorded.
type CycleOutcome struct {
	CycleID         string
	PersonaID       string
	PersonalityType models.PersonalityType
	Topic           string
	PostID          string
	Photos          int
	Success         bool
	Kind            models.FailureKind
	Err             error
}

type cycleRequest struct {
	topic  string
	photos int
	manual bool
}

type Runner struct {
	deps        Deps
	policy      Policy
	rng         captions.Rand
	now         func() time.Time
	callTimeout time.Duration

	running  atomic.Bool
	disabled atomic.Bool
	state    atomic.Int32

	stats  *Stats
	budget *ImageBudget

	mu          sync.Mutex
	lastRunAt   time.Time
	lastOutcome string
	nextRunAt   time.Time
}

func NewRunner(deps Deps, opts Options) (*Runner, error) {
	if deps.Pool == nil || deps.Images == nil || deps.Composer == nil || deps.Poster == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("[Scheduler] runner is missing a collaborator: %w", models.ErrConfiguration)
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("[Scheduler] invalid policy: %w: %w", err, models.ErrConfiguration)
	}
	if opts.Rand == nil {
		opts.Rand = captions.DefaultRand
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DEFAULT_CALL_TIMEOUT
	}

	r := &Runner{
		deps:        deps,
		policy:      opts.Policy,
		rng:         opts.Rand,
		now:         opts.Now,
		callTimeout: opts.CallTimeout,
		stats:       NewStats(opts.Now()),
		budget:      NewImageBudget(opts.MaxImagesPerHour, opts.MaxImagesPerDay, opts.Policy.Location),
	}
	r.disabled.Store(!opts.Enabled)
	return r, nil
}

func (r *Runner) Enable() {
	if r.disabled.Swap(false) {
		slog.Info("[Scheduler] Bot enabled")
	}
}

// Disable blocks new runs. A cycle already in flight completes and the rest
// of its run is skipped.
func (r *Runner) Disable() {
	if !r.disabled.Swap(true) {
		slog.Info("[Scheduler] Bot disabled")
	}
}

func (r *Runner) Enabled() bool {
	return !r.disabled.Load()
}

func (r *Runner) State() State {
	s := State(r.state.Load())
	if s == StateIdle && r.disabled.Load() {
		return StateDisabled
	}
	return s
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
}

func (r *Runner) Stats() models.RunStats {
	snap := r.stats.Snapshot()
	snap.ImagesThisHour, snap.ImagesToday = r.budget.Usage(r.now())
	return snap
}

func (r *Runner) Status() models.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	healthy := false
	if r.deps.Health != nil {
		healthy = r.deps.Health.Healthy()
	}
	return models.RunStatus{
		Enabled:         r.Enabled(),
		State:           r.State().String(),
		LastRunAt:       r.lastRunAt,
		LastOutcome:     r.lastOutcome,
		NextRunAt:       r.nextRunAt,
		BackendHealthy:  healthy,
		IntervalMinutes: int(r.policy.Interval / time.Minute),
	}
}

// RunNow executes one manual cycle. An empty topic picks a random curated one.
// Per-cycle failures are reported in the outcome, never as the error.
func (r *Runner) RunNow(ctx context.Context, topic string, photos int) (CycleOutcome, error) {
	if topic != "" && !r.deps.Catalog.IsTopic(topic) {
		return CycleOutcome{}, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	if photos == 0 {
		photos = 1
	}
	if photos < 1 || photos > MAX_PHOTOS_PER_POST {
		return CycleOutcome{}, ErrInvalidCount
	}

	outcomes, err := r.run(ctx, []cycleRequest{{topic: captions.NormalizeTopic(topic), photos: photos, manual: true}})
	if err != nil {
		return CycleOutcome{}, err
	}
	if len(outcomes) == 0 {
		return CycleOutcome{}, ctx.Err()
	}
	return outcomes[0], nil
}

// RunScheduled executes the k cycles the policy draws for the current time.
func (r *Runner) RunScheduled(ctx context.Context) ([]CycleOutcome, error) {
	k := r.policy.PostsPerRun(r.now(), r.rng)
	reqs := make([]cycleRequest, k)
	for i := range reqs {
		reqs[i] = cycleRequest{photos: 1}
	}
	return r.run(ctx, reqs)
}

func (r *Runner) run(ctx context.Context, reqs []cycleRequest) ([]CycleOutcome, error) {
	if r.disabled.Load() {
		return nil, ErrDisabled
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer func() {
		r.setState(StateIdle)
		r.running.Store(false)
	}()

	slog.Info("[Scheduler] Run started", slog.Int("cycles", len(reqs)))
	outcomes := make([]CycleOutcome, 0, len(reqs))
	for _, req := range reqs {
		if ctx.Err() != nil {
			slog.Warn("[Scheduler] Run interrupted", slog.Int("completed", len(outcomes)))
			break
		}
		if len(outcomes) > 0 && r.disabled.Load() {
			slog.Info("[Scheduler] Bot disabled, skipping remaining cycles",
				slog.Int("completed", len(outcomes)),
				slog.Int("skipped", len(reqs)-len(outcomes)))
			break
		}
		outcome := r.cycle(ctx, req)
		outcomes = append(outcomes, outcome)
		r.recordLastRun(outcome)
	}
	return outcomes, nil
}

func (r *Runner) recordLastRun(outcome CycleOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRunAt = r.now()
	if outcome.Success {
		r.lastOutcome = "success"
	} else {
		r.lastOutcome = string(outcome.Kind)
	}
}

func (r *Runner) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.callTimeout)
}

func (r *Runner) cycle(ctx context.Context, req cycleRequest) CycleOutcome {
	outcome := CycleOutcome{CycleID: uuid.NewString(), Topic: req.topic}
	if outcome.Topic == "" {
		outcome.Topic = r.deps.Catalog.RandomTopic(r.rng, "")
	}

	r.setState(StateSelecting)
	selectCtx, cancel := r.callCtx(ctx)
	persona, err := r.deps.Pool.SelectPersona(selectCtx)
	cancel()
	if err != nil {
		return r.finish(ctx, outcome, req, fmt.Errorf("select persona: %w", err))
	}
	outcome.PersonaID = persona.ID
	outcome.PersonalityType = persona.PersonalityType

	posted := false
	defer func() {
		releaseCtx, cancel := r.callCtx(ctx)
		defer cancel()
		if err := r.deps.Pool.Release(releaseCtx, persona.ID, posted, r.now()); err != nil {
			slog.Warn("[Scheduler] Failed to release persona", slog.String("persona", persona.ID), slog.Any("error", err))
		}
	}()

	r.setState(StateFetching)
	want := r.budget.Allow(r.now(), req.photos)
	if want == 0 {
		return r.finish(ctx, outcome, req, models.ErrImageBudgetExhausted)
	}
	photos, topic, err := r.fetch(ctx, outcome.Topic, want)
	outcome.Topic = topic
	if err != nil {
		return r.finish(ctx, outcome, req, err)
	}
	outcome.Photos = len(photos)

	r.setState(StateComposing)
	composeCtx, cancel := r.callCtx(ctx)
	caption := r.deps.Composer.Compose(composeCtx, persona, topic)
	cancel()
	post := models.ComposedPost{
		CaptionText:  caption.Text,
		Hashtags:     caption.Hashtags,
		ImageRefs:    photos,
		BotPersonaID: persona.ID,
		Topic:        topic,
		Mood:         sentiment.Mood(caption.Text),
	}

	r.setState(StateSubmitting)
	submitCtx, cancel := r.callCtx(ctx)
	res, err := r.deps.Poster.CreatePost(submitCtx, buildRequest(post, persona, r.now(), req.manual))
	cancel()
	if err != nil {
		return r.finish(ctx, outcome, req, err)
	}

	posted = true
	outcome.PostID = res.ID
	r.budget.Record(r.now(), len(photos))
	markCtx, cancel := r.callCtx(ctx)
	r.deps.Images.MarkUsed(markCtx, photos)
	cancel()
	return r.finish(ctx, outcome, req, nil)
}

// fetch searches topic, then one different curated topic if the first yields nothing.
func (r *Runner) fetch(ctx context.Context, topic string, count int) ([]models.CandidatePhoto, string, error) {
	photos, err := r.search(ctx, topic, count)
	if err == nil {
		return photos, topic, nil
	}

	fallback := r.deps.Catalog.RandomTopic(r.rng, topic)
	slog.Warn("[Scheduler] No photos for topic, retrying with fallback",
		slog.String("topic", topic), slog.String("fallback", fallback), slog.Any("error", err))

	photos, err = r.search(ctx, fallback, count)
	if err != nil {
		return nil, fallback, err
	}
	return photos, fallback, nil
}

func (r *Runner) search(ctx context.Context, topic string, count int) ([]models.CandidatePhoto, error) {
	searchCtx, cancel := r.callCtx(ctx)
	defer cancel()

	photos, err := r.deps.Images.Search(searchCtx, topic, count)
	if err != nil {
		if errors.Is(err, models.ErrExternalFetch) {
			return nil, err
		}
		return nil, fmt.Errorf("search %q: %w: %w", topic, err, models.ErrExternalFetch)
	}
	if len(photos) == 0 {
		return nil, fmt.Errorf("no photos for %q: %w", topic, models.ErrExternalFetch)
	}
	if len(photos) > count {
		photos = photos[:count]
	}
	return photos, nil
}

func buildRequest(post models.ComposedPost, persona models.BotPersona, at time.Time, manual bool) models.CreatePostRequest {
	images := make([]string, 0, len(post.ImageRefs))
	for _, p := range post.ImageRefs {
		images = append(images, p.PostURL())
	}
	return models.CreatePostRequest{
		Content: post.Content(),
		Images:  images,
		BotMetadata: models.BotMetadata{
			BotUser: models.BotUser{
				Username: persona.Username,
				Name:     persona.DisplayName,
				Bio:      persona.Bio,
				Avatar:   persona.AvatarRef,
				BotType:  string(persona.PersonalityType),
			},
			Topic:     post.Topic,
			PhotoData: post.ImageRefs,
		},
		PostType: POST_TYPE_PHOTO,
		Mood:     post.Mood,
		TimeContext: models.TimeContext{
			PostingTime: at,
			Scheduled:   !manual,
			Manual:      manual,
		},
	}
}

// finish records exactly one outcome for the cycle and publishes its event.
func (r *Runner) finish(ctx context.Context, outcome CycleOutcome, req cycleRequest, err error) CycleOutcome {
	r.setState(StateRecording)

	if err == nil {
		outcome.Success = true
		r.stats.RecordSuccess(outcome.PersonalityType)
		slog.Info("[Scheduler] Post created",
			slog.String("post_id", outcome.PostID),
			slog.String("persona", outcome.PersonaID),
			slog.String("topic", outcome.Topic),
			slog.Int("photos", outcome.Photos))
	} else {
		outcome.Err = err
		outcome.Kind = models.KindOf(err)
		r.stats.RecordFailure(outcome.Kind)
		slog.Error("[Scheduler] Cycle failed",
			slog.String("kind", string(outcome.Kind)),
			slog.String("topic", outcome.Topic),
			slog.Any("error", err))
	}

	if r.deps.Events != nil {
		event := models.PostEvent{
			CycleID:         outcome.CycleID,
			PersonaID:       outcome.PersonaID,
			PersonalityType: outcome.PersonalityType,
			Topic:           outcome.Topic,
			PostID:          outcome.PostID,
			Success:         outcome.Success,
			FailureKind:     outcome.Kind,
			Manual:          req.manual,
			RecordedAt:      r.now(),
		}
		if err != nil {
			event.Error = err.Error()
		}
		pubCtx, cancel := r.callCtx(ctx)
		if perr := r.deps.Events.Publish(pubCtx, event); perr != nil {
			slog.Warn("[Scheduler] Failed to publish post event", slog.String("cycle", outcome.CycleID), slog.Any("error", perr))
		}
		cancel()
	}
	return outcome
}

// Loop fires scheduled runs until ctx is cancelled. The first run fires one
// interval after start.
func (r *Runner) Loop(ctx context.Context) {
	slog.Info("[Scheduler] Loop started", slog.Duration("interval", r.policy.Interval))
	for {
		now := r.now()
		next := r.policy.NextFire(now)
		r.mu.Lock()
		r.nextRunAt = next
		r.mu.Unlock()

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("[Scheduler] Loop stopped")
			return
		case <-timer.C:
		}

		_, err := r.RunScheduled(ctx)
		switch {
		case errors.Is(err, ErrDisabled):
			slog.Debug("[Scheduler] Skipping scheduled run, bot disabled")
		case errors.Is(err, ErrRunInProgress):
			slog.Info("[Scheduler] Skipping scheduled run, another run is in progress")
		}
	}
}
