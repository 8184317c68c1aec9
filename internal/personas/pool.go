package personas

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/photobot/internal/captions"
	"github.com/spacesedan/photobot/internal/models"
)

type TieBreak string

const (
	TieBreakLeastRecent TieBreak = "least_recent"
	TieBreakFewestPosts TieBreak = "fewest_posts"
	TieBreakRandom      TieBreak = "random"
)

func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case "", TieBreakLeastRecent:
		return TieBreakLeastRecent, nil
	case TieBreakFewestPosts:
		return TieBreakFewestPosts, nil
	case TieBreakRandom:
		return TieBreakRandom, nil
	default:
		return "", fmt.Errorf("unknown persona tie-break %q", s)
	}
}

const (
	DEFAULT_CAPACITY            = 20
	DEFAULT_IDLE_WINDOW         = time.Hour
	DEFAULT_MAX_AVATAR_ATTEMPTS = 5
	CURATED_AVATAR_ATTEMPTS     = 2
	AVATAR_URL_FORMAT           = "https://api.dicebear.com/7.x/%s/svg?seed=%s"
)

type Options struct {
	Capacity          int
	IdleWindow        time.Duration
	TieBreak          TieBreak
	MaxAvatarAttempts int
	Rand              captions.Rand
	Now               func() time.Time
}

// Pool hands out bot personas for posting cycles. The cache is rebuilt from the
// Store at startup and written through on every change.
type Pool struct {
	mu        sync.Mutex
	personas  map[string]*models.BotPersona
	held      map[string]struct{}
	usernames map[string]struct{}
	avatars   map[string]struct{}
	// creating counts personas being built outside the lock
	creating  int

	store    Store
	registry AvatarRegistry
	catalog  *captions.Catalog
	opts     Options
}

func NewPool(store Store, registry AvatarRegistry, catalog *captions.Catalog, opts Options) *Pool {
	if opts.Capacity <= 0 {
		opts.Capacity = DEFAULT_CAPACITY
	}
	if opts.IdleWindow <= 0 {
		opts.IdleWindow = DEFAULT_IDLE_WINDOW
	}
	if opts.TieBreak == "" {
		opts.TieBreak = TieBreakLeastRecent
	}
	if opts.MaxAvatarAttempts <= 0 {
		opts.MaxAvatarAttempts = DEFAULT_MAX_AVATAR_ATTEMPTS
	}
	if opts.Rand == nil {
		opts.Rand = captions.DefaultRand
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pool{
		personas:  make(map[string]*models.BotPersona),
		held:      make(map[string]struct{}),
		usernames: make(map[string]struct{}),
		avatars:   make(map[string]struct{}),
		store:     store,
		registry:  registry,
		catalog:   catalog,
		opts:      opts,
	}
}

// Reconcile loads every stored persona into the cache and records their
// avatars as issued.
func (p *Pool) Reconcile(ctx context.Context) error {
	stored, err := p.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("[PersonaPool] failed to load personas: %w", err)
	}

	p.mu.Lock()
	refs := make([]string, 0, len(stored))
	for i := range stored {
		persona := stored[i]
		p.personas[persona.ID] = &persona
		p.usernames[persona.Username] = struct{}{}
		if persona.AvatarRef != "" {
			p.avatars[persona.AvatarRef] = struct{}{}
			refs = append(refs, persona.AvatarRef)
		}
	}
	total := len(p.personas)
	p.mu.Unlock()

	if err := p.registry.SeedAvatars(ctx, refs...); err != nil {
		return fmt.Errorf("[PersonaPool] failed to seed avatar registry: %w", err)
	}

	slog.Info("[PersonaPool] Reconciled personas from store",
		slog.Int("loaded", len(stored)),
		slog.Int("cached", total))
	return nil
}

// SelectPersona returns an idle persona, creating one while the pool is below
// capacity. The persona stays held until Release. Registry and store calls run
// outside the pool lock.
func (p *Pool) SelectPersona(ctx context.Context) (models.BotPersona, error) {
	p.mu.Lock()
	now := p.opts.Now()

	var idle []*models.BotPersona
	for _, persona := range p.personas {
		if p.isHeld(persona.ID) {
			continue
		}
		if !persona.HasPosted() || now.Sub(persona.LastPostedAt) >= p.opts.IdleWindow {
			idle = append(idle, persona)
		}
	}
	if len(idle) > 0 {
		chosen := p.pick(idle)
		p.held[chosen.ID] = struct{}{}
		p.mu.Unlock()
		slog.Debug("[PersonaPool] Selected idle persona",
			slog.String("persona_id", chosen.ID),
			slog.String("tie_break", string(p.opts.TieBreak)))
		return *chosen, nil
	}

	if len(p.personas)+p.creating < p.opts.Capacity {
		p.creating++
		d := p.newDraft(now)
		p.mu.Unlock()
		return p.create(ctx, d)
	}
	defer p.mu.Unlock()

	var free []*models.BotPersona
	for _, persona := range p.personas {
		if !p.isHeld(persona.ID) {
			free = append(free, persona)
		}
	}
	if len(free) == 0 {
		return models.BotPersona{}, fmt.Errorf("[PersonaPool] all %d personas are held: %w",
			len(p.personas), models.ErrPersonaCreationExhausted)
	}
	sortLeastRecent(free)
	chosen := free[0]
	p.held[chosen.ID] = struct{}{}
	slog.Info("[PersonaPool] Pool full, reusing least recent persona",
		slog.String("persona_id", chosen.ID))
	return *chosen, nil
}

// Release drops the hold on a persona. A posted release updates its history
// and writes it to the store.
func (p *Pool) Release(ctx context.Context, id string, posted bool, at time.Time) error {
	p.mu.Lock()
	delete(p.held, id)
	persona, ok := p.personas[id]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("[PersonaPool] unknown persona %s", id)
	}
	if !posted {
		p.mu.Unlock()
		return nil
	}
	persona.LastPostedAt = at
	persona.PostCount++
	snapshot := *persona
	p.mu.Unlock()

	if err := p.store.Save(ctx, snapshot); err != nil {
		slog.Warn("[PersonaPool] Failed to persist persona after post",
			slog.String("persona_id", id),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// List returns the cached personas ordered by creation time.
func (p *Pool) List() []models.BotPersona {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.BotPersona, 0, len(p.personas))
	for _, persona := range p.personas {
		out = append(out, *persona)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (p *Pool) Capacity() int {
	return p.opts.Capacity
}

func (p *Pool) isHeld(id string) bool {
	_, ok := p.held[id]
	return ok
}

func (p *Pool) pick(candidates []*models.BotPersona) *models.BotPersona {
	switch p.opts.TieBreak {
	case TieBreakRandom:
		sortLeastRecent(candidates)
		return candidates[p.opts.Rand.IntN(len(candidates))]
	case TieBreakFewestPosts:
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].PostCount != candidates[j].PostCount {
				return candidates[i].PostCount < candidates[j].PostCount
			}
			return lessRecent(candidates[i], candidates[j])
		})
		return candidates[0]
	default:
		sortLeastRecent(candidates)
		return candidates[0]
	}
}

// sortLeastRecent orders never-posted personas first, then by oldest post,
// with creation time and ID as tie-breakers.
func sortLeastRecent(personas []*models.BotPersona) {
	sort.SliceStable(personas, func(i, j int) bool {
		return lessRecent(personas[i], personas[j])
	})
}

func lessRecent(a, b *models.BotPersona) bool {
	if a.HasPosted() != b.HasPosted() {
		return !a.HasPosted()
	}
	if !a.LastPostedAt.Equal(b.LastPostedAt) {
		return a.LastPostedAt.Before(b.LastPostedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// draft is everything a new persona needs that comes from the pool's random
// source, drawn under the lock.
type draft struct {
	persona    models.BotPersona
	first      string
	last       string
	candidates []string
}

func (p *Pool) newDraft(now time.Time) draft {
	types := models.PersonalityTypes()
	pt := types[p.opts.Rand.IntN(len(types))]
	tmpl := p.catalog.Personality(pt)
	first, last := p.randomName()

	return draft{
		persona: models.BotPersona{
			DisplayName:     first + " " + last,
			PersonalityType: pt,
			Bio:             tmpl.Bios[p.opts.Rand.IntN(len(tmpl.Bios))],
			CreatedAt:       now,
		},
		first:      first,
		last:       last,
		candidates: p.avatarCandidates(pt),
	}
}

func (p *Pool) create(ctx context.Context, d draft) (models.BotPersona, error) {
	avatar, err := p.claimAvatar(ctx, d.candidates)

	p.mu.Lock()
	p.creating--
	if err != nil {
		p.mu.Unlock()
		return models.BotPersona{}, err
	}
	persona := d.persona
	persona.ID = uuid.NewString()
	persona.Username = p.uniqueUsername(d.first, d.last)
	persona.AvatarRef = avatar

	cached := persona
	p.personas[persona.ID] = &cached
	p.usernames[persona.Username] = struct{}{}
	p.avatars[avatar] = struct{}{}
	p.held[persona.ID] = struct{}{}
	size := len(p.personas)
	p.mu.Unlock()

	if err := p.store.Save(ctx, persona); err != nil {
		slog.Warn("[PersonaPool] Failed to persist new persona, continuing with cached copy",
			slog.String("persona_id", persona.ID),
			slog.String("error", err.Error()))
	}

	slog.Info("[PersonaPool] Created persona",
		slog.String("persona_id", persona.ID),
		slog.String("username", persona.Username),
		slog.String("personality", string(persona.PersonalityType)),
		slog.Int("pool_size", size))
	return persona, nil
}

func (p *Pool) randomName() (string, string) {
	styles := p.catalog.NamePoolStyles()
	sort.Strings(styles)
	pool := p.catalog.NamePools[styles[p.opts.Rand.IntN(len(styles))]]
	return pool.FirstNames[p.opts.Rand.IntN(len(pool.FirstNames))],
		pool.LastNames[p.opts.Rand.IntN(len(pool.LastNames))]
}

func (p *Pool) uniqueUsername(first, last string) string {
	base := strings.ToLower(first) + "_" + strings.ToLower(last)
	username := base
	for n := 2; ; n++ {
		if _, taken := p.usernames[username]; !taken {
			return username
		}
		username = base + "_" + strconv.Itoa(n)
	}
}

// avatarCandidates lists one candidate per attempt: unused curated avatars
// first, then generated ones.
func (p *Pool) avatarCandidates(pt models.PersonalityType) []string {
	var curated []string
	for _, ref := range p.catalog.Personality(pt).Avatars {
		if _, used := p.avatars[ref]; !used {
			curated = append(curated, ref)
		}
	}
	p.opts.Rand.Shuffle(len(curated), func(i, j int) { curated[i], curated[j] = curated[j], curated[i] })

	candidates := make([]string, 0, p.opts.MaxAvatarAttempts)
	for attempt := 1; attempt <= p.opts.MaxAvatarAttempts; attempt++ {
		if attempt <= CURATED_AVATAR_ATTEMPTS && len(curated) > 0 {
			candidates = append(candidates, curated[0])
			curated = curated[1:]
			continue
		}
		candidates = append(candidates, p.generatedAvatar())
	}
	return candidates
}

// claimAvatar offers candidates to the registry until one is accepted.
func (p *Pool) claimAvatar(ctx context.Context, candidates []string) (string, error) {
	for i, candidate := range candidates {
		attempt := i + 1
		claimed, err := p.registry.ClaimAvatar(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("[PersonaPool] avatar claim interrupted: %w: %w",
					ctx.Err(), models.ErrPersonaCreationExhausted)
			}
			slog.Warn("[PersonaPool] Avatar registry error",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}
		if claimed {
			return candidate, nil
		}
		slog.Debug("[PersonaPool] Avatar already issued, retrying",
			slog.Int("attempt", attempt),
			slog.String("avatar", candidate))
	}

	return "", fmt.Errorf("[PersonaPool] no unique avatar after %d attempts: %w",
		len(candidates), models.ErrPersonaCreationExhausted)
}

func (p *Pool) generatedAvatar() string {
	styles := p.catalog.AvatarStyles
	style := styles[p.opts.Rand.IntN(len(styles))]
	return fmt.Sprintf(AVATAR_URL_FORMAT, style, uuid.NewString()[:8])
}
