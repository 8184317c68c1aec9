package personas

import (
	"context"
	"sync"

	"github.com/spacesedan/photobot/internal/models"
)

// Store is the authoritative persona record. db.PersonaTable implements it.
type Store interface {
	Save(ctx context.Context, persona models.BotPersona) error
	LoadAll(ctx context.Context) ([]models.BotPersona, error)
}

// AvatarRegistry remembers every avatar ever issued. clients.ValkeyClient
// implements it.
type AvatarRegistry interface {
	ClaimAvatar(ctx context.Context, ref string) (bool, error)
	SeedAvatars(ctx context.Context, refs ...string) error
}

// MemoryStore keeps personas in process. Used when no persona table is configured.
type MemoryStore struct {
	mu       sync.Mutex
	personas map[string]models.BotPersona
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{personas: make(map[string]models.BotPersona)}
}

func (s *MemoryStore) Save(_ context.Context, persona models.BotPersona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas[persona.ID] = persona
	return nil
}

func (s *MemoryStore) LoadAll(_ context.Context) ([]models.BotPersona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BotPersona, 0, len(s.personas))
	for _, p := range s.personas {
		out = append(out, p)
	}
	return out, nil
}

type MemoryAvatarRegistry struct {
	mu     sync.Mutex
	issued map[string]struct{}
}

func NewMemoryAvatarRegistry() *MemoryAvatarRegistry {
	return &MemoryAvatarRegistry{issued: make(map[string]struct{})}
}

func (r *MemoryAvatarRegistry) ClaimAvatar(_ context.Context, ref string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.issued[ref]; ok {
		return false, nil
	}
	r.issued[ref] = struct{}{}
	return true, nil
}

func (r *MemoryAvatarRegistry) SeedAvatars(_ context.Context, refs ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		r.issued[ref] = struct{}{}
	}
	return nil
}
