package captions

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spacesedan/photobot/internal/models"
)

const (
	StrategyTemplate = "template"
	StrategyLLM      = "llm"
)

// Generator produces a caption for a persona and topic. Implementations may fail.
type Generator interface {
	Generate(ctx context.Context, persona models.BotPersona, topic string) (models.Caption, error)
}

// Composer always yields a caption.
type Composer interface {
	Compose(ctx context.Context, persona models.BotPersona, topic string) models.Caption
}

type TemplateGenerator struct {
	catalog *Catalog
	rng     Rand
}

func NewTemplateGenerator(catalog *Catalog, rng Rand) *TemplateGenerator {
	if rng == nil {
		rng = DefaultRand
	}
	return &TemplateGenerator{catalog: catalog, rng: rng}
}

// Generate never returns an error.
func (g *TemplateGenerator) Generate(_ context.Context, persona models.BotPersona, topic string) (models.Caption, error) {
	return g.compose(persona, topic), nil
}

// Compose lets a TemplateGenerator stand alone as a Composer.
func (g *TemplateGenerator) Compose(_ context.Context, persona models.BotPersona, topic string) models.Caption {
	return g.compose(persona, topic)
}

func (g *TemplateGenerator) compose(persona models.BotPersona, topic string) models.Caption {
	topic = NormalizeTopic(topic)
	tmpl := g.catalog.Personality(persona.PersonalityType)

	text := topic
	if len(tmpl.Captions) > 0 {
		text = render(tmpl.Captions[g.rng.IntN(len(tmpl.Captions))], persona, topic)
	}
	if hook := g.engagementHook(tmpl, persona, topic); hook != "" {
		text += "\n\n" + hook
	}

	return models.Caption{
		Text:     text,
		Hashtags: g.catalog.BuildHashtags(g.rng, persona.PersonalityType, topic),
		Strategy: StrategyTemplate,
	}
}

func (g *TemplateGenerator) engagementHook(tmpl PersonalityTemplates, persona models.BotPersona, topic string) string {
	hooks := g.catalog.EngagementHooks
	if len(hooks) == 0 || g.rng.Float64() >= tmpl.HookProbability {
		return ""
	}
	return render(hooks[g.rng.IntN(len(hooks))], persona, topic)
}

func render(tmpl string, persona models.BotPersona, topic string) string {
	name := persona.DisplayName
	if name == "" {
		name = persona.Username
	}
	return strings.NewReplacer(TopicPlaceholder, topic, NamePlaceholder, name).Replace(tmpl)
}

type fallbackComposer struct {
	primary  Generator
	fallback *TemplateGenerator
}

// WithFallback combines a primary strategy with the template generator. Any
// primary failure yields the template caption instead.
func WithFallback(primary Generator, fallback *TemplateGenerator) Composer {
	if primary == nil {
		return fallback
	}
	return &fallbackComposer{primary: primary, fallback: fallback}
}

func (f *fallbackComposer) Compose(ctx context.Context, persona models.BotPersona, topic string) models.Caption {
	caption, err := f.primary.Generate(ctx, persona, topic)
	if err == nil && strings.TrimSpace(caption.Text) != "" {
		return caption
	}
	if err != nil {
		slog.Warn("[Captions] Primary caption strategy failed, using templates",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
	}
	return f.fallback.compose(persona, topic)
}
