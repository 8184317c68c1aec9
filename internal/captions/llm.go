package captions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spacesedan/photobot/internal/models"
	"github.com/spacesedan/photobot/internal/sentiment"
)

const maxLLMCaptionRunes = 300

var (
	ErrNoCompleter  = errors.New("llm client not configured")
	ErrTopicMissing = errors.New("llm caption does not mention the topic")
	ErrEmptyCaption = errors.New("llm caption is empty")
)

// Completer is an OpenAI-compatible chat completion call.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type LLMGenerator struct {
	completer Completer
	catalog   *Catalog
	rng       Rand
}

func NewLLMGenerator(completer Completer, catalog *Catalog, rng Rand) *LLMGenerator {
	if rng == nil {
		rng = DefaultRand
	}
	return &LLMGenerator{completer: completer, catalog: catalog, rng: rng}
}

func (g *LLMGenerator) Generate(ctx context.Context, persona models.BotPersona, topic string) (models.Caption, error) {
	if g.completer == nil {
		return models.Caption{}, ErrNoCompleter
	}
	topic = NormalizeTopic(topic)

	raw, err := g.completer.Complete(ctx, systemPrompt(persona), userPrompt(topic))
	if err != nil {
		return models.Caption{}, fmt.Errorf("[Captions] llm completion: %w", err)
	}

	text := CleanLLMCaption(raw)
	if text == "" {
		return models.Caption{}, ErrEmptyCaption
	}
	if !strings.Contains(strings.ToLower(text), topic) {
		return models.Caption{}, ErrTopicMissing
	}

	return models.Caption{
		Text:     text,
		Hashtags: g.catalog.BuildHashtags(g.rng, persona.PersonalityType, topic),
		Strategy: StrategyLLM,
	}, nil
}

func systemPrompt(persona models.BotPersona) string {
	return fmt.Sprintf(`You are %s, a %s who posts photos on a social network.
Your bio: %s
Write short, warm, first-person Instagram captions. One or two sentences, at most one or two emojis.
Do not add hashtags, quotes, or a "Caption:" label.`,
		persona.DisplayName, persona.PersonalityType, persona.Bio)
}

func userPrompt(topic string) string {
	return fmt.Sprintf("Write a caption for a photo about %s. Use the word %q in the caption.", topic, topic)
}

// CleanLLMCaption strips markdown, wrapping quotes, a "Caption:" label and any
// hashtags, then caps the length.
func CleanLLMCaption(raw string) string {
	text := sentiment.PlainText(raw)
	text = strings.Trim(text, "\"'“” ")
	if strings.HasPrefix(strings.ToLower(text), "caption:") {
		text = strings.TrimSpace(text[len("caption:"):])
		text = strings.Trim(text, "\"'“” ")
	}

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if strings.HasPrefix(w, "#") {
			continue
		}
		kept = append(kept, w)
	}
	text = strings.Join(kept, " ")

	if utf8.RuneCountInString(text) > maxLLMCaptionRunes {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:maxLLMCaptionRunes])) + "..."
	}
	return text
}
