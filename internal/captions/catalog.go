package captions

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/spacesedan/photobot/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

const (
	TopicPlaceholder = "{topic}"
	NamePlaceholder  = "{name}"

	minPopularTags = 8
)

type NamePool struct {
	FirstNames []string `yaml:"first_names"`
	LastNames  []string `yaml:"last_names"`
}

type PersonalityTemplates struct {
	Captions        []string `yaml:"captions"`
	Hashtags        []string `yaml:"hashtags"`
	Bios            []string `yaml:"bios"`
	Avatars         []string `yaml:"avatars"`
	HookProbability float64  `yaml:"hook_probability"`
}

// Catalog is the immutable template data behind captions, hashtags and
// persona generation.
type Catalog struct {
	Topics          []string                                        `yaml:"topics"`
	TopicTags       map[string][]string                             `yaml:"topic_tags"`
	PopularTags     []string                                        `yaml:"popular_tags"`
	NamePools       map[string]NamePool                             `yaml:"name_pools"`
	EngagementHooks []string                                        `yaml:"engagement_hooks"`
	AvatarStyles    []string                                        `yaml:"avatar_styles"`
	Personalities   map[models.PersonalityType]PersonalityTemplates `yaml:"personalities"`

	topicSet map[string]struct{}
}

var (
	defaultCatalog    *Catalog
	defaultCatalogErr error
	defaultOnce       sync.Once
)

// DefaultCatalog parses the embedded templates once.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = LoadCatalog(defaultTemplates)
	})
	return defaultCatalog, defaultCatalogErr
}

func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("[Captions] failed to parse templates: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	c.topicSet = make(map[string]struct{}, len(c.Topics))
	for i, t := range c.Topics {
		t = NormalizeTopic(t)
		c.Topics[i] = t
		c.topicSet[t] = struct{}{}
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	var problems []string

	if len(c.Topics) == 0 {
		problems = append(problems, "no curated topics")
	}
	if len(c.PopularTags) < minPopularTags {
		problems = append(problems, fmt.Sprintf("need at least %d popular tags, got %d", minPopularTags, len(c.PopularTags)))
	}
	if len(c.NamePools) == 0 {
		problems = append(problems, "no name pools")
	}
	for style, pool := range c.NamePools {
		if len(pool.FirstNames) == 0 || len(pool.LastNames) == 0 {
			problems = append(problems, fmt.Sprintf("name pool %q is empty", style))
		}
	}
	if len(c.AvatarStyles) == 0 {
		problems = append(problems, "no avatar styles")
	}
	for _, hook := range c.EngagementHooks {
		if !strings.Contains(hook, TopicPlaceholder) {
			problems = append(problems, fmt.Sprintf("engagement hook %q lacks %s", hook, TopicPlaceholder))
		}
	}
	for _, pt := range models.PersonalityTypes() {
		p, ok := c.Personalities[pt]
		if !ok {
			problems = append(problems, fmt.Sprintf("personality %q has no templates", pt))
			continue
		}
		if len(p.Captions) == 0 || len(p.Bios) == 0 {
			problems = append(problems, fmt.Sprintf("personality %q needs captions and bios", pt))
		}
		for _, tmpl := range p.Captions {
			if !strings.Contains(tmpl, TopicPlaceholder) {
				problems = append(problems, fmt.Sprintf("caption template %q lacks %s", tmpl, TopicPlaceholder))
			}
		}
		if p.HookProbability < 0 || p.HookProbability > 1 {
			problems = append(problems, fmt.Sprintf("personality %q hook probability out of range", pt))
		}
	}
	for pt := range c.Personalities {
		if _, err := models.ParsePersonalityType(string(pt)); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("[Captions] invalid templates: %s: %w", strings.Join(problems, "; "), models.ErrConfiguration)
	}
	return nil
}

func NormalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

// IsTopic reports whether topic is on the curated list.
func (c *Catalog) IsTopic(topic string) bool {
	_, ok := c.topicSet[NormalizeTopic(topic)]
	return ok
}

// RandomTopic picks a curated topic other than exclude.
func (c *Catalog) RandomTopic(rng Rand, exclude string) string {
	exclude = NormalizeTopic(exclude)
	candidates := make([]string, 0, len(c.Topics))
	for _, t := range c.Topics {
		if t != exclude {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return exclude
	}
	return candidates[rng.IntN(len(candidates))]
}

func (c *Catalog) Personality(pt models.PersonalityType) PersonalityTemplates {
	return c.Personalities[pt]
}

func (c *Catalog) NamePoolStyles() []string {
	styles := make([]string, 0, len(c.NamePools))
	for style := range c.NamePools {
		styles = append(styles, style)
	}
	return styles
}
