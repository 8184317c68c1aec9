package captions

import (
	"strings"
	"unicode"

	"github.com/spacesedan/photobot/internal/models"
)

const (
	MinHashtags = 5
	MaxHashtags = 8
)

// BuildHashtags returns between MinHashtags and MaxHashtags unique tags: topic
// tags first, then the personality's tags, then popular tags.
func (c *Catalog) BuildHashtags(rng Rand, pt models.PersonalityType, topic string) []string {
	topic = NormalizeTopic(topic)

	ordered := make([]string, 0, 24)
	if tag := TopicTag(topic); tag != "" {
		ordered = append(ordered, tag)
	}
	ordered = append(ordered, c.TopicTags[topic]...)
	ordered = append(ordered, shuffled(rng, c.Personalities[pt].Hashtags)...)
	ordered = append(ordered, shuffled(rng, c.PopularTags)...)

	tags := dedupeTags(ordered)

	n := MinHashtags + rng.IntN(MaxHashtags-MinHashtags+1)
	if n > len(tags) {
		n = len(tags)
	}
	return tags[:n]
}

// TopicTag turns a topic into a single hashtag, dropping anything that is not
// a letter or digit.
func TopicTag(topic string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(topic) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "#" + b.String()
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func shuffled(rng Rand, in []string) []string {
	out := append([]string(nil), in...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
