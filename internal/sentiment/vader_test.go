package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bold and italics", "**Golden** hour in the _city_", "Golden hour in the city"},
		{"markdown link keeps text", "Shot on [film](https://example.com/film)", "Shot on film"},
		{"bare url removed", "Morning coffee https://example.com/x", "Morning coffee"},
		{"entities unescaped", "Salt & pepper", "Salt & pepper"},
		{"whitespace collapsed", "a\n\n  b", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.input))
		})
	}
}

func TestMood(t *testing.T) {
	assert.Equal(t, MoodUpbeat, Mood("I love this beautiful, amazing sunset!"))
	assert.Equal(t, MoodReflective, Mood("This is a terrible, awful, sad day."))
	assert.Equal(t, MoodCalm, Mood("A chair next to a table."))
}
