package models

import (
	"strings"
	"time"
)

type Caption struct {
	Text     string   `json:"text"`
	Hashtags []string `json:"hashtags"`
	// Strategy names the generator that produced the text ("template", "llm")
	Strategy string `json:"strategy"`
}

// ComposedPost is assembled once per posting attempt and discarded after submission.
type ComposedPost struct {
	CaptionText  string
	Hashtags     []string
	ImageRefs    []CandidatePhoto
	BotPersonaID string
	Topic        string
	Mood         string
}

// Content is the caption followed by its hashtags, as shown on the backend.
func (p ComposedPost) Content() string {
	if len(p.Hashtags) == 0 {
		return p.CaptionText
	}
	return p.CaptionText + "\n\n" + strings.Join(p.Hashtags, " ")
}

type CreatePostRequest struct {
	Content     string      `json:"content"`
	Images      []string    `json:"images"`
	BotMetadata BotMetadata `json:"bot_metadata"`
	PostType    string      `json:"post_type"`
	Mood        string      `json:"mood"`
	TimeContext TimeContext `json:"time_context"`
}

type BotMetadata struct {
	BotUser   BotUser          `json:"bot_user"`
	Topic     string           `json:"topic"`
	PhotoData []CandidatePhoto `json:"photo_data"`
}

type BotUser struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
	BotType  string `json:"botType"`
}

type TimeContext struct {
	PostingTime time.Time `json:"posting_time"`
	Scheduled   bool      `json:"scheduled"`
	Manual      bool      `json:"manual"`
}

type CreatePostResponse struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

// PostEvent is published once per recorded cycle.
type PostEvent struct {
	CycleID         string          `json:"cycle_id"`
	PersonaID       string          `json:"persona_id,omitempty"`
	PersonalityType PersonalityType `json:"personality_type,omitempty"`
	Topic           string          `json:"topic,omitempty"`
	PostID          string          `json:"post_id,omitempty"`
	Success         bool            `json:"success"`
	FailureKind     FailureKind     `json:"failure_kind,omitempty"`
	Error           string          `json:"error,omitempty"`
	Manual          bool            `json:"manual"`
	RecordedAt      time.Time       `json:"recorded_at"`
}
