package models

import (
	"fmt"
	"time"
)

type PersonalityType string

const (
	PersonalityPhotographer PersonalityType = "photographer"
	PersonalityTraveler     PersonalityType = "traveler"
	PersonalityArtist       PersonalityType = "artist"
	PersonalityLifestyle    PersonalityType = "lifestyle"
	PersonalityTech         PersonalityType = "tech"
	PersonalityFoodie       PersonalityType = "foodie"
)

var personalityTypes = []PersonalityType{
	PersonalityPhotographer,
	PersonalityTraveler,
	PersonalityArtist,
	PersonalityLifestyle,
	PersonalityTech,
	PersonalityFoodie,
}

// PersonalityTypes returns the closed set of personality types in a fixed order.
func PersonalityTypes() []PersonalityType {
	return append([]PersonalityType(nil), personalityTypes...)
}

func ParsePersonalityType(s string) (PersonalityType, error) {
	for _, p := range personalityTypes {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown personality type %q", s)
}

// BotPersona is a named bot identity used as the author of a post.
type BotPersona struct {
	ID              string          `json:"id" dynamodbav:"id"`
	Username        string          `json:"username" dynamodbav:"username"`
	DisplayName     string          `json:"display_name" dynamodbav:"display_name"`
	PersonalityType PersonalityType `json:"personality_type" dynamodbav:"personality_type"`
	Bio             string          `json:"bio" dynamodbav:"bio"`
	// AvatarRef is unique across every avatar ever issued
	AvatarRef    string    `json:"avatar_ref" dynamodbav:"avatar_ref"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	LastPostedAt time.Time `json:"last_posted_at,omitempty" dynamodbav:"last_posted_at,omitempty"`
	PostCount    int       `json:"post_count" dynamodbav:"post_count"`
}

func (p BotPersona) HasPosted() bool {
	return !p.LastPostedAt.IsZero()
}
