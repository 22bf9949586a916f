package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// AnimationType identifies a synchronized animation.
type AnimationType string

const (
	AnimationFeed  AnimationType = "feed"
	AnimationPlay  AnimationType = "play"
	AnimationRest  AnimationType = "rest"
	AnimationPoop  AnimationType = "poop"
	AnimationPet   AnimationType = "pet"
	AnimationMedia AnimationType = "media"
)

// Valid reports whether t is one of the known animation types.
func (t AnimationType) Valid() bool {
	switch t {
	case AnimationFeed, AnimationPlay, AnimationRest, AnimationPoop, AnimationPet, AnimationMedia:
		return true
	}
	return false
}

// CreatureAction is a stat-mutating action applied through the HTTP API.
type CreatureAction string

const (
	ActionFeed CreatureAction = "feed"
	ActionPlay CreatureAction = "play"
	ActionRest CreatureAction = "rest"
)

func (a CreatureAction) Valid() bool {
	switch a {
	case ActionFeed, ActionPlay, ActionRest:
		return true
	}
	return false
}

type Creature struct {
	Id         int       `json:"id"`
	ExternalId string    `json:"external_id"`
	Name       string    `json:"name"`
	OwnerId    int       `json:"owner_id"`
	Hunger     int       `json:"hunger"`
	Love       int       `json:"love"`
	Tiredness  int       `json:"tiredness"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}
