package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Creature struct {
	Id         int
	ExternalId string
	Name       string
	OwnerId    int
	Hunger     int
	Love       int
	Tiredness  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
}

type CreateCreatureParams struct {
	Name       string `json:"name"`
	ExternalId string `json:"external_id"`
	OwnerId    int    `json:"-"`
}
