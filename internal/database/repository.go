package database

import "github.com/habii/habii-server/internal/types"

type HabiiRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateCreature(params CreateCreatureParams) (Creature, error)
	GetCreatureById(id int) (Creature, error)
	GetCreatureByExternalId(externalId string) (Creature, error)
	ListCreaturesByOwner(ownerId int) ([]Creature, error)
	DeleteCreature(id int) error
	ApplyCreatureAction(creatureId int, action types.CreatureAction) (Creature, error)
	DegradeCreatureStats() (int64, error)
}
