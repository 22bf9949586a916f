package database

import (
	"github.com/stretchr/testify/mock"

	"github.com/habii/habii-server/internal/types"
)

type MockHabiiRepository struct {
	mock.Mock
}

func (m *MockHabiiRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockHabiiRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockHabiiRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockHabiiRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockHabiiRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockHabiiRepository) CreateCreature(params CreateCreatureParams) (Creature, error) {
	args := m.Called(params)
	return args.Get(0).(Creature), args.Error(1)
}
func (m *MockHabiiRepository) GetCreatureById(id int) (Creature, error) {
	args := m.Called(id)
	return args.Get(0).(Creature), args.Error(1)
}
func (m *MockHabiiRepository) GetCreatureByExternalId(externalId string) (Creature, error) {
	args := m.Called(externalId)
	return args.Get(0).(Creature), args.Error(1)
}
func (m *MockHabiiRepository) ListCreaturesByOwner(ownerId int) ([]Creature, error) {
	args := m.Called(ownerId)
	return args.Get(0).([]Creature), args.Error(1)
}
func (m *MockHabiiRepository) DeleteCreature(id int) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockHabiiRepository) ApplyCreatureAction(creatureId int, action types.CreatureAction) (Creature, error) {
	args := m.Called(creatureId, action)
	return args.Get(0).(Creature), args.Error(1)
}
func (m *MockHabiiRepository) DegradeCreatureStats() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}
