package database

import (
	"fmt"
	"time"

	"github.com/habii/habii-server/internal/types"
)

const creatureColumns = "id, external_id, name, owner_id, hunger, love, tiredness, created_at, updated_at"

func (db *PgHabiiRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
	)

	return u, err
}

func (db *PgHabiiRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email",
		params.UserId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
	)

	return u, err
}

func (db *PgHabiiRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
	)

	return user, err
}

func (db *PgHabiiRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
	)

	return user, err
}

func (db *PgHabiiRepository) CreateCreature(params CreateCreatureParams) (Creature, error) {
	res := db.conn.QueryRow(
		"INSERT INTO creatures (external_id, name, owner_id, hunger, love, tiredness, created_at, updated_at) "+
			"VALUES ($1, $2, $3, 50, 50, 50, $4, $4) RETURNING "+creatureColumns,
		params.ExternalId,
		params.Name,
		params.OwnerId,
		time.Now().UTC(),
	)

	return scanCreature(res)
}

func (db *PgHabiiRepository) GetCreatureById(id int) (Creature, error) {
	row := db.conn.QueryRow(
		"SELECT "+creatureColumns+" FROM creatures WHERE id = $1 LIMIT 1",
		id,
	)

	return scanCreature(row)
}

func (db *PgHabiiRepository) GetCreatureByExternalId(externalId string) (Creature, error) {
	row := db.conn.QueryRow(
		"SELECT "+creatureColumns+" FROM creatures WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	return scanCreature(row)
}

func (db *PgHabiiRepository) ListCreaturesByOwner(ownerId int) ([]Creature, error) {
	rows, err := db.conn.Query(
		"SELECT "+creatureColumns+" FROM creatures WHERE owner_id = $1 ORDER BY id",
		ownerId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creatures = make([]Creature, 0)
	for rows.Next() {
		creature, err := scanCreature(rows)
		if err != nil {
			return nil, err
		}
		creatures = append(creatures, creature)
	}

	return creatures, rows.Err()
}

func (db *PgHabiiRepository) DeleteCreature(id int) error {
	_, err := db.conn.Exec("DELETE FROM creatures WHERE id = $1", id)
	return err
}

// ApplyCreatureAction adjusts a creature's stats for one care action. The
// clamping to the 0..100 range happens in SQL so concurrent actions cannot
// push a stat out of bounds.
func (db *PgHabiiRepository) ApplyCreatureAction(creatureId int, action types.CreatureAction) (Creature, error) {
	var query string
	switch action {
	case types.ActionFeed:
		query = "UPDATE creatures SET hunger = LEAST(hunger + 20, 100), updated_at = $2 " +
			"WHERE id = $1 RETURNING " + creatureColumns
	case types.ActionPlay:
		query = "UPDATE creatures SET love = LEAST(love + 15, 100), tiredness = LEAST(tiredness + 10, 100), updated_at = $2 " +
			"WHERE id = $1 RETURNING " + creatureColumns
	case types.ActionRest:
		query = "UPDATE creatures SET tiredness = GREATEST(tiredness - 30, 0), updated_at = $2 " +
			"WHERE id = $1 RETURNING " + creatureColumns
	default:
		return Creature{}, fmt.Errorf("unknown action %q", action)
	}

	row := db.conn.QueryRow(query, creatureId, time.Now().UTC())
	return scanCreature(row)
}

// DegradeCreatureStats applies one period of passive stat decay to every
// creature and returns the number of creatures updated.
func (db *PgHabiiRepository) DegradeCreatureStats() (int64, error) {
	res, err := db.conn.Exec(
		"UPDATE creatures SET "+
			"hunger = GREATEST(hunger - 10, 0), "+
			"love = GREATEST(love - 10, 0), "+
			"tiredness = LEAST(tiredness + 10, 100), "+
			"updated_at = $1",
		time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCreature(row rowScanner) (Creature, error) {
	var c Creature
	err := row.Scan(
		&c.Id,
		&c.ExternalId,
		&c.Name,
		&c.OwnerId,
		&c.Hunger,
		&c.Love,
		&c.Tiredness,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, err
}
