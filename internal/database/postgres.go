package database

import (
	"database/sql"

	_ "github.com/lib/pq"
)

type PgHabiiRepository struct {
	conn *sql.DB
}

func NewPgHabiiRepository(dsn string) (*PgHabiiRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgHabiiRepository{conn: db}, nil
}

func (db *PgHabiiRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgHabiiRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
