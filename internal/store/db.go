package store

import (
	"database/sql"
	"embed"
	"errors"
	"log/slog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var ErrNotFound = errors.New("store: not found")

type Store struct {
	DB *sql.DB
}

func NewStore(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	// A single connection keeps sqlite writes serialized per process.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		slog.Error("Error enabling foreign keys", "error", err)
		return nil, err
	}

	return &Store{DB: db}, nil
}

// Open connects and applies the embedded migrations.
func Open(dataSourceName string) (*Store, error) {
	s, err := NewStore(dataSourceName)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(migrationFS, "migrations"); err != nil {
		s.DB.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
