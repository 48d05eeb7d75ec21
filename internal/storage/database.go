package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
		"id" TEXT PRIMARY KEY,
		"text" TEXT NOT NULL CHECK (length(trim("text")) > 0),
		"created_at" DATETIME NOT NULL
);`

// SQLiteStore keeps tasks in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteStore(): failed to open database: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps
	// in-memory databases alive and shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLiteStore(): failed to connect to database: %w", err)
	}
	if _, err := db.Exec(createTasksTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLiteStore(): failed to create tasks table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
