package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the postgres database and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	database, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := Migrate(database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return database, nil
}

// Open connects with an explicit driver. Tests use it with the sqlite3
// driver and an in-memory DSN.
func Open(driver, dsn string) (*sqlx.DB, error) {
	database, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return database, nil
}

// Migrate creates the schema. Timestamps are always written from Go rather
// than DB defaults so the committed value is the one broadcast, which also
// keeps the DDL portable between postgres and sqlite.
func Migrate(database *sqlx.DB) error {
	pk := "SERIAL PRIMARY KEY"
	blob := "BYTEA"
	if database.DriverName() == "sqlite3" {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
		blob = "BLOB"
	}

	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
            id %s,
            username TEXT UNIQUE NOT NULL,
            email TEXT UNIQUE,
            password TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
        );`, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chats (
            id %s,
            name TEXT UNIQUE NOT NULL,
            is_group BOOLEAN NOT NULL DEFAULT FALSE,
            is_private BOOLEAN NOT NULL DEFAULT FALSE
        );`, pk),
		`CREATE TABLE IF NOT EXISTS chat_members (
            chat_id INT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            PRIMARY KEY(chat_id, user_id)
        );`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS messages (
            id %s,
            chat_id INT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            type TEXT NOT NULL,
            content TEXT NOT NULL,
            timestamp TIMESTAMP NOT NULL,
            seen BOOLEAN NOT NULL DEFAULT FALSE,
            seen_at TIMESTAMP,
            deleted BOOLEAN NOT NULL DEFAULT FALSE
        );`, pk),
		`CREATE TABLE IF NOT EXISTS files (
            id TEXT PRIMARY KEY,
            original_name TEXT NOT NULL,
            mime_type TEXT NOT NULL,
            storage_pointer TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
        );`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS key_versions (
            id %s,
            wrapped_key %s NOT NULL,
            created_at TIMESTAMP NOT NULL
        );`, pk, blob),
	}

	for _, m := range migrations {
		if _, err := database.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
