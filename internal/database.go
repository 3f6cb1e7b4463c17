package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const localStorageSchema = `
CREATE TABLE IF NOT EXISTS localStorage (
	key TEXT PRIMARY KEY,
	value TEXT
)`

// OpenDatabase opens (creating if needed) the session database and ensures
// the localStorage table exists
func OpenDatabase(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases and write ordering consistent
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.Exec(localStorageSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create localStorage table: %w", err)
	}

	return db, nil
}

// OpenDatabaseReadOnly opens an existing session database without write access
func OpenDatabaseReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// GetItem reads one localStorage value. A missing key yields ok == false.
func GetItem(db *sql.DB, key string) (value string, ok bool, err error) {
	var v sql.NullString
	err = db.QueryRow("SELECT value FROM localStorage WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query failed: %w", err)
	}
	if !v.Valid {
		return "", false, nil
	}
	return v.String, true, nil
}

// SetItem writes one localStorage value, replacing any previous value
func SetItem(db *sql.DB, key, value string) error {
	_, err := db.Exec(
		"INSERT INTO localStorage (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// ListKeys returns every key in the localStorage table
func ListKeys(db *sql.DB) ([]string, error) {
	rows, err := db.Query("SELECT key FROM localStorage ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return keys, nil
}
