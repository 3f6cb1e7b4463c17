package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SessionsKey mirrors the localStorage key the client saves sessions under
const SessionsKey = "chatSessions"

// SampleSessionsJSON is a saved collection of two sessions. "session-2" is
// the most recently modified and holds a tool message.
const SampleSessionsJSON = `[
  {
    "id": "session-1",
    "name": "Chat 1",
    "messages": [
      {"role": "user", "content": "Where is the dealership?", "timestamp": 1742374800000},
      {"role": "assistant", "content": "We are on 5th Avenue.", "timestamp": 1742374801000}
    ],
    "timestamp": 1742374801000
  },
  {
    "id": "session-2",
    "name": "Test drive",
    "messages": [
      {"role": "user", "content": "Any slots tomorrow?", "timestamp": 1742461200000},
      {"role": "system", "content": "Checking available appointment slots...", "timestamp": 1742461201000},
      {"role": "tool", "content": "{\"type\":\"appointment_slots\",\"data\":{\"timeSlots\":[{\"time\":\"9:00 AM\",\"available\":true}],\"date\":\"20/03/2025\",\"dealership\":\"5th Avenue, New York\",\"vehicle\":\"Super Car 123\"}}", "timestamp": 1742461202000},
      {"role": "assistant", "content": "9:00 AM is free.", "timestamp": 1742461203000}
    ],
    "timestamp": 1742461203000
  }
]`

// CreateSQLiteFixture creates a session database file at dbPath holding
// SampleSessionsJSON
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	CreateSQLiteFixtureWith(t, dbPath, SampleSessionsJSON)
}

// CreateSQLiteFixtureWith creates a session database file whose
// chatSessions value is sessionsJSON
func CreateSQLiteFixtureWith(t *testing.T, dbPath, sessionsJSON string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS localStorage (
		key TEXT PRIMARY KEY,
		value TEXT
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	upsertSQL := "INSERT INTO localStorage (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	if _, err := db.Exec(upsertSQL, SessionsKey, sessionsJSON); err != nil {
		t.Fatalf("Failed to insert sessions: %v", err)
	}
}
