package internal

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/avast/retry-go/v4"
)

// SessionsKey is the localStorage key holding the session collection
const SessionsKey = "chatSessions"

const (
	saveAttempts = 3
	saveDelay    = 20 * time.Millisecond
)

// Storage persists the session collection as one JSON document in the
// localStorage table
type Storage struct {
	db   *sql.DB
	path string
}

// NewStorage creates a new Storage instance. path is only used in errors.
func NewStorage(db *sql.DB, path string) *Storage {
	return &Storage{db: db, path: path}
}

// LoadSessions reads the saved collection. A missing key yields no sessions.
func (s *Storage) LoadSessions() ([]*Session, error) {
	value, ok, err := GetItem(s.db, SessionsKey)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "load", Err: err}
	}
	if !ok {
		return nil, nil
	}

	var sessions []*Session
	if err := json.Unmarshal([]byte(value), &sessions); err != nil {
		return nil, &StorageError{Path: s.path, Op: "load", Err: err}
	}

	// Drop null entries left by hand-edited data
	valid := sessions[:0]
	for _, session := range sessions {
		if session == nil || session.ID == "" {
			LogDebug("Skipping saved session without id")
			continue
		}
		if session.Messages == nil {
			session.Messages = []Message{}
		}
		valid = append(valid, session)
	}
	return valid, nil
}

// SaveSessions replaces the saved collection. Busy or locked writes are
// retried with backoff.
func (s *Storage) SaveSessions(sessions []*Session) error {
	if sessions == nil {
		sessions = []*Session{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return &StorageError{Path: s.path, Op: "save", Err: err}
	}

	err = retry.Do(
		func() error {
			return SetItem(s.db, SessionsKey, string(data))
		},
		retry.Attempts(saveAttempts),
		retry.Delay(saveDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			LogDebug("Retrying session save (attempt %d): %v", n+1, err)
		}),
	)
	if err != nil {
		return &StorageError{Path: s.path, Op: "save", Err: err}
	}
	return nil
}

// Close closes the underlying database
func (s *Storage) Close() error {
	return s.db.Close()
}
