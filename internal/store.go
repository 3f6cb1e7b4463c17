package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fixed message texts the store inserts on its own
const (
	AvailabilityNotice   = "Checking available appointment slots..."
	TransportFailureText = "An error occurred while processing your request."
	slotConfirmFormat    = "I'd like to schedule my test drive for %s."
)

// StreamRequest is the body of one backend query
type StreamRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// Streamer opens a response stream for a request and reports every decoded
// frame to onFrame in arrival order. It returns once the stream is finished.
type Streamer interface {
	Stream(ctx context.Context, req StreamRequest, onFrame func(Frame)) error
}

// Persister loads and saves the whole session collection
type Persister interface {
	LoadSessions() ([]*Session, error)
	SaveSessions(sessions []*Session) error
}

// StoreOption configures a SessionStore
type StoreOption func(*SessionStore)

// WithPersister mirrors every mutation to p
func WithPersister(p Persister) StoreOption {
	return func(s *SessionStore) { s.persister = p }
}

// WithObserver registers fn to be called with the affected session id after
// every mutation. fn runs outside the store lock.
func WithObserver(fn func(sessionID string)) StoreOption {
	return func(s *SessionStore) { s.observer = fn }
}

// WithClock replaces the clock used for session and message timestamps
func WithClock(now func() time.Time) StoreOption {
	return func(s *SessionStore) { s.now = now }
}

// SessionStore owns the ordered session collection, the current session
// pointer and the per-session loading flags. It is the only writer of
// session state.
//
// The sessions slice and the Session values it points to are never modified
// in place; each mutation clones the affected session and swaps in a new
// slice, so snapshots handed out by Sessions and Current stay stable.
type SessionStore struct {
	mu        sync.Mutex
	sessions  []*Session
	currentID string
	loading   map[string]bool

	streamer   Streamer
	normalizer *Normalizer
	dedup      *Deduplicator
	persister  Persister
	observer   func(string)
	now        func() time.Time
}

// NewSessionStore creates an empty store. Call Load before use.
func NewSessionStore(streamer Streamer, normalizer *Normalizer, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		loading:    make(map[string]bool),
		streamer:   streamer,
		normalizer: normalizer,
		dedup:      NewDeduplicator(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the persisted collection and selects the most recently
// modified session. With nothing saved, a fresh session is created.
func (s *SessionStore) Load() error {
	var loaded []*Session
	var loadErr error
	if s.persister != nil {
		loaded, loadErr = s.persister.LoadSessions()
		if loadErr != nil {
			LogWarn("Failed to load saved sessions: %v", loadErr)
			loaded = nil
		}
	}

	s.mu.Lock()
	s.sessions = loaded
	s.currentID = ""
	if latest := mostRecent(loaded); latest != nil {
		s.currentID = latest.ID
		s.mu.Unlock()
		LogDebug("Loaded %d sessions, current %s", len(loaded), latest.ID)
		return loadErr
	}
	created := s.createLocked()
	s.mu.Unlock()

	s.notify(created.ID)
	return loadErr
}

// CreateSession adds an empty session named "Chat <n+1>" and makes it current
func (s *SessionStore) CreateSession() string {
	s.mu.Lock()
	session := s.createLocked()
	s.mu.Unlock()

	s.notify(session.ID)
	return session.ID
}

func (s *SessionStore) createLocked() *Session {
	session := &Session{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Chat %d", len(s.sessions)+1),
		Messages:  []Message{},
		Timestamp: s.now().UnixMilli(),
	}
	next := make([]*Session, len(s.sessions), len(s.sessions)+1)
	copy(next, s.sessions)
	s.sessions = append(next, session)
	s.currentID = session.ID
	s.persistLocked()
	return session
}

// SwitchSession makes id current. Unknown ids are ignored. A session that
// already has messages gets its modification time refreshed.
func (s *SessionStore) SwitchSession(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.currentID = id
	if len(s.sessions[idx].Messages) > 0 {
		s.replaceLocked(idx, func(c *Session) { c.Timestamp = s.now().UnixMilli() })
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify(id)
	return true
}

// RenameSession sets the display name of id
func (s *SessionStore) RenameSession(id, name string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("rename %s: %w", id, ErrSessionNotFound)
	}
	s.replaceLocked(idx, func(c *Session) { c.Name = name })
	s.persistLocked()
	s.mu.Unlock()

	s.notify(id)
	return nil
}

// DeleteSession removes id. If it was current, the most recently modified
// remaining session becomes current, or a new session is created when none
// remain. Events still streaming into a deleted session are dropped.
func (s *SessionStore) DeleteSession(id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrSessionNotFound)
	}

	next := make([]*Session, 0, len(s.sessions)-1)
	next = append(next, s.sessions[:idx]...)
	next = append(next, s.sessions[idx+1:]...)
	s.sessions = next
	delete(s.loading, id)

	var created *Session
	if s.currentID == id {
		if fallback := mostRecent(next); fallback != nil {
			s.currentID = fallback.ID
			s.persistLocked()
		} else {
			created = s.createLocked()
		}
	} else {
		s.persistLocked()
	}
	s.mu.Unlock()

	s.notify(id)
	if created != nil {
		s.notify(created.ID)
	}
	return nil
}

// Submit sends text from the current session and folds the response into
// that session. It blocks until the stream finishes and reports whether the
// submission was accepted: blank text and a session that is already loading
// are no-ops.
func (s *SessionStore) Submit(ctx context.Context, text string) bool {
	return s.submit(ctx, text, false)
}

// ConfirmSlot books the given time slot in the current session. It bypasses
// the blank-input guard but not the loading guard.
func (s *SessionStore) ConfirmSlot(ctx context.Context, slot string) bool {
	return s.submit(ctx, fmt.Sprintf(slotConfirmFormat, slot), true)
}

func (s *SessionStore) submit(ctx context.Context, text string, override bool) bool {
	if strings.TrimSpace(text) == "" && !override {
		return false
	}

	s.mu.Lock()
	origin := s.currentID
	idx := s.indexLocked(origin)
	if idx < 0 || s.loading[origin] {
		s.mu.Unlock()
		return false
	}
	s.loading[origin] = true
	s.appendLocked(idx, RoleUser, text)
	s.persistLocked()
	s.mu.Unlock()
	s.notify(origin)

	req := StreamRequest{SessionID: origin, Query: text}
	err := s.streamer.Stream(ctx, req, func(frame Frame) {
		if event, ok := s.normalizer.Normalize(frame); ok {
			s.apply(origin, event)
		}
	})
	if err != nil {
		LogWarn("Stream for session %s failed: %v", origin, err)
		s.fail(origin)
		return true
	}

	// A stream that ends without an end frame still releases the session
	s.setLoading(origin, false)
	return true
}

// apply folds one event into the session it originated from
func (s *SessionStore) apply(origin string, event StreamEvent) {
	s.mu.Lock()
	idx := s.indexLocked(origin)
	if idx < 0 {
		s.mu.Unlock()
		LogDebug("Dropping %s event for deleted session %s", event.EventType(), origin)
		return
	}

	changed := true
	switch e := event.(type) {
	case ChunkEvent:
		s.appendChunkLocked(idx, e.Text)
	case ToolUseEvent:
		changed = e.Name == ToolCheckAvailability &&
			!s.dedup.HasSystemNotice(s.sessions[idx].Messages, AvailabilityNotice)
		if changed {
			s.appendLocked(idx, RoleSystem, AvailabilityNotice)
		}
	case ToolOutputEvent:
		changed = !s.dedup.HasToolResult(s.sessions[idx].Messages, e.Result.Kind())
		if changed {
			s.appendLocked(idx, RoleTool, e.Result.Serialize())
		}
	case EndEvent:
		changed = s.loading[origin]
		delete(s.loading, origin)
	}

	if changed {
		s.persistLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify(origin)
	}
}

// fail records a transport failure in the originating session
func (s *SessionStore) fail(origin string) {
	s.mu.Lock()
	delete(s.loading, origin)
	idx := s.indexLocked(origin)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.appendLocked(idx, RoleSystem, TransportFailureText)
	s.persistLocked()
	s.mu.Unlock()

	s.notify(origin)
}

func (s *SessionStore) setLoading(id string, loading bool) {
	s.mu.Lock()
	was := s.loading[id]
	if loading {
		s.loading[id] = true
	} else {
		delete(s.loading, id)
	}
	s.mu.Unlock()

	if was != loading {
		s.notify(id)
	}
}

// Sessions returns the sessions in creation order
func (s *SessionStore) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// SearchSessions returns the sessions whose name contains query, ignoring case
func (s *SessionStore) SearchSessions(query string) []*Session {
	var out []*Session
	for _, session := range s.Sessions() {
		if session.MatchesQuery(query) {
			out = append(out, session)
		}
	}
	return out
}

// Current returns the current session, or nil before Load
func (s *SessionStore) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(s.currentID); idx >= 0 {
		return s.sessions[idx]
	}
	return nil
}

// CurrentID returns the id of the current session
func (s *SessionStore) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Session looks up a session by id
func (s *SessionStore) Session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.sessions[idx], nil
	}
	return nil, fmt.Errorf("lookup %s: %w", id, ErrSessionNotFound)
}

// Messages returns the message log of id
func (s *SessionStore) Messages(id string) []Message {
	session, err := s.Session(id)
	if err != nil {
		return nil
	}
	return session.Messages
}

// IsLoading reports whether id has a response in flight
func (s *SessionStore) IsLoading(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading[id]
}

func (s *SessionStore) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, session := range s.sessions {
		if session.ID == id {
			return i
		}
	}
	return -1
}

// replaceLocked swaps in a modified clone of the session at idx
func (s *SessionStore) replaceLocked(idx int, edit func(*Session)) {
	clone := s.sessions[idx].Clone()
	edit(clone)
	next := make([]*Session, len(s.sessions))
	copy(next, s.sessions)
	next[idx] = clone
	s.sessions = next
}

func (s *SessionStore) appendLocked(idx int, role Role, content string) {
	now := s.now()
	s.replaceLocked(idx, func(c *Session) {
		c.Messages = append(c.Messages, NewMessage(role, content, now))
		c.Timestamp = now.UnixMilli()
	})
}

// appendChunkLocked grows the trailing assistant message or starts a new one
func (s *SessionStore) appendChunkLocked(idx int, text string) {
	last, ok := s.sessions[idx].LastMessage()
	if !ok || last.Role != RoleAssistant {
		s.appendLocked(idx, RoleAssistant, text)
		return
	}
	s.replaceLocked(idx, func(c *Session) {
		c.Messages[len(c.Messages)-1].Content += text
		c.Timestamp = s.now().UnixMilli()
	})
}

func (s *SessionStore) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveSessions(s.sessions); err != nil {
		LogWarn("Failed to save sessions: %v", err)
	}
}

func (s *SessionStore) notify(id string) {
	if s.observer != nil {
		s.observer(id)
	}
}

// mostRecent returns the session with the greatest timestamp. Ties go to
// the later session in the slice.
func mostRecent(sessions []*Session) *Session {
	var best *Session
	for _, session := range sessions {
		if best == nil || session.Timestamp >= best.Timestamp {
			best = session
		}
	}
	return best
}
