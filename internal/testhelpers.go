package internal

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// CreateTestSession creates a test session with sample data
func CreateTestSession(id string) *Session {
	now := time.Now().UnixMilli()
	return &Session{
		ID:   id,
		Name: "Test Conversation",
		Messages: []Message{
			{Role: RoleUser, Content: "Is the Super Car available on Friday?", Timestamp: now},
			{Role: RoleAssistant, Content: "Let me check the schedule for you.", Timestamp: now},
		},
		Timestamp: now,
	}
}

// CreateTestSessionWithMessages creates a test session with custom messages
func CreateTestSessionWithMessages(id string, timestamp int64, messages []Message) *Session {
	if messages == nil {
		messages = []Message{}
	}
	return &Session{
		ID:        id,
		Name:      "Chat " + id,
		Messages:  messages,
		Timestamp: timestamp,
	}
}

// MemoryPersister keeps the saved collection in memory
type MemoryPersister struct {
	mu      sync.Mutex
	saved   []*Session
	saves   int
	LoadErr error
	SaveErr error
}

// NewMemoryPersister creates a persister preloaded with sessions
func NewMemoryPersister(sessions ...*Session) *MemoryPersister {
	return &MemoryPersister{saved: sessions}
}

// LoadSessions returns copies of the saved sessions
func (p *MemoryPersister) LoadSessions() ([]*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LoadErr != nil {
		return nil, p.LoadErr
	}
	out := make([]*Session, 0, len(p.saved))
	for _, s := range p.saved {
		out = append(out, s.Clone())
	}
	return out, nil
}

// SaveSessions records the collection
func (p *MemoryPersister) SaveSessions(sessions []*Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.SaveErr != nil {
		return p.SaveErr
	}
	p.saved = make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		p.saved = append(p.saved, s.Clone())
	}
	return nil
}

// Saved returns the last saved collection
func (p *MemoryPersister) Saved() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved
}

// Saves returns how many times SaveSessions was called
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// ScriptedStreamer replays a raw event stream through DecodeStream
type ScriptedStreamer struct {
	// Body is the raw stream text served for every request
	Body string
	// Err, when set, is returned by the reader after Body is consumed
	Err error
	// Started receives each request before any frame is emitted
	Started chan StreamRequest
	// Release, when set, must be closed before the stream finishes
	Release chan struct{}

	mu       sync.Mutex
	requests []StreamRequest
}

// Stream implements Streamer
func (s *ScriptedStreamer) Stream(ctx context.Context, req StreamRequest, onFrame func(Frame)) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.Started != nil {
		s.Started <- req
	}
	if s.Release != nil {
		<-s.Release
	}

	var r io.Reader = strings.NewReader(s.Body)
	if s.Err != nil {
		r = &failingReader{data: s.Body, err: s.Err}
	}
	return DecodeStream(ctx, r, onFrame)
}

// Requests returns every request seen so far
func (s *ScriptedStreamer) Requests() []StreamRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StreamRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// failingReader yields data and then err instead of io.EOF
type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

// SSE builds a raw stream body from alternating event type and payload pairs
func SSE(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString("event: " + pairs[i] + "\n")
		b.WriteString("data: " + pairs[i+1] + "\n\n")
	}
	return b.String()
}
