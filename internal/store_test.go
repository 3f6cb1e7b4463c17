package internal

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 19, 9, 0, 0, 0, time.UTC)}
}

// Now advances one second per call so every mutation gets a distinct timestamp
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, streamer Streamer, persister *MemoryPersister) *SessionStore {
	t.Helper()
	store := NewSessionStore(streamer, newTestNormalizer(),
		WithPersister(persister),
		WithClock(newFakeClock().Now),
	)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return store
}

func roles(messages []Message) []Role {
	out := make([]Role, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Role)
	}
	return out
}

const slotsOutput = `{"name":"check_appointment_availability","output":"['9:00 AM', '10:00 AM']"}`

func TestSessionStore_LoadEmpty(t *testing.T) {
	store := newTestStore(t, &ScriptedStreamer{}, NewMemoryPersister())

	sessions := store.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("Sessions() = %d, want 1", len(sessions))
	}
	if sessions[0].Name != "Chat 1" {
		t.Errorf("Name = %q, want %q", sessions[0].Name, "Chat 1")
	}
	if store.CurrentID() != sessions[0].ID {
		t.Error("new session is not current")
	}
}

func TestSessionStore_LoadPicksMostRecent(t *testing.T) {
	persister := NewMemoryPersister(
		CreateTestSessionWithMessages("old", 1000, nil),
		CreateTestSessionWithMessages("newest", 3000, nil),
		CreateTestSessionWithMessages("middle", 2000, nil),
	)
	store := newTestStore(t, &ScriptedStreamer{}, persister)

	if store.CurrentID() != "newest" {
		t.Errorf("CurrentID() = %q, want %q", store.CurrentID(), "newest")
	}
	if len(store.Sessions()) != 3 {
		t.Errorf("Sessions() = %d, want 3", len(store.Sessions()))
	}
}

func TestSessionStore_LoadFailure(t *testing.T) {
	persister := NewMemoryPersister()
	persister.LoadErr = errors.New("corrupt")

	store := NewSessionStore(&ScriptedStreamer{}, newTestNormalizer(), WithPersister(persister))
	if err := store.Load(); err == nil {
		t.Error("Load() should report the persister error")
	}
	if store.Current() == nil {
		t.Error("store has no current session after a failed load")
	}
}

func TestSessionStore_ChunksCoalesce(t *testing.T) {
	streamer := &ScriptedStreamer{Body: SSE(
		EventChunk, "Hel",
		EventChunk, "lo",
		EventChunk, "   ",
		EventChunk, " world",
	)}
	store := newTestStore(t, streamer, NewMemoryPersister())

	if !store.Submit(context.Background(), "Hi") {
		t.Fatal("Submit() rejected non-blank text")
	}

	messages := store.Messages(store.CurrentID())
	if got, want := roles(messages), []Role{RoleUser, RoleAssistant}; !reflect.DeepEqual(got, want) {
		t.Fatalf("roles = %v, want %v", got, want)
	}
	if messages[1].Content != "Hello world" {
		t.Errorf("assistant content = %q, want %q", messages[1].Content, "Hello world")
	}
	if store.IsLoading(store.CurrentID()) {
		t.Error("session still loading after end")
	}
}

func TestSessionStore_ToolOutputBreaksAssistantText(t *testing.T) {
	streamer := &ScriptedStreamer{Body: SSE(
		EventChunk, "Let me check.",
		EventToolOutput, slotsOutput,
		EventChunk, "Here you go.",
	)}
	store := newTestStore(t, streamer, NewMemoryPersister())
	store.Submit(context.Background(), "Any slots?")

	messages := store.Messages(store.CurrentID())
	want := []Role{RoleUser, RoleAssistant, RoleTool, RoleAssistant}
	if got := roles(messages); !reflect.DeepEqual(got, want) {
		t.Fatalf("roles = %v, want %v", got, want)
	}
	if messages[1].Content != "Let me check." || messages[3].Content != "Here you go." {
		t.Errorf("assistant messages = %q, %q", messages[1].Content, messages[3].Content)
	}

	result, err := newTestInterpreter().DecodeToolMessage(messages[2].Content)
	if err != nil {
		t.Fatalf("DecodeToolMessage() error = %v", err)
	}
	if result.Kind() != KindAppointmentSlots {
		t.Errorf("tool message kind = %q", result.Kind())
	}
}

func TestSessionStore_DuplicateToolOutput(t *testing.T) {
	streamer := &ScriptedStreamer{Body: SSE(
		EventToolUse, `{"name":"check_appointment_availability"}`,
		EventToolUse, `check_appointment_availability`,
		EventToolOutput, slotsOutput,
		EventToolOutput, slotsOutput,
	)}
	store := newTestStore(t, streamer, NewMemoryPersister())
	store.Submit(context.Background(), "slots please")

	messages := store.Messages(store.CurrentID())
	want := []Role{RoleUser, RoleSystem, RoleTool}
	if got := roles(messages); !reflect.DeepEqual(got, want) {
		t.Fatalf("roles = %v, want %v", got, want)
	}
	if messages[1].Content != AvailabilityNotice {
		t.Errorf("system message = %q", messages[1].Content)
	}

	// a second turn with the same tool adds neither the notice nor the result again
	store.Submit(context.Background(), "again")
	messages = store.Messages(store.CurrentID())
	want = []Role{RoleUser, RoleSystem, RoleTool, RoleUser}
	if got := roles(messages); !reflect.DeepEqual(got, want) {
		t.Errorf("roles after second turn = %v, want %v", got, want)
	}
}

func TestSessionStore_OtherToolUseIgnored(t *testing.T) {
	streamer := &ScriptedStreamer{Body: SSE(EventToolUse, `{"name":"schedule_appointment"}`)}
	store := newTestStore(t, streamer, NewMemoryPersister())
	store.Submit(context.Background(), "book it")

	if got := roles(store.Messages(store.CurrentID())); !reflect.DeepEqual(got, []Role{RoleUser}) {
		t.Errorf("roles = %v, want only the user message", got)
	}
}

func TestSessionStore_TransportFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Role
	}{
		{"before any data", "", []Role{RoleUser, RoleSystem}},
		{"after partial data", SSE(EventChunk, "Partial"), []Role{RoleUser, RoleAssistant, RoleSystem}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			streamer := &ScriptedStreamer{Body: tt.body, Err: errors.New("connection reset")}
			store := newTestStore(t, streamer, NewMemoryPersister())

			if !store.Submit(context.Background(), "hello") {
				t.Fatal("Submit() rejected the request")
			}

			messages := store.Messages(store.CurrentID())
			if got := roles(messages); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("roles = %v, want %v", got, tt.want)
			}
			if last := messages[len(messages)-1]; last.Content != TransportFailureText {
				t.Errorf("system message = %q, want %q", last.Content, TransportFailureText)
			}
			if store.IsLoading(store.CurrentID()) {
				t.Error("loading not cleared after failure")
			}
		})
	}
}

func TestSessionStore_BlankSubmitIsNoop(t *testing.T) {
	streamer := &ScriptedStreamer{Body: SSE(EventChunk, "x")}
	persister := NewMemoryPersister()
	store := newTestStore(t, streamer, persister)
	saves := persister.Saves()

	for _, text := range []string{"", "   ", "\n\t"} {
		if store.Submit(context.Background(), text) {
			t.Errorf("Submit(%q) was accepted", text)
		}
	}

	if n := len(store.Messages(store.CurrentID())); n != 0 {
		t.Errorf("messages = %d, want 0", n)
	}
	if n := len(streamer.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
	if persister.Saves() != saves {
		t.Error("blank submit triggered a save")
	}
}

func TestSessionStore_BusySubmitIsNoop(t *testing.T) {
	streamer := &ScriptedStreamer{
		Body:    SSE(EventChunk, "done"),
		Started: make(chan StreamRequest),
		Release: make(chan struct{}),
	}
	store := newTestStore(t, streamer, NewMemoryPersister())
	id := store.CurrentID()

	done := make(chan bool)
	go func() { done <- store.Submit(context.Background(), "first") }()
	<-streamer.Started

	if !store.IsLoading(id) {
		t.Fatal("session not loading while stream is open")
	}
	if store.Submit(context.Background(), "second") {
		t.Error("Submit() accepted while loading")
	}
	if store.ConfirmSlot(context.Background(), "9:00 AM") {
		t.Error("ConfirmSlot() accepted while loading")
	}

	close(streamer.Release)
	if !<-done {
		t.Fatal("first Submit() was rejected")
	}

	messages := store.Messages(id)
	if got := roles(messages); !reflect.DeepEqual(got, []Role{RoleUser, RoleAssistant}) {
		t.Errorf("roles = %v", got)
	}
	if n := len(streamer.Requests()); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestSessionStore_EventsFoldIntoOriginatingSession(t *testing.T) {
	streamer := &ScriptedStreamer{
		Body:    SSE(EventChunk, "late answer"),
		Started: make(chan StreamRequest),
		Release: make(chan struct{}),
	}
	store := newTestStore(t, streamer, NewMemoryPersister())
	origin := store.CurrentID()

	done := make(chan bool)
	go func() { done <- store.Submit(context.Background(), "question") }()
	req := <-streamer.Started
	if req.SessionID != origin || req.Query != "question" {
		t.Errorf("request = %#v", req)
	}

	other := store.CreateSession()
	close(streamer.Release)
	<-done

	if store.CurrentID() != other {
		t.Error("current session changed by a background stream")
	}
	if n := len(store.Messages(other)); n != 0 {
		t.Errorf("new session has %d messages, want 0", n)
	}
	if got := roles(store.Messages(origin)); !reflect.DeepEqual(got, []Role{RoleUser, RoleAssistant}) {
		t.Errorf("origin roles = %v", got)
	}
}

func TestSessionStore_DeletedWhileStreaming(t *testing.T) {
	streamer := &ScriptedStreamer{
		Body:    SSE(EventChunk, "orphan", EventToolOutput, slotsOutput),
		Started: make(chan StreamRequest),
		Release: make(chan struct{}),
	}
	store := newTestStore(t, streamer, NewMemoryPersister())
	origin := store.CurrentID()

	done := make(chan bool)
	go func() { done <- store.Submit(context.Background(), "question") }()
	<-streamer.Started

	if err := store.DeleteSession(origin); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	close(streamer.Release)
	<-done

	if _, err := store.Session(origin); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("deleted session came back: %v", err)
	}
	sessions := store.Sessions()
	if len(sessions) != 1 || len(sessions[0].Messages) != 0 {
		t.Errorf("sessions = %#v, want one empty replacement", sessions)
	}
}

func TestSessionStore_DeleteCurrentSwitchesToMostRecent(t *testing.T) {
	persister := NewMemoryPersister(
		CreateTestSessionWithMessages("a", 1000, nil),
		CreateTestSessionWithMessages("b", 3000, nil),
		CreateTestSessionWithMessages("c", 2000, nil),
		CreateTestSessionWithMessages("current", 4000, nil),
	)
	store := newTestStore(t, &ScriptedStreamer{}, persister)
	if store.CurrentID() != "current" {
		t.Fatalf("CurrentID() = %q", store.CurrentID())
	}

	if err := store.DeleteSession("current"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	if store.CurrentID() != "b" {
		t.Errorf("CurrentID() = %q, want %q", store.CurrentID(), "b")
	}
	if n := len(store.Sessions()); n != 3 {
		t.Errorf("Sessions() = %d, want 3 (no new session)", n)
	}
}

func TestSessionStore_DeleteLastCreatesOne(t *testing.T) {
	persister := NewMemoryPersister()
	store := newTestStore(t, &ScriptedStreamer{}, persister)
	only := store.CurrentID()

	if err := store.DeleteSession(only); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	sessions := store.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("Sessions() = %d, want 1", len(sessions))
	}
	if sessions[0].ID == only || store.CurrentID() != sessions[0].ID {
		t.Errorf("replacement session not current: %#v", sessions[0])
	}
	if len(sessions[0].Messages) != 0 {
		t.Error("replacement session is not empty")
	}
	if saved := persister.Saved(); len(saved) != 1 || saved[0].ID != sessions[0].ID {
		t.Errorf("saved = %#v, want the replacement session", saved)
	}
}

func TestSessionStore_DeleteLastNeverLeavesNoCurrent(t *testing.T) {
	var store *SessionStore
	var mu sync.Mutex
	var orphaned []string

	store = NewSessionStore(&ScriptedStreamer{}, newTestNormalizer(),
		WithPersister(NewMemoryPersister()),
		WithObserver(func(id string) {
			current := store.CurrentID()
			found := false
			for _, s := range store.Sessions() {
				found = found || s.ID == current
			}
			if current == "" || !found {
				mu.Lock()
				orphaned = append(orphaned, id)
				mu.Unlock()
			}
		}),
	)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := store.DeleteSession(store.CurrentID()); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(orphaned) > 0 {
		t.Errorf("observer saw no current session while notified for %v", orphaned)
	}
}

func TestSessionStore_MessagesUseStoreClock(t *testing.T) {
	at := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	streamer := &ScriptedStreamer{Body: SSE(
		EventToolUse, `{"name":"check_appointment_availability"}`,
		EventToolOutput, slotsOutput,
		EventChunk, "Here you go",
	)}
	store := NewSessionStore(streamer, newTestNormalizer(),
		WithPersister(NewMemoryPersister()),
		WithClock(func() time.Time { return at }),
	)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !store.Submit(context.Background(), "Any slots?") {
		t.Fatal("Submit() rejected")
	}
	messages := store.Messages(store.CurrentID())
	if len(messages) != 4 {
		t.Fatalf("messages = %d, want 4: %v", len(messages), roles(messages))
	}
	for i, m := range messages {
		if m.Timestamp != at.UnixMilli() {
			t.Errorf("message %d (%s) timestamp = %d, want %d", i, m.Role, m.Timestamp, at.UnixMilli())
		}
	}
}

func TestSessionStore_DeleteOtherKeepsCurrent(t *testing.T) {
	store := newTestStore(t, &ScriptedStreamer{}, NewMemoryPersister())
	first := store.CurrentID()
	second := store.CreateSession()

	if err := store.DeleteSession(first); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if store.CurrentID() != second {
		t.Errorf("CurrentID() = %q, want %q", store.CurrentID(), second)
	}
	if err := store.DeleteSession("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("DeleteSession(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_CreateNamesSequentially(t *testing.T) {
	store := newTestStore(t, &ScriptedStreamer{}, NewMemoryPersister())
	store.CreateSession()
	id := store.CreateSession()

	session, err := store.Session(id)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if session.Name != "Chat 3" {
		t.Errorf("Name = %q, want %q", session.Name, "Chat 3")
	}
	if store.CurrentID() != id {
		t.Error("created session is not current")
	}
}

func TestSessionStore_SwitchSession(t *testing.T) {
	persister := NewMemoryPersister(
		CreateTestSessionWithMessages("empty", 1000, nil),
		CreateTestSessionWithMessages("busy", 2000, []Message{{Role: RoleUser, Content: "hi"}}),
		CreateTestSessionWithMessages("current", 5000, nil),
	)
	store := newTestStore(t, &ScriptedStreamer{}, persister)

	if store.SwitchSession("nope") {
		t.Error("SwitchSession() accepted an unknown id")
	}
	if store.CurrentID() != "current" {
		t.Errorf("unknown id changed current to %q", store.CurrentID())
	}

	if !store.SwitchSession("empty") {
		t.Fatal("SwitchSession(empty) failed")
	}
	empty, _ := store.Session("empty")
	if empty.Timestamp != 1000 {
		t.Errorf("empty session timestamp changed to %d", empty.Timestamp)
	}

	store.SwitchSession("busy")
	busy, _ := store.Session("busy")
	if busy.Timestamp <= 2000 {
		t.Errorf("busy session timestamp = %d, want it refreshed", busy.Timestamp)
	}
	if store.CurrentID() != "busy" {
		t.Errorf("CurrentID() = %q, want busy", store.CurrentID())
	}
}

func TestSessionStore_RenameSession(t *testing.T) {
	store := newTestStore(t, &ScriptedStreamer{}, NewMemoryPersister())
	id := store.CurrentID()
	before := store.Current()

	if err := store.RenameSession(id, "Test drive booking"); err != nil {
		t.Fatalf("RenameSession() error = %v", err)
	}
	if got := store.Current().Name; got != "Test drive booking" {
		t.Errorf("Name = %q", got)
	}
	if before.Name != "Chat 1" {
		t.Error("earlier snapshot was modified in place")
	}
	if err := store.RenameSession("missing", "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("RenameSession(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_SearchSessions(t *testing.T) {
	store := newTestStore(t, &ScriptedStreamer{}, NewMemoryPersister())
	id := store.CreateSession()
	_ = store.RenameSession(id, "Weekend Test Drive")

	got := store.SearchSessions("test DRIVE")
	if len(got) != 1 || got[0].ID != id {
		t.Errorf("SearchSessions() = %#v", got)
	}
	if n := len(store.SearchSessions("")); n != 2 {
		t.Errorf("SearchSessions(\"\") = %d, want 2", n)
	}
	if n := len(store.SearchSessions("weather")); n != 0 {
		t.Errorf("SearchSessions(weather) = %d, want 0", n)
	}
}

func TestSessionStore_ConfirmSlot(t *testing.T) {
	streamer := &ScriptedStreamer{Body: SSE(EventToolOutput,
		`{"name":"schedule_appointment","output":"{'fecha': '20/03/2025', 'hora': '9:00 AM'}"}`)}
	store := newTestStore(t, streamer, NewMemoryPersister())

	if !store.ConfirmSlot(context.Background(), "9:00 AM") {
		t.Fatal("ConfirmSlot() rejected")
	}

	want := "I'd like to schedule my test drive for 9:00 AM."
	reqs := streamer.Requests()
	if len(reqs) != 1 || reqs[0].Query != want {
		t.Fatalf("requests = %#v", reqs)
	}
	messages := store.Messages(store.CurrentID())
	if len(messages) != 2 || messages[0].Content != want || messages[1].Role != RoleTool {
		t.Errorf("messages = %#v", messages)
	}
}

func TestSessionStore_PersistsAndNotifies(t *testing.T) {
	persister := NewMemoryPersister()
	var mu sync.Mutex
	var notified []string

	store := NewSessionStore(
		&ScriptedStreamer{Body: SSE(EventChunk, "Hi there")},
		newTestNormalizer(),
		WithPersister(persister),
		WithObserver(func(id string) {
			mu.Lock()
			notified = append(notified, id)
			mu.Unlock()
		}),
	)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	store.Submit(context.Background(), "Hello")

	saved := persister.Saved()
	if len(saved) != 1 {
		t.Fatalf("saved sessions = %d, want 1", len(saved))
	}
	if got := roles(saved[0].Messages); !reflect.DeepEqual(got, []Role{RoleUser, RoleAssistant}) {
		t.Errorf("saved roles = %v", got)
	}

	mu.Lock()
	defer mu.Unlock()
	// create, user message, chunk, end
	if len(notified) < 4 {
		t.Errorf("observer called %d times, want at least 4", len(notified))
	}
	for _, id := range notified {
		if id != store.CurrentID() {
			t.Errorf("observer got %q, want %q", id, store.CurrentID())
		}
	}
}

func TestSessionStore_SaveFailureKeepsWorking(t *testing.T) {
	persister := NewMemoryPersister()
	persister.SaveErr = errors.New("disk full")
	store := newTestStore(t, &ScriptedStreamer{Body: SSE(EventChunk, "ok")}, persister)

	if !store.Submit(context.Background(), "hello") {
		t.Fatal("Submit() rejected")
	}
	if n := len(store.Messages(store.CurrentID())); n != 2 {
		t.Errorf("messages = %d, want 2", n)
	}
}
