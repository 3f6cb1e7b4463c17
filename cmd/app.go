package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/internal/client"
	"github.com/iksnae/dealerchat/internal/view"
)

// app wires the session store to its storage and transport for one command
type app struct {
	interp   *internal.Interpreter
	storage  *internal.Storage
	client   *client.StreamClient
	store    *internal.SessionStore
	renderer *view.Renderer
}

// openApp opens the session database, connects the stream client and
// loads the saved sessions. Callers must Close the app.
func openApp(opts ...internal.StoreOption) (*app, error) {
	db, err := internal.OpenDatabase(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}
	storage := internal.NewStorage(db, cfg.Storage)

	streamClient, err := client.New(cfg.QueryURL(), cfg.DialTimeout)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	interp := internal.NewInterpreter(cfg.Defaults)
	opts = append([]internal.StoreOption{internal.WithPersister(storage)}, opts...)
	store := internal.NewSessionStore(streamClient, internal.NewNormalizer(interp), opts...)
	// a failed load is logged by the store, which starts with a fresh session
	_ = store.Load()

	return &app{
		interp:   interp,
		storage:  storage,
		client:   streamClient,
		store:    store,
		renderer: view.NewRenderer(interp, view.DefaultWidth),
	}, nil
}

// Close releases the session database
func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		internal.LogWarn("Failed to close session storage: %v", err)
	}
}

// resolveSession accepts a full session id or a unique prefix of one
func resolveSession(store *internal.SessionStore, idOrPrefix string) (*internal.Session, error) {
	if s, err := store.Session(idOrPrefix); err == nil {
		return s, nil
	}

	var match *internal.Session
	for _, s := range store.Sessions() {
		if strings.HasPrefix(s.ID, idOrPrefix) {
			if match != nil {
				return nil, fmt.Errorf("session id prefix %q is ambiguous", idOrPrefix)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", internal.ErrSessionNotFound, idOrPrefix)
	}
	return match, nil
}
