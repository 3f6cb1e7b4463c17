package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/testutil"
)

// execute runs the root command with args. HOME points at a fresh directory
// so no user config is picked up, and every flag starts from its default.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// tempStorage returns a session database path inside a test directory
func tempStorage(t *testing.T) string {
	t.Helper()
	return filepath.Join(testutil.CreateTempDir(t), "sessions.db")
}

// fixtureStorage returns a session database holding testutil.SampleSessionsJSON
func fixtureStorage(t *testing.T) string {
	t.Helper()
	path := tempStorage(t)
	testutil.CreateSQLiteFixture(t, path)
	return path
}

// savedSessions reads the collection back from a database file
func savedSessions(t *testing.T, path string) []*internal.Session {
	t.Helper()
	sessions, err := loadSavedSessions(path)
	if err != nil {
		t.Fatalf("loadSavedSessions() error = %v", err)
	}
	return sessions
}

func findSession(sessions []*internal.Session, name string) *internal.Session {
	for _, s := range sessions {
		if s.Name == name {
			return s
		}
	}
	return nil
}
