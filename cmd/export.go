package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/internal/export"
)

var (
	format    string
	outputDir string
	sessionID string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to file",
	Long: `Export saved conversations to various formats (jsonl, md, yaml, json).

You can export all sessions or a specific session by ID.
Use 'dealerchat sessions list' to see available session IDs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format, internal.NewInterpreter(cfg.Defaults))
		if err != nil {
			return err
		}

		var sessions []*internal.Session
		steps := []internal.ProgressStep{
			{
				Message: "Loading sessions from " + cfg.Storage,
				Fn: func() error {
					loaded, err := loadSavedSessions(cfg.Storage)
					if err != nil {
						return err
					}
					sessions, err = selectSessions(loaded, sessionID)
					return err
				},
			},
			{
				Message: "Writing files to " + outputDir,
				Fn: func() error {
					if err := os.MkdirAll(outputDir, 0755); err != nil {
						return fmt.Errorf("failed to create output directory: %w", err)
					}
					return exportSessions(exporter, format, sessions, outputDir)
				},
			},
		}

		if err := internal.ShowProgressWithSteps(cmd.Context(), steps); err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", len(sessions), outputDir))
		return nil
	},
}

// loadSavedSessions reads the collection without going through a store, so
// exporting never creates a session
func loadSavedSessions(path string) ([]*internal.Session, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &internal.StorageError{Path: path, Op: "open", Err: err}
	}
	db, err := internal.OpenDatabaseReadOnly(path)
	if err != nil {
		return nil, err
	}
	storage := internal.NewStorage(db, path)
	defer storage.Close()

	return storage.LoadSessions()
}

func selectSessions(sessions []*internal.Session, id string) ([]*internal.Session, error) {
	if id == "" {
		return sessions, nil
	}
	for _, s := range sessions {
		if s.ID == id {
			return []*internal.Session{s}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s (use 'dealerchat sessions list' to see available sessions)", internal.ErrSessionNotFound, id)
}

// exportSessions writes one file per session. Every session is attempted;
// the failures are joined into the returned error.
func exportSessions(exporter export.Exporter, format string, sessions []*internal.Session, dir string) error {
	var errs []error
	for _, session := range sessions {
		path := filepath.Join(dir, fmt.Sprintf("session_%s.%s", session.ID, exporter.Extension()))
		if err := exportFile(exporter, session, path); err != nil {
			internal.LogError("Failed to export session %s: %v", session.ID, err)
			errs = append(errs, &internal.ExportError{Format: format, Path: path, Err: err})
		}
	}
	return errors.Join(errs...)
}

func exportFile(exporter export.Exporter, session *internal.Session, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.Export(session, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific session by ID")
}
