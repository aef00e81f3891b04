package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/reader/internal/config"
	"github.com/mrlokans/reader/internal/history"
	"github.com/mrlokans/reader/internal/notify"
)

// PositionCommand prints the stored reading position of a document
type PositionCommand struct {
	DocumentID string
	ServerURL  string

	Out    io.Writer
	Config *config.Config
}

// NewPositionCommand creates a new PositionCommand
func NewPositionCommand() *PositionCommand {
	return &PositionCommand{Out: os.Stdout}
}

// ParseFlags parses command line flags
func (cmd *PositionCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("position", flag.ExitOnError)

	fs.StringVar(&cmd.DocumentID, "id", "", "Document ID")
	fs.StringVar(&cmd.ServerURL, "server", "", "History server base URL (overrides HISTORY_BASE_URL)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s position -id <document> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fetch the reading position stored for a document.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.DocumentID == "" {
		return errors.New("-id is required")
	}
	return nil
}

// Run executes the position command
func (cmd *PositionCommand) Run() error {
	cfg := cmd.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if cmd.ServerURL != "" {
		cfg.History.BaseURL = cmd.ServerURL
	}

	store, err := newStore(cfg, cmd.DocumentID, notify.Discard)
	if err != nil {
		return err
	}
	defer store.Close()

	pos, err := store.Get(context.Background())
	switch {
	case errors.Is(err, history.ErrNoSavedPosition):
		fmt.Fprintf(cmd.Out, "ℹ️  No saved position for %s\n", cmd.DocumentID)
		return nil
	case err != nil:
		return fmt.Errorf("failed to fetch position: %w", err)
	}

	version, _ := store.Version()
	fmt.Fprintf(cmd.Out, "📍 %s: %s (version %d)\n", cmd.DocumentID, pos, version)
	return nil
}
