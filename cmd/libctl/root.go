package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/libraryhub/library-server/internal/config"
	"github.com/libraryhub/library-server/internal/store"
	"github.com/libraryhub/library-server/internal/store/driver"
)

type rootOptions struct {
	driver  string
	path    string
	asJSON  bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "libctl",
		Short:         "Inspect and seed library stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.driver, "driver", envOr("LIBRARY_STORAGE", config.DriverBadger), "storage driver (badger, sqlite)")
	flags.StringVar(&opts.path, "path", os.Getenv("LIBRARY_DATA_PATH"), "database path")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log storage activity to stderr")

	cmd.AddCommand(
		newInspectCmd(opts),
		newStatsCmd(opts),
		newSeedCmd(opts),
	)
	return cmd
}

// openStore opens and loads the selected store. Read-only stores refuse writes.
func (o *rootOptions) openStore(ctx context.Context, readOnly bool) (*store.Store, error) {
	if o.driver == config.DriverMemory || o.driver == "" {
		return nil, fmt.Errorf("driver %q has nothing to inspect; use badger or sqlite", o.driver)
	}

	logger := slog.New(slog.DiscardHandler)
	if o.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	persister, err := driver.Open(o.driver, o.path, logger, driver.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, err
	}

	st := store.New(persister, logger, nil)
	if err := st.Load(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
