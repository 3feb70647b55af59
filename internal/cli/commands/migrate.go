package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/projector/internal/catalog"
	"github.com/conduit-lang/projector/internal/cli/config"
	"github.com/conduit-lang/projector/internal/cli/ui"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(flags *globalFlags) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog tables",
		Long: `Create the catalog tables in the configured database.

With --seed the tables are then replaced with the catalog from the seed
file (the seed setting) or with the bundled demo catalog, and the
configured fragment cache is cleared.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			noColor := !isColorEnabled()

			url := cfg.DatabaseURL()
			if url == "" {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError("database.url is not set", noColor))
				return &reportedError{fmt.Errorf("database.url is not set")}
			}

			db, err := catalog.Open(cfg.Database.Driver, url)
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.DatabaseError(err.Error(), noColor))
				return &reportedError{err}
			}
			defer db.Close()

			sqlStore, err := catalog.NewSQLStore(db, cfg.Database.Driver)
			if err != nil {
				return err
			}
			if err := sqlStore.Migrate(cmd.Context()); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.DatabaseError(err.Error(), noColor))
				return &reportedError{err}
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Catalog tables ready", noColor)

			if !seed {
				return nil
			}

			store, err := loadSeed(cfg.Seed)
			if err != nil {
				return err
			}
			if err := sqlStore.Save(cmd.Context(), store.Snapshot()); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.DatabaseError(err.Error(), noColor))
				return &reportedError{err}
			}

			movies, actors, users := store.Counts()
			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Seeded %d movies, %d actors, %d users", movies, actors, users), noColor)

			cleared, err := clearFragments(cmd.Context(), cfg)
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("cached fragments were not cleared: "+err.Error(), noColor))
				return nil
			}
			if cleared {
				ui.WriteSuccess(cmd.OutOrStdout(), "Cleared cached fragments", noColor)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Replace the stored catalog with the seed")
	return cmd
}

// clearFragments drops every cached fragment, since they render the
// catalog that was just replaced. It reports false when caching is disabled.
func clearFragments(ctx context.Context, cfg *config.Config) (bool, error) {
	fragments, err := openFragments(ctx, cfg)
	if err != nil || fragments == nil {
		return false, err
	}
	defer fragments.Close()

	if err := fragments.Clear(ctx); err != nil {
		return false, fmt.Errorf("failed to clear fragment cache: %w", err)
	}
	return true, nil
}

func loadSeed(path string) (*catalog.Store, error) {
	if path == "" {
		return catalog.LoadDefault()
	}
	return catalog.LoadYAMLFile(path)
}
