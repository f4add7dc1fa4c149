package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Long: `Apply the goose migrations in migrations_dir to the configured database
and print the resulting schema version.

No model file is needed; use "ormlite schema export" to generate the
migrations from one.`,
		Example: `  ormlite migrate --database app.db --migrations-dir migrations`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutDao(cmd)
			dir := cc.Cfg.MigrationsDir
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("migrations directory does not exist: %s", dir)
			}

			d, err := openDao(cmd.Context(), cc.Logger, cc.Cfg.Database, nil)
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			if err := d.Migrate(cmd.Context(), os.DirFS(dir)); err != nil {
				return err
			}
			version, err := d.MigrationVersion(cmd.Context())
			if err != nil {
				return err
			}
			cc.Renderer.Printf("Database at version %d\n", version)
			return nil
		},
	}
}
