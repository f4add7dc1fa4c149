package commands

import (
	"github.com/leapstack-labs/ormlite/pkg/dao"
	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the DDL of the model file",
		Long: `Print the CREATE TABLE statement of every entity in the model file.

Tables are listed so that every foreign key target comes before the
tables referencing it. With --apply the tables are created in the
configured database; existing tables are checked for compatibility.`,
		Example: `  ormlite schema --models models.yaml
  ormlite schema --apply --database app.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apply {
				return runSchemaApply(cmd)
			}
			return runSchema(cmd)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Create the tables in the configured database")
	cmd.AddCommand(newSchemaExportCommand())
	return cmd
}

func runSchema(cmd *cobra.Command) error {
	cc, err := NewCommandContextWithModels(cmd)
	if err != nil {
		return err
	}
	ordered, err := cc.Namespace.Ordered()
	if err != nil {
		return err
	}
	for i, desc := range ordered {
		ddl, err := dao.CreateTableSQL(cc.Namespace, desc)
		if err != nil {
			return err
		}
		if i > 0 {
			cc.Renderer.Println()
		}
		cc.Renderer.Printf("%s;\n", ddl)
	}
	return nil
}

func runSchemaApply(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ordered, err := cc.Namespace.Ordered()
	if err != nil {
		return err
	}
	for _, desc := range ordered {
		if err := cc.Dao.CreateTable(cmd.Context(), desc); err != nil {
			return err
		}
		cc.Renderer.Printf("Table %s ready\n", desc.Table)
	}
	return nil
}

func newSchemaExportCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write goose migrations for the model file",
		Long: `Write one goose SQL migration per entity into the migrations directory.

Files are numbered in foreign key order so that "ormlite migrate"
creates referenced tables first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContextWithModels(cmd)
			if err != nil {
				return err
			}
			out := dir
			if out == "" {
				out = cc.Cfg.MigrationsDir
			}
			paths, err := dao.WriteMigrations(cc.Namespace, out)
			if err != nil {
				return err
			}
			for _, p := range paths {
				cc.Renderer.Printf("Wrote %s\n", p)
			}
			cc.Logger.Debug("migrations exported", "dir", out, "count", len(paths))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (default: migrations_dir)")
	return cmd
}
