package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/ormlite/internal/cli/config"
	"github.com/leapstack-labs/ormlite/internal/loader"
	"github.com/leapstack-labs/ormlite/pkg/core"
	"github.com/leapstack-labs/ormlite/pkg/dao"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Renderer  *Renderer
	Namespace *core.Namespace
	Dao       *dao.Dao
}

// NewCommandContext creates a CommandContext with the configured model
// namespace and a Dao bound to the configured database.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithModels(cmd)
	if err != nil {
		return nil, nil, err
	}

	d, err := openDao(cmd.Context(), cc.Logger, cc.Cfg.Database, cc.Namespace)
	if err != nil {
		return nil, nil, err
	}
	cc.Dao = d

	cleanup := func() {
		_ = d.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithModels creates a CommandContext with the model
// namespace loaded but no database opened.
func NewCommandContextWithModels(cmd *cobra.Command) (*CommandContext, error) {
	cc := NewCommandContextWithoutDao(cmd)
	ns, err := loadNamespace(cc.Cfg)
	if err != nil {
		return nil, err
	}
	cc.Namespace = ns
	return cc, nil
}

// NewCommandContextWithoutDao creates a CommandContext holding only the
// config, logger and renderer.
func NewCommandContextWithoutDao(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.OutputFormat),
	}
}

// Descriptor looks up an entity of the loaded namespace by name.
func (c *CommandContext) Descriptor(name string) (*core.Descriptor, error) {
	d, ok := c.Namespace.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q in module %s", name, c.Namespace.Name())
	}
	return d, nil
}

// EnsureTables creates every table of the namespace that does not exist yet.
func (c *CommandContext) EnsureTables(ctx context.Context) error {
	return createTables(ctx, c.Dao, c.Namespace)
}

func loadNamespace(cfg *config.Config) (*core.Namespace, error) {
	if err := cfg.ValidateModels(); err != nil {
		return nil, err
	}
	return loader.LoadFile(cfg.Models, cfg.Module)
}

// openDao returns a Dao with location opened and ns set as its module.
func openDao(ctx context.Context, logger *slog.Logger, location string, ns *core.Namespace) (*dao.Dao, error) {
	d := dao.New(logger)
	if err := d.SetDatabase(ctx, location); err != nil {
		return nil, err
	}
	if ns == nil {
		return d, nil
	}
	if err := d.SetModule(ns); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func createTables(ctx context.Context, d *dao.Dao, ns *core.Namespace) error {
	ordered, err := ns.Ordered()
	if err != nil {
		return err
	}
	for _, desc := range ordered {
		if err := d.CreateTable(ctx, desc); err != nil {
			return err
		}
	}
	return nil
}
