package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/ormlite/pkg/dao"
	"github.com/leapstack-labs/ormlite/pkg/query"
	"github.com/spf13/cobra"
)

// queryOptions holds the filter flags of the query command.
type queryOptions struct {
	eq      []string
	gt      []string
	in      []string
	or      bool
	columns []string
	lazy    bool
	eager   bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <entity>",
		Short: "Select entities with optional filters",
		Long: `Select entities of the model file from the configured database.

Filters are joined with AND, or with OR when --or is given. Relation
lists follow their declared load mode unless --lazy or --eager is set;
their column shows the number of loaded items, or "lazy" when deferred.
Missing tables are created first.`,
		Example: `  ormlite query User --eq name=Kukku
  ormlite query User --in name=Ashwin,Kukku --eager
  ormlite query Post --gt id=1 --select id,title`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.eq, "eq", nil, "Equality filter column=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.gt, "gt", nil, "Greater-than filter column=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.in, "in", nil, "Membership filter column=v1,v2 (repeatable)")
	cmd.Flags().BoolVar(&opts.or, "or", false, "Join filters with OR instead of AND")
	cmd.Flags().StringSliceVar(&opts.columns, "select", nil, "Columns to project (default: all)")
	cmd.Flags().BoolVar(&opts.lazy, "lazy", false, "Defer every relation list")
	cmd.Flags().BoolVar(&opts.eager, "eager", false, "Load every relation list immediately")
	cmd.MarkFlagsMutuallyExclusive("lazy", "eager")
	return cmd
}

func runQuery(cmd *cobra.Command, entity string, opts queryOptions) error {
	ctx := cmd.Context()
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	desc, err := cc.Descriptor(entity)
	if err != nil {
		return err
	}
	if err := cc.EnsureTables(ctx); err != nil {
		return err
	}

	q := cc.Dao.QueryBuilder(desc).Select(opts.columns...)
	if err := applyFilters(q, opts); err != nil {
		return err
	}
	stmt, err := q.Build()
	if err != nil {
		return err
	}
	cc.Logger.Debug("query built", "sql", stmt.SQL(), "mode", loadMode(opts).String())

	res, err := cc.Dao.ExecuteQuery(ctx, stmt, loadMode(opts))
	if err != nil {
		return err
	}
	return cc.Renderer.Entities(ctx, desc, stmt.Columns(), res.Entities)
}

// applyFilters pushes the flag filters in eq, gt, in order, each joined to
// the previous one.
func applyFilters(q *query.Query, opts queryOptions) error {
	n := 0
	join := func() {
		if n > 0 {
			if opts.or {
				q.Or()
			} else {
				q.And()
			}
		}
		n++
	}

	for _, raw := range opts.eq {
		col, val, err := splitFilter("eq", raw)
		if err != nil {
			return err
		}
		join()
		q.Eq(col, val)
	}
	for _, raw := range opts.gt {
		col, val, err := splitFilter("gt", raw)
		if err != nil {
			return err
		}
		join()
		q.Gt(col, val)
	}
	for _, raw := range opts.in {
		col, val, err := splitFilter("in", raw)
		if err != nil {
			return err
		}
		set := []string{}
		if val != "" {
			set = strings.Split(val, ",")
		}
		join()
		q.In(col, set)
	}
	return nil
}

func splitFilter(flag, raw string) (string, string, error) {
	col, val, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(col) == "" {
		return "", "", fmt.Errorf("invalid --%s filter %q, expected column=value", flag, raw)
	}
	return strings.TrimSpace(col), val, nil
}

func loadMode(opts queryOptions) dao.LoadMode {
	switch {
	case opts.lazy:
		return dao.LoadLazy
	case opts.eager:
		return dao.LoadEager
	default:
		return dao.LoadDefault
	}
}
