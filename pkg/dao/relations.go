package dao

import (
	"context"
	"log/slog"
	"maps"

	"github.com/leapstack-labs/ormlite/pkg/core"
	"github.com/leapstack-labs/ormlite/pkg/query"
)

// LoadMode selects how relation lists are loaded by a select.
type LoadMode int

// Load modes. LoadDefault follows each field's LazyLoad flag; the others
// override it for the top-level entities only.
const (
	LoadDefault LoadMode = iota
	LoadLazy
	LoadEager
)

func (m LoadMode) String() string {
	switch m {
	case LoadLazy:
		return "lazy"
	case LoadEager:
		return "eager"
	}
	return "default"
}

// RelationLoader attaches relation cells to hydrated entities. For a list
// field on D targeting T it fetches the T rows whose foreign key equals the
// owner's id: right away when eager, on first access when lazy. Entities
// loaded through a relation get their own relations per field defaults.
// An eager field whose target is already being loaded eagerly higher up
// falls back to lazy, so cyclic models terminate.
type RelationLoader struct {
	dao *Dao
}

// Attach installs a relation cell for every list field of owner on each of
// entities. Entities without an identity value get no cells.
func (l *RelationLoader) Attach(ctx context.Context, owner *core.Descriptor, entities []*core.Entity, mode LoadMode) error {
	return l.attach(ctx, owner, entities, mode, map[string]bool{owner.Name: true})
}

func (l *RelationLoader) attach(ctx context.Context, owner *core.Descriptor, entities []*core.Entity, mode LoadMode, path map[string]bool) error {
	fields := owner.Relations()
	if len(fields) == 0 || len(entities) == 0 {
		return nil
	}

	for _, f := range fields {
		target, fk, err := l.dao.ns.Join(owner, f)
		if err != nil {
			return err
		}

		lazy := f.LazyLoad
		switch mode {
		case LoadLazy:
			lazy = true
		case LoadEager:
			lazy = false
		}
		if !lazy && path[target.Name] {
			l.dao.logger.Debug("eager cycle, loading lazily",
				slog.String("entity", owner.Name), slog.String("field", f.Name))
			lazy = true
		}

		for _, e := range entities {
			id, ok := e.ID()
			if !ok {
				continue
			}
			stmt, err := l.dao.QueryBuilder(target).Eq(fk.Name, id).Build()
			if err != nil {
				return err
			}

			if lazy {
				e.Attach(f.Name, core.Deferred(func(ctx context.Context) ([]*core.Entity, error) {
					return l.fetch(ctx, target, stmt, map[string]bool{target.Name: true})
				}))
				continue
			}

			next := maps.Clone(path)
			next[target.Name] = true
			items, err := l.fetch(ctx, target, stmt, next)
			if err != nil {
				return err
			}
			e.Attach(f.Name, core.Resolved(items))
		}
	}
	return nil
}

func (l *RelationLoader) fetch(ctx context.Context, target *core.Descriptor, stmt *query.Statement, path map[string]bool) ([]*core.Entity, error) {
	if err := l.dao.current("load relation", stmt); err != nil {
		return nil, err
	}
	l.dao.logger.Debug("loading relation", slog.String("entity", target.Name))
	items, err := l.dao.selectEntities(ctx, target, stmt)
	if err != nil {
		return nil, err
	}
	if err := l.attach(ctx, target, items, LoadDefault, path); err != nil {
		return nil, err
	}
	return items, nil
}
