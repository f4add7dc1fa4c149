package commands

import (
	"context"
	_ "embed"

	"github.com/leapstack-labs/ormlite/internal/loader"
	"github.com/leapstack-labs/ormlite/pkg/core"
	"github.com/leapstack-labs/ormlite/pkg/dao"
	"github.com/spf13/cobra"
)

//go:embed demo_model.yaml
var demoModel []byte

// NewDemoCommand creates the demo command.
func NewDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the users and posts walkthrough",
		Long: `Run a scripted walkthrough against a private in-memory database using
a built-in model of users, posts and tags: saves, lookups, filtered
queries in lazy and eager mode, an update and a delete.

The configured database and model file are not touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutDao(cmd)
			ns, err := loader.Parse(demoModel, "demo")
			if err != nil {
				return err
			}
			d, err := openDao(cmd.Context(), cc.Logger, dao.MemoryLocation, ns)
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			w := &walkthrough{dao: d, ns: ns, r: cc.Renderer}
			return w.run(cmd.Context())
		},
	}
}

type walkthrough struct {
	dao *dao.Dao
	ns  *core.Namespace
	r   *Renderer
}

func (w *walkthrough) entity(name string) *core.Descriptor {
	d, _ := w.ns.Lookup(name)
	return d
}

func (w *walkthrough) run(ctx context.Context) error {
	user, post := w.entity("User"), w.entity("Post")
	if err := createTables(ctx, w.dao, w.ns); err != nil {
		return err
	}

	ashwin := core.NewEntity(user).Set("name", "Ashwin")
	kukku := core.NewEntity(user).Set("name", "Kukku")
	for _, u := range []*core.Entity{ashwin, kukku} {
		if err := w.dao.Save(ctx, user, u); err != nil {
			return err
		}
		w.r.Printf("Added user %s\n", u.Text("name"))
	}

	for _, title := range []string{"Post 1", "Post 2"} {
		p := core.NewEntity(post).Set("title", title).Set("user_id", ashwin.Int("id"))
		if err := w.dao.Save(ctx, post, p); err != nil {
			return err
		}
		w.r.Printf("Added post %s\n", title)
	}

	first, err := w.dao.GetByID(ctx, user, 1)
	if err != nil {
		return err
	}
	w.r.Printf("Get user by id = 1; User: %s\n", first.Text("name"))

	byName, err := w.dao.QueryBuilder(user).Select("*").Eq("name", "Kukku").Build()
	if err != nil {
		return err
	}
	res, err := w.dao.ExecuteQuery(ctx, byName, dao.LoadLazy)
	if err != nil {
		return err
	}
	if len(res.Entities) > 0 {
		w.r.Printf("Get user by name = Kukku; User: %d\n", res.Entities[0].Int("id"))
	}

	all, err := w.dao.All(ctx, user)
	if err != nil {
		return err
	}
	w.r.Println("Get all users and posts")
	if err := w.printUsers(ctx, all); err != nil {
		return err
	}

	byNames, err := w.dao.QueryBuilder(user).Select("*").In("name", []string{"Ashwin", "Kukku"}).Build()
	if err != nil {
		return err
	}
	res, err = w.dao.ExecuteQuery(ctx, byNames, dao.LoadEager)
	if err != nil {
		return err
	}
	w.r.Println("Get users by name = Ashwin AND Kukku")
	if err := w.printUsers(ctx, res.Entities); err != nil {
		return err
	}

	edit, err := w.dao.UpdateBuilder(post).
		Set(core.Values{"title": "Post Edited 1"}).
		Eq("title", "Post 1").And().Eq("id", 1).
		Build()
	if err != nil {
		return err
	}
	if _, err := w.dao.ExecuteQuery(ctx, edit, dao.LoadLazy); err != nil {
		return err
	}
	if err := w.listAll(ctx, "Get all users and posts after update"); err != nil {
		return err
	}

	remove, err := w.dao.DeleteBuilder(post).Eq("title", "Post 2").Build()
	if err != nil {
		return err
	}
	if _, err := w.dao.ExecuteQuery(ctx, remove, dao.LoadLazy); err != nil {
		return err
	}
	return w.listAll(ctx, "Get all users and posts after delete")
}

func (w *walkthrough) listAll(ctx context.Context, heading string) error {
	users, err := w.dao.All(ctx, w.entity("User"))
	if err != nil {
		return err
	}
	w.r.Println(heading)
	return w.printUsers(ctx, users)
}

func (w *walkthrough) printUsers(ctx context.Context, users []*core.Entity) error {
	for _, u := range users {
		w.r.Printf("> User: %s\n", u.Text("name"))
		posts, err := u.Related(ctx, "posts")
		if err != nil {
			return err
		}
		for _, p := range posts {
			w.r.Printf(">  Post: %s\n", p.Text("title"))
		}
	}
	return nil
}
