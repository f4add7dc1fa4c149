package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/ormlite/internal/cli/config"
	"github.com/leapstack-labs/ormlite/internal/loader"
	"github.com/leapstack-labs/ormlite/internal/testutil"
	"github.com/leapstack-labs/ormlite/pkg/core"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns a plain-output config with the demo model written to
// a temp model file and a file database next to it.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	models := filepath.Join(dir, "models.yaml")
	require.NoError(t, os.WriteFile(models, demoModel, 0600))
	return &config.Config{
		Database:      filepath.Join(dir, "app.db"),
		Models:        models,
		Module:        config.DefaultModule,
		MigrationsDir: filepath.Join(dir, "migrations"),
		OutputFormat:  config.OutputPlain,
	}
}

func runCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	ctx := context.WithValue(context.Background(), config.ConfigKey(), cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

// seedDatabase saves Ashwin with two posts and Kukku with none.
func seedDatabase(t *testing.T, cfg *config.Config) {
	t.Helper()
	ctx := context.Background()
	ns, err := loader.LoadFile(cfg.Models, cfg.Module)
	require.NoError(t, err)
	d, err := openDao(ctx, testutil.NewTestLogger(t), cfg.Database, ns)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()
	require.NoError(t, createTables(ctx, d, ns))

	user, _ := ns.Lookup("User")
	post, _ := ns.Lookup("Post")
	for _, name := range []string{"Ashwin", "Kukku"} {
		require.NoError(t, d.Save(ctx, user, core.NewEntity(user).Set("name", name)))
	}
	for _, title := range []string{"Post 1", "Post 2"} {
		require.NoError(t, d.Save(ctx, post, core.NewEntity(post).Set("title", title).Set("user_id", 1)))
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := runCommand(t, NewSchemaCommand(), testConfig(t))
	require.NoError(t, err)

	users := strings.Index(out, `CREATE TABLE IF NOT EXISTS "Users"`)
	posts := strings.Index(out, `CREATE TABLE IF NOT EXISTS "Posts"`)
	tags := strings.Index(out, `CREATE TABLE IF NOT EXISTS "Tags"`)
	require.True(t, users >= 0 && posts >= 0 && tags >= 0, "all tables printed: %s", out)
	assert.Less(t, users, posts, "referenced tables come first")
	assert.Less(t, posts, tags)
	assert.Contains(t, out, `"user_id" INTEGER REFERENCES "Users"("id")`)
}

func TestSchemaCommand_Apply(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCommand(t, NewSchemaCommand(), cfg, "--apply")
	require.NoError(t, err)
	assert.Equal(t, "Table Users ready\nTable Posts ready\nTable Tags ready\n", out)

	_, err = runCommand(t, NewSchemaCommand(), cfg, "--apply")
	assert.NoError(t, err, "applying twice is a no-op")
}

func TestSchemaCommand_NoModels(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models = ""

	_, err := runCommand(t, NewSchemaCommand(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model file configured")
}

func TestSchemaExportThenMigrate(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCommand(t, NewSchemaCommand(), cfg, "export")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Wrote "))
	assert.Contains(t, out, filepath.Join(cfg.MigrationsDir, "00001_create_users.sql"))

	out, err = runCommand(t, NewMigrateCommand(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "Database at version 3\n", out)

	out, err = runCommand(t, NewMigrateCommand(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "Database at version 3\n", out, "nothing left to apply")
}

func TestSchemaExport_DirFlag(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(t.TempDir(), "out")

	_, err := runCommand(t, NewSchemaCommand(), cfg, "export", "--dir", dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.NoDirExists(t, cfg.MigrationsDir)
}

func TestMigrateCommand_MissingDir(t *testing.T) {
	_, err := runCommand(t, NewMigrateCommand(), testConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations directory does not exist")
}

func TestQueryCommand(t *testing.T) {
	cfg := testConfig(t)
	seedDatabase(t, cfg)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "eq uses declared eager mode",
			args: []string{"User", "--eq", "name=Kukku"},
			want: "id\tname\tposts\n2\tKukku\t0\n(1 rows)\n",
		},
		{
			name: "lazy override",
			args: []string{"User", "--eq", "name=Kukku", "--lazy"},
			want: "id\tname\tposts\n2\tKukku\tlazy\n(1 rows)\n",
		},
		{
			name: "in with eager",
			args: []string{"User", "--in", "name=Ashwin,Kukku", "--eager"},
			want: "id\tname\tposts\n1\tAshwin\t2\n2\tKukku\t0\n(2 rows)\n",
		},
		{
			name: "gt and eq joined with and",
			args: []string{"Post", "--eq", "user_id=1", "--gt", "id=1"},
			want: "id\ttitle\tuser_id\ttagst\n2\tPost 2\t1\t0\n(1 rows)\n",
		},
		{
			name: "or",
			args: []string{"User", "--eq", "name=Ashwin", "--eq", "name=Kukku", "--or", "--lazy"},
			want: "id\tname\tposts\n1\tAshwin\tlazy\n2\tKukku\tlazy\n(2 rows)\n",
		},
		{
			name: "empty in matches nothing",
			args: []string{"User", "--in", "name="},
			want: "id\tname\tposts\n(0 rows)\n",
		},
		{
			name: "projection",
			args: []string{"Post", "--select", "id,title", "--lazy"},
			want: "id\ttitle\ttagst\n1\tPost 1\tlazy\n2\tPost 2\tlazy\n(2 rows)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, NewQueryCommand(), cfg, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestQueryCommand_Errors(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name      string
		args      []string
		errSubstr string
	}{
		{name: "unknown entity", args: []string{"Comment"}, errSubstr: `unknown entity "Comment"`},
		{name: "malformed filter", args: []string{"User", "--eq", "name"}, errSubstr: "expected column=value"},
		{name: "unknown column", args: []string{"User", "--eq", "age=3"}, errSubstr: `unknown column "age"`},
		{name: "bad integer", args: []string{"User", "--gt", "id=abc"}, errSubstr: "is not an integer"},
		{name: "lazy and eager", args: []string{"User", "--lazy", "--eager"}, errSubstr: "lazy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, NewQueryCommand(), cfg, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestDemoCommand(t *testing.T) {
	out, err := runCommand(t, NewDemoCommand(), testConfig(t))
	require.NoError(t, err)

	want := `Added user Ashwin
Added user Kukku
Added post Post 1
Added post Post 2
Get user by id = 1; User: Ashwin
Get user by name = Kukku; User: 2
Get all users and posts
> User: Ashwin
>  Post: Post 1
>  Post: Post 2
> User: Kukku
Get users by name = Ashwin AND Kukku
> User: Ashwin
>  Post: Post 1
>  Post: Post 2
> User: Kukku
Get all users and posts after update
> User: Ashwin
>  Post: Post Edited 1
>  Post: Post 2
> User: Kukku
Get all users and posts after delete
> User: Ashwin
>  Post: Post Edited 1
> User: Kukku
`
	assert.Equal(t, want, out)
}

func TestDemoCommand_LeavesDatabaseUntouched(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCommand(t, NewDemoCommand(), cfg)
	require.NoError(t, err)
	assert.NoFileExists(t, cfg.Database)
}
