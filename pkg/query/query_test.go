package query

import (
	"testing"

	"github.com/leapstack-labs/ormlite/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posts() *core.Descriptor {
	return core.NewDescriptor("Post", "Posts",
		core.IntegerField("id", core.GeneratedID()),
		core.StringField("title"),
		core.IntegerField("a"),
		core.IntegerField("b"),
		core.IntegerField("c"),
		core.ForeignField("user_id", "User"),
		core.ListField("tags", "Tag"),
	)
}

func users() *core.Descriptor {
	return core.NewDescriptor("User", "Users",
		core.IntegerField("id", core.GeneratedID()),
		core.StringField("name"),
	)
}

func TestQuery_Build(t *testing.T) {
	tests := []struct {
		name     string
		build    func(q *Query) *Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "all columns",
			build:   func(q *Query) *Query { return q },
			wantSQL: `SELECT "id", "title", "a", "b", "c", "user_id" FROM "Posts" ORDER BY "id"`,
		},
		{
			name:     "projection",
			build:    func(q *Query) *Query { return q.Select("title", "id", "title").Eq("id", 1) },
			wantSQL:  `SELECT "title", "id" FROM "Posts" WHERE "id" = ? ORDER BY "id"`,
			wantArgs: []any{int64(1)},
		},
		{
			name:     "left to right",
			build:    func(q *Query) *Query { return q.Gt("a", 1).And().Eq("b", 2).Or().Eq("c", 3) },
			wantSQL:  `SELECT "id", "title", "a", "b", "c", "user_id" FROM "Posts" WHERE (("a" > ? AND "b" = ?) OR "c" = ?) ORDER BY "id"`,
			wantArgs: []any{int64(1), int64(2), int64(3)},
		},
		{
			name:     "combinator after two operands",
			build:    func(q *Query) *Query { return q.Eq("a", 1).Eq("b", 2).Or() },
			wantSQL:  `SELECT "id", "title", "a", "b", "c", "user_id" FROM "Posts" WHERE ("a" = ? OR "b" = ?) ORDER BY "id"`,
			wantArgs: []any{int64(1), int64(2)},
		},
		{
			name:     "where follows descriptor order",
			build:    func(q *Query) *Query { return q.Where(core.Values{"c": 3, "a": 1}) },
			wantSQL:  `SELECT "id", "title", "a", "b", "c", "user_id" FROM "Posts" WHERE ("a" = ? AND "c" = ?) ORDER BY "id"`,
			wantArgs: []any{int64(1), int64(3)},
		},
		{
			name:     "where joins an existing predicate",
			build:    func(q *Query) *Query { return q.Gt("b", 0).Where(core.Values{"a": 1}) },
			wantSQL:  `SELECT "id", "title", "a", "b", "c", "user_id" FROM "Posts" WHERE ("b" > ? AND "a" = ?) ORDER BY "id"`,
			wantArgs: []any{int64(0), int64(1)},
		},
		{
			name:    "eq nil",
			build:   func(q *Query) *Query { return q.Select("id").Eq("title", nil) },
			wantSQL: `SELECT "id" FROM "Posts" WHERE "title" IS NULL ORDER BY "id"`,
		},
		{
			name:     "in removes duplicates",
			build:    func(q *Query) *Query { return q.Select("id").In("a", []int{1, 2, 1, 2}) },
			wantSQL:  `SELECT "id" FROM "Posts" WHERE "a" IN (?, ?) ORDER BY "id"`,
			wantArgs: []any{int64(1), int64(2)},
		},
		{
			name:    "in empty set",
			build:   func(q *Query) *Query { return q.Select("id").In("a", []any{}) },
			wantSQL: `SELECT "id" FROM "Posts" WHERE 0 = 1 ORDER BY "id"`,
		},
		{
			name:     "in sub-query",
			build:    func(q *Query) *Query { return q.Select("id").In("user_id", NewQuery(users()).Select("id").Eq("name", "A")) },
			wantSQL:  `SELECT "id" FROM "Posts" WHERE "user_id" IN (SELECT "id" FROM "Users" WHERE "name" = ?) ORDER BY "id"`,
			wantArgs: []any{"A"},
		},
		{
			name:     "coerces to column kind",
			build:    func(q *Query) *Query { return q.Select("id").Eq("id", "7").And().Eq("title", 7) },
			wantSQL:  `SELECT "id" FROM "Posts" WHERE ("id" = ? AND "title" = ?) ORDER BY "id"`,
			wantArgs: []any{int64(7), "7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.build(NewQuery(posts())).Build()
			require.NoError(t, err)
			assert.Equal(t, KindSelect, stmt.Kind())
			assert.Equal(t, tt.wantSQL, stmt.SQL())
			if tt.wantArgs == nil {
				assert.Empty(t, stmt.Args())
			} else {
				assert.Equal(t, tt.wantArgs, stmt.Args())
			}
		})
	}
}

func TestQuery_BuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		build  func(q *Query) *Query
		reason string
	}{
		{name: "unknown projection", build: func(q *Query) *Query { return q.Select("nope") }, reason: "unknown column"},
		{name: "relation is not a column", build: func(q *Query) *Query { return q.Eq("tags", 1) }, reason: "unknown column"},
		{name: "combinator without operands", build: func(q *Query) *Query { return q.And().Eq("a", 1) }, reason: "needs two operands"},
		{name: "dangling combinator", build: func(q *Query) *Query { return q.Eq("a", 1).Or() }, reason: "needs two operands"},
		{name: "two combinators in a row", build: func(q *Query) *Query { return q.Eq("a", 1).And().Or().Eq("b", 2) }, reason: "without an operand"},
		{name: "uncombined leaves", build: func(q *Query) *Query { return q.Eq("a", 1).Eq("b", 2) }, reason: "not joined"},
		{name: "bad value", build: func(q *Query) *Query { return q.Eq("a", "x") }, reason: "not an integer"},
		{name: "gt nil", build: func(q *Query) *Query { return q.Gt("a", nil) }, reason: "NULL"},
		{name: "in scalar", build: func(q *Query) *Query { return q.In("a", 3) }, reason: "expects a slice"},
		{
			name:   "sub-query with two columns",
			build:  func(q *Query) *Query { return q.In("user_id", NewQuery(users())) },
			reason: "exactly one column",
		},
		{
			name:   "broken sub-query",
			build:  func(q *Query) *Query { return q.In("user_id", NewQuery(users()).Select("id").Eq("missing", 1)) },
			reason: "unknown column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.build(NewQuery(posts())).Build()
			assert.Nil(t, stmt)
			var builderErr *core.BuilderError
			require.ErrorAs(t, err, &builderErr)
			assert.Contains(t, builderErr.Reason, tt.reason)
		})
	}
}

func TestQuery_BuildIsRepeatable(t *testing.T) {
	q := NewQuery(posts()).Select("id").Gt("a", 1)
	first, err := q.Build()
	require.NoError(t, err)
	second, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t, first.SQL(), second.SQL())
	assert.Equal(t, first.Args(), second.Args())
}

func TestStatement_Accessors(t *testing.T) {
	d := posts()
	stmt, err := NewQuery(d, WithGeneration(4)).Select("id", "title").Build()
	require.NoError(t, err)

	assert.Same(t, d, stmt.Descriptor())
	assert.Equal(t, uint64(4), stmt.Generation())
	assert.Equal(t, []string{"id", "title"}, stmt.Columns())

	args := stmt.Args()
	args = append(args, "mutated")
	assert.Empty(t, stmt.Args())
	assert.Len(t, args, 1)
}

func TestUpdate_Build(t *testing.T) {
	stmt, err := NewUpdate(posts()).
		Set(core.Values{"title": "X", "a": "5"}).
		Eq("id", "1").
		Build()
	require.NoError(t, err)

	assert.Equal(t, KindUpdate, stmt.Kind())
	assert.Equal(t, `UPDATE "Posts" SET "title" = ?, "a" = ? WHERE "id" = ?`, stmt.SQL())
	assert.Equal(t, []any{"X", int64(5), int64(1)}, stmt.Args())
}

func TestUpdate_BuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		build  func() *Update
		reason string
	}{
		{name: "no assignments", build: func() *Update { return NewUpdate(posts()).Eq("id", 1) }, reason: "no assignments"},
		{name: "unknown column", build: func() *Update { return NewUpdate(posts()).Set(core.Values{"nope": 1}) }, reason: "unknown column"},
		{name: "generated id", build: func() *Update { return NewUpdate(posts()).Set(core.Values{"id": 2}) }, reason: "generated id"},
		{name: "bad value", build: func() *Update { return NewUpdate(posts()).Set(core.Values{"a": "x"}) }, reason: "not an integer"},
		{name: "bad predicate", build: func() *Update { return NewUpdate(posts()).Set(core.Values{"a": 1}).Or() }, reason: "needs two operands"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			var builderErr *core.BuilderError
			require.ErrorAs(t, err, &builderErr)
			assert.Contains(t, builderErr.Reason, tt.reason)
		})
	}
}

func TestDelete_Build(t *testing.T) {
	tests := []struct {
		name     string
		build    func(x *Delete) *Delete
		wantSQL  string
		wantArgs []any
	}{
		{name: "everything", build: func(x *Delete) *Delete { return x }, wantSQL: `DELETE FROM "Posts"`},
		{
			name:     "filtered",
			build:    func(x *Delete) *Delete { return x.In("id", []int64{3, 4}).Or().Gt("a", 10) },
			wantSQL:  `DELETE FROM "Posts" WHERE ("id" IN (?, ?) OR "a" > ?)`,
			wantArgs: []any{int64(3), int64(4), int64(10)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tt.build(NewDelete(posts())).Build()
			require.NoError(t, err)
			assert.Equal(t, KindDelete, stmt.Kind())
			assert.Equal(t, tt.wantSQL, stmt.SQL())
			if tt.wantArgs == nil {
				assert.Empty(t, stmt.Args())
			} else {
				assert.Equal(t, tt.wantArgs, stmt.Args())
			}
		})
	}
}
