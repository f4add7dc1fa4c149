package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blogDescriptors() (user, post, tag *Descriptor) {
	user = NewDescriptor("User", "Users",
		IntegerField("id", GeneratedID()),
		StringField("name", NotNull(), Default("Hai"), Unique()),
		ListField("posts", "Post", Lazy(false)),
	)
	post = NewDescriptor("Post", "Posts",
		IntegerField("id", GeneratedID()),
		StringField("title", Unique()),
		ForeignField("user_id", "User"),
		ListField("tagst", "Tag", Lazy(false)),
	)
	tag = NewDescriptor("Tag", "Tags",
		IntegerField("id", GeneratedID()),
		StringField("name"),
		ForeignField("post_id", "Post"),
	)
	return user, post, tag
}

func TestNewDescriptor_DefaultsTableToName(t *testing.T) {
	d := NewDescriptor("Thing", "")
	assert.Equal(t, "Thing", d.Table)
}

func TestDescriptor_Accessors(t *testing.T) {
	user, _, _ := blogDescriptors()

	id, ok := user.Identity()
	require.True(t, ok)
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, []string{"id", "name"}, user.Columns())
	require.Len(t, user.Relations(), 1)
	assert.Equal(t, "posts", user.Relations()[0].Name)

	_, ok = user.ScalarField("posts")
	assert.False(t, ok)
	_, ok = user.Field("posts")
	assert.True(t, ok)
}

func TestNamespace_Register(t *testing.T) {
	tests := []struct {
		name    string
		descs   func() []*Descriptor
		field   string
		wantErr bool
	}{
		{
			name: "mutually referencing batch",
			descs: func() []*Descriptor {
				u, p, tg := blogDescriptors()
				return []*Descriptor{u, p, tg}
			},
		},
		{
			name: "duplicate field",
			descs: func() []*Descriptor {
				return []*Descriptor{NewDescriptor("A", "", IntegerField("x"), StringField("x"))}
			},
			field:   "x",
			wantErr: true,
		},
		{
			name: "two generated ids",
			descs: func() []*Descriptor {
				return []*Descriptor{NewDescriptor("A", "", IntegerField("a", GeneratedID()), IntegerField("b", GeneratedID()))}
			},
			wantErr: true,
		},
		{
			name: "generated id on a string",
			descs: func() []*Descriptor {
				return []*Descriptor{NewDescriptor("A", "", StringField("id", GeneratedID()))}
			},
			field:   "id",
			wantErr: true,
		},
		{
			name: "lazy on a scalar",
			descs: func() []*Descriptor {
				return []*Descriptor{NewDescriptor("A", "", StringField("s", Lazy(true)))}
			},
			field:   "s",
			wantErr: true,
		},
		{
			name: "unknown foreign target",
			descs: func() []*Descriptor {
				return []*Descriptor{NewDescriptor("A", "", ForeignField("b_id", "B"))}
			},
			field:   "b_id",
			wantErr: true,
		},
		{
			name: "foreign target without identity",
			descs: func() []*Descriptor {
				return []*Descriptor{
					NewDescriptor("B", "", StringField("name")),
					NewDescriptor("A", "", ForeignField("b_id", "B")),
				}
			},
			field:   "b_id",
			wantErr: true,
		},
		{
			name: "list without back reference",
			descs: func() []*Descriptor {
				return []*Descriptor{
					NewDescriptor("A", "", IntegerField("id", GeneratedID()), ListField("bs", "B")),
					NewDescriptor("B", "", IntegerField("id", GeneratedID())),
				}
			},
			field:   "bs",
			wantErr: true,
		},
		{
			name: "list with two back references",
			descs: func() []*Descriptor {
				return []*Descriptor{
					NewDescriptor("A", "", IntegerField("id", GeneratedID()), ListField("bs", "B")),
					NewDescriptor("B", "", IntegerField("id", GeneratedID()), ForeignField("a1", "A"), ForeignField("a2", "A")),
				}
			},
			field:   "bs",
			wantErr: true,
		},
		{
			name: "default not coercible",
			descs: func() []*Descriptor {
				return []*Descriptor{NewDescriptor("A", "", IntegerField("n", Default("many")))}
			},
			field:   "n",
			wantErr: true,
		},
		{
			name: "shared table",
			descs: func() []*Descriptor {
				return []*Descriptor{NewDescriptor("A", "T"), NewDescriptor("B", "T")}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, err := NewNamespace("test", tt.descs()...)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.NotNil(t, ns)
				return
			}
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.field, schemaErr.Field)
		})
	}
}

func TestNamespace_RegisterIsAllOrNothing(t *testing.T) {
	ns, err := NewNamespace("test")
	require.NoError(t, err)

	good := NewDescriptor("Good", "", IntegerField("id", GeneratedID()))
	bad := NewDescriptor("Bad", "", ForeignField("x", "Missing"))
	require.Error(t, ns.Register(good, bad))

	_, ok := ns.Lookup("Good")
	assert.False(t, ok)
	assert.Empty(t, ns.Descriptors())
}

func TestNamespace_ReRegister(t *testing.T) {
	u, p, tg := blogDescriptors()
	ns, err := NewNamespace("blog", u, p, tg)
	require.NoError(t, err)

	again, _, _ := blogDescriptors()
	assert.NoError(t, ns.Register(again), "an identical descriptor is a no-op")
	assert.Len(t, ns.Descriptors(), 3)

	changed := NewDescriptor("User", "Users", IntegerField("id", GeneratedID()))
	var schemaErr *SchemaError
	assert.ErrorAs(t, ns.Register(changed), &schemaErr)
}

func TestNamespace_Resolve(t *testing.T) {
	u, p, tg := blogDescriptors()
	ns, err := NewNamespace("blog", u, p, tg)
	require.NoError(t, err)

	copyOfUser, _, _ := blogDescriptors()
	got, err := ns.Resolve(copyOfUser)
	require.NoError(t, err)
	assert.Same(t, u, got)

	_, err = ns.Resolve(NewDescriptor("Ghost", ""))
	assert.Error(t, err)
	_, err = ns.Resolve(nil)
	assert.Error(t, err)
}

func TestNamespace_Join(t *testing.T) {
	u, p, tg := blogDescriptors()
	ns, err := NewNamespace("blog", u, p, tg)
	require.NoError(t, err)

	posts, _ := u.Field("posts")
	target, fk, err := ns.Join(u, posts)
	require.NoError(t, err)
	assert.Same(t, p, target)
	assert.Equal(t, "user_id", fk.Name)

	name, _ := u.Field("name")
	_, _, err = ns.Join(u, name)
	assert.Error(t, err)
}

func TestNamespace_Ordered(t *testing.T) {
	u, p, tg := blogDescriptors()
	ns, err := NewNamespace("blog", tg, p, u)
	require.NoError(t, err)

	ordered, err := ns.Ordered()
	require.NoError(t, err)
	var names []string
	for _, d := range ordered {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"User", "Post", "Tag"}, names)
}

func TestNamespace_OrderedCycle(t *testing.T) {
	a := NewDescriptor("A", "", IntegerField("id", GeneratedID()), ForeignField("b_id", "B"))
	b := NewDescriptor("B", "", IntegerField("id", GeneratedID()), ForeignField("a_id", "A"))
	ns, err := NewNamespace("cycle", a, b)
	require.NoError(t, err)

	_, err = ns.Ordered()
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}
