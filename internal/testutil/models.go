package testutil

import (
	"testing"

	"github.com/leapstack-labs/ormlite/pkg/core"
)

// Blog is the three-entity model used by tests: users own posts, posts
// own tags. Both relation lists load eagerly by default.
type Blog struct {
	NS   *core.Namespace
	User *core.Descriptor
	Post *core.Descriptor
	Tag  *core.Descriptor
}

// UserDescriptor describes Users(id, name unique default "Hai", posts).
func UserDescriptor() *core.Descriptor {
	return core.NewDescriptor("User", "Users",
		core.IntegerField("id", core.GeneratedID()),
		core.StringField("name", core.NotNull(), core.Default("Hai"), core.Unique()),
		core.ListField("posts", "Post", core.Lazy(false)),
	)
}

// PostDescriptor describes Posts(id, title unique, user_id, tagst).
func PostDescriptor() *core.Descriptor {
	return core.NewDescriptor("Post", "Posts",
		core.IntegerField("id", core.GeneratedID()),
		core.StringField("title", core.Unique()),
		core.ForeignField("user_id", "User"),
		core.ListField("tagst", "Tag", core.Lazy(false)),
	)
}

// TagDescriptor describes Tags(id, name, post_id).
func TagDescriptor() *core.Descriptor {
	return core.NewDescriptor("Tag", "Tags",
		core.IntegerField("id", core.GeneratedID()),
		core.StringField("name"),
		core.ForeignField("post_id", "Post"),
	)
}

// NewBlog registers the blog model in a fresh namespace.
func NewBlog(t testing.TB) *Blog {
	t.Helper()
	b := &Blog{User: UserDescriptor(), Post: PostDescriptor(), Tag: TagDescriptor()}
	ns, err := core.NewNamespace("blog", b.User, b.Post, b.Tag)
	if err != nil {
		t.Fatalf("failed to register blog model: %v", err)
	}
	b.NS = ns
	return b
}
