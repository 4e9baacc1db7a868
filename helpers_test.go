package attrcache_test

import (
	"context"
	"testing"

	"github.com/goforj/attrcache"
	"github.com/goforj/attrcache/cachefake"
	"github.com/goforj/attrcache/changefeed"
	"github.com/stretchr/testify/require"
)

type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string
	Active bool `json:"active"`
}

func (u *User) SubjectID() string { return u.ID }

type Order struct {
	ID string
}

func (o *Order) SubjectID() string { return o.ID }

type env struct {
	backend *cachefake.Fake
	feed    *changefeed.Feed
	builder *attrcache.Builder
}

func newEnv(t *testing.T, opts ...attrcache.Option) *env {
	t.Helper()
	e := &env{backend: cachefake.New(), feed: changefeed.New()}
	all := append([]attrcache.Option{
		attrcache.WithBackend(e.backend),
		attrcache.WithNotifier(e.feed),
		attrcache.WithTypes(attrcache.TypeOf[User](), attrcache.TypeOf[Order]()),
	}, opts...)
	e.builder = attrcache.NewBuilder("UserSerializer", all...)
	return e
}

func (e *env) build(t *testing.T) *attrcache.Registry {
	t.Helper()
	reg, err := e.builder.Build()
	require.NoError(t, err)
	return reg
}

func toMap(t *testing.T, reg *attrcache.Registry, subject attrcache.Subject) *attrcache.Attributes {
	t.Helper()
	s, err := attrcache.NewSerializer(reg, subject)
	require.NoError(t, err)
	attrs, err := s.ToMap(context.Background())
	require.NoError(t, err)
	return attrs
}

func get(t *testing.T, attrs *attrcache.Attributes, name string) any {
	t.Helper()
	v, ok := attrs.Get(name)
	require.True(t, ok, "attribute %q missing", name)
	return v
}

func userKey(id, attribute string) string {
	return attrcache.NewDefaultKeyer("").Key("User", id, attribute)
}

type counter struct {
	calls int
	value func(*User) any
}

func (c *counter) compute(_ context.Context, s attrcache.Subject) (any, error) {
	c.calls++
	if c.value == nil {
		return c.calls, nil
	}
	return c.value(s.(*User)), nil
}
