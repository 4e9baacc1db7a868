package attrcache_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goforj/attrcache"
	"github.com/goforj/attrcache/changefeed"
)

type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (a *Account) SubjectID() string { return a.ID }

func Example() {
	ctx := context.Background()
	feed := changefeed.New()
	backend := attrcache.NewStoreBackend(attrcache.NewMemoryStore(ctx))

	b := attrcache.NewBuilder("AccountSerializer",
		attrcache.WithBackend(backend),
		attrcache.WithNotifier(feed),
		attrcache.WithTypes(attrcache.TypeOf[Account]()),
	)
	computes := 0
	_ = b.Columns("id", "email")
	_ = b.Computed("domain", func(_ context.Context, s attrcache.Subject) (any, error) {
		computes++
		_, domain, _ := strings.Cut(s.(*Account).Email, "@")
		return domain, nil
	}, attrcache.DependsOn("email"), attrcache.ExpiresIn(time.Hour))
	reg, err := b.Build()
	if err != nil {
		panic(err)
	}

	acct := &Account{ID: "1", Email: "a@x.com"}
	s, _ := attrcache.NewSerializer(reg, acct)
	out, _ := s.ToJSON(ctx)
	fmt.Println(string(out))

	acct.Email = "b@y.org"
	_ = feed.Publish(ctx, acct, "email")
	out, _ = s.ToJSON(ctx)
	fmt.Println(string(out))

	out, _ = s.ToJSON(ctx)
	fmt.Println(string(out), computes)
	// Output:
	// {"id":"1","email":"a@x.com","domain":"x.com"}
	// {"id":"1","email":"b@y.org","domain":"y.org"}
	// {"id":"1","email":"b@y.org","domain":"y.org"} 2
}

func ExampleBuilder_SubjectType() {
	b := attrcache.NewBuilder("Profiles",
		attrcache.WithBackend(attrcache.NewStoreBackend(attrcache.NewNullStore(context.Background()))),
	)
	if _, err := b.Build(); err != nil {
		fmt.Println("derive:", err != nil)
	}
	reg, err := b.SubjectType(attrcache.TypeOf[Account]()).Build()
	fmt.Println(reg.SubjectType().Name(), err)
	// Output:
	// derive: true
	// Account <nil>
}
