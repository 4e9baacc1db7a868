//go:build integration

package postgrescache

import (
	"context"
	"testing"
	"time"

	"github.com/goforj/attrcache/cachecore"
	"github.com/goforj/attrcache/cachetest"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestStoreContract_IntegrationPostgres(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("attrcache"),
		tcpostgres.WithUsername("attrcache"),
		tcpostgres.WithPassword("attrcache"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	store, err := New(Config{
		BaseConfig: cachecore.BaseConfig{Prefix: "itest"},
		DSN:        dsn,
		Table:      "attribute_cache",
	})
	if err != nil {
		t.Fatalf("create postgres store: %v", err)
	}

	cachetest.RunStoreContract(t, store, cachetest.Options{
		CaseName: t.Name(),
		TTL:      200 * time.Millisecond,
		TTLWait:  time.Second,
	})
}
