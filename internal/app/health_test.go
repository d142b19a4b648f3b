package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
	"github.com/shandysiswandi/authgate/internal/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startDependencies(t *testing.T) (*pgxpool.Pool, *redis.Client) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping health integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("authgate"),
		postgres.WithUsername("authgate"),
		postgres.WithPassword("authgate"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pg)
	require.NoError(t, err)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	rc, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, rc)
	require.NoError(t, err)

	uri, err := rc.ConnectionString(ctx)
	require.NoError(t, err)

	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	return pool, redis.NewClient(opt)
}

func TestApp_health(t *testing.T) {
	pool, rdb := startDependencies(t)
	a := &App{dbConn: pool, cacheConn: rdb}
	req := &router.Request{Request: httptest.NewRequest(http.MethodGet, "/health", nil)}

	t.Run("AllUp", func(t *testing.T) {
		resp, err := a.health(req)

		require.NoError(t, err)
		assert.Equal(t, healthResponse{
			Status: "ok",
			Checks: map[string]string{"database": "up", "redis": "up"},
		}, resp)
	})

	t.Run("RedisDown", func(t *testing.T) {
		require.NoError(t, rdb.Close())

		resp, err := a.health(req)

		assert.Nil(t, resp)
		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeUnavailable, gerr.Code())
	})
}
