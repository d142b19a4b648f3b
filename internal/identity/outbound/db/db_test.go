package db

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("authgate"),
		postgres.WithUsername("authgate"),
		postgres.WithPassword("authgate"),
		postgres.WithInitScripts(filepath.Join("..", "..", "..", "..", "migrations", "0001_init.sql")),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewDB(pool, instrument.NewNoop())
}

func TestDB_Users(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	_, err := s.GetUserByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, goerror.ErrNotFound)

	require.NoError(t, s.CreateUser(ctx, entity.NewUser{ID: 1, Username: "alice", Email: "a@x.com", PasswordHash: "h"}))
	err = s.CreateUser(ctx, entity.NewUser{ID: 2, Username: "alice2", Email: "a@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, goerror.ErrConflict)

	user, err := s.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsVerified)

	require.NoError(t, s.MarkUserVerified(ctx, "a@x.com"))
	user, err = s.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	assert.ErrorIs(t, s.MarkUserVerified(ctx, "nobody@x.com"), goerror.ErrNotFound)

	require.NoError(t, s.DeleteUser(ctx, 1))
	_, err = s.GetUserByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, goerror.ErrNotFound)
}

func TestDB_OTP(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("SingleUseAndExpiry", func(t *testing.T) {
		rec := entity.OTPRecord{ID: 10, Email: "a@x.com", CodeHash: "c1", ExpiresAt: now.Add(5 * time.Minute)}
		require.NoError(t, s.IssueOTP(ctx, rec))

		late, err := s.ConsumeOTP(ctx, "a@x.com", "c1", rec.ExpiresAt.Add(time.Second))
		require.NoError(t, err)
		assert.False(t, late)

		wrong, err := s.ConsumeOTP(ctx, "a@x.com", "c2", now)
		require.NoError(t, err)
		assert.False(t, wrong)

		first, err := s.ConsumeOTP(ctx, "a@x.com", "c1", now)
		require.NoError(t, err)
		assert.True(t, first)

		second, err := s.ConsumeOTP(ctx, "a@x.com", "c1", now)
		require.NoError(t, err)
		assert.False(t, second)
	})

	t.Run("ReissueSupersedes", func(t *testing.T) {
		require.NoError(t, s.IssueOTP(ctx, entity.OTPRecord{ID: 20, Email: "b@x.com", CodeHash: "old", ExpiresAt: now.Add(time.Minute)}))
		require.NoError(t, s.IssueOTP(ctx, entity.OTPRecord{ID: 21, Email: "b@x.com", CodeHash: "new", ExpiresAt: now.Add(time.Minute)}))

		old, err := s.ConsumeOTP(ctx, "b@x.com", "old", now)
		require.NoError(t, err)
		assert.False(t, old)

		current, err := s.ConsumeOTP(ctx, "b@x.com", "new", now)
		require.NoError(t, err)
		assert.True(t, current)
	})

	t.Run("ConcurrentConsumeWinsOnce", func(t *testing.T) {
		require.NoError(t, s.IssueOTP(ctx, entity.OTPRecord{ID: 30, Email: "c@x.com", CodeHash: "c", ExpiresAt: now.Add(time.Minute)}))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.ConsumeOTP(ctx, "c@x.com", "c", now)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("ConcurrentIssueKeepsOneActive", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.IssueOTP(ctx, entity.OTPRecord{
					ID: int64(100 + i), Email: "d@x.com", CodeHash: "same", ExpiresAt: now.Add(time.Minute),
				}))
			}()
		}
		wg.Wait()

		var active int
		require.NoError(t, s.conn.QueryRow(ctx,
			`SELECT count(*) FROM otp_records WHERE email = 'd@x.com' AND is_used = FALSE`).Scan(&active))
		assert.Equal(t, 1, active)
	})
}
