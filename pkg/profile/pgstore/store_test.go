package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/profile"
	"github.com/dmitrymomot/flagkit/pkg/profile/pgstore"
)

func newStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("PROFILE_PG_CONN_URL")
	if dsn == "" {
		t.Skip("PROFILE_PG_CONN_URL is not set")
	}
	s, pool, err := pgstore.NewFromConfig(context.Background(), pgstore.Config{
		ConnectionString:  dsn,
		MaxOpenConns:      4,
		MaxIdleConns:      1,
		HealthCheckPeriod: time.Minute,
		MaxConnIdleTime:   time.Minute,
		MaxConnLifetime:   time.Minute,
		RetryAttempts:     1,
		RetryInterval:     time.Millisecond,
		MigrationsTable:   "flagkit_schema_migrations",
		AutoMigrate:       true,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pgstore.Healthcheck(pool)(context.Background()))
	return s
}

func TestStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	user := "user-" + uuid.NewString()

	_, found, err := s.Lookup(ctx, user, "1001")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, user, "1001", "2001"))
	require.NoError(t, s.Save(ctx, user, "1001", "2002"))
	require.NoError(t, s.Save(ctx, user, "1201", "2201"))

	v, found, err := s.Lookup(ctx, user, "1001")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2002", v)

	require.NoError(t, s.Remove(ctx, user, "1001"))
	records, err := s.Profile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1201": "2201"}, records)

	require.NoError(t, s.Remove(ctx, user, ""))
	records, err = s.Profile(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.ErrorIs(t, s.Save(ctx, user, "", "2001"), profile.ErrInvalidKey)
}

func TestConnect_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := pgstore.Connect(context.Background(), pgstore.Config{ConnectionString: "postgres://%zz"})
	require.ErrorIs(t, err, pgstore.ErrInvalidConfig)
}
