package mongostore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/profile"
	"github.com/dmitrymomot/flagkit/pkg/profile/mongostore"
)

func TestStore(t *testing.T) {
	t.Parallel()
	url := os.Getenv("PROFILE_MONGODB_URL")
	if url == "" {
		t.Skip("PROFILE_MONGODB_URL is not set")
	}
	ctx := context.Background()

	s, client, err := mongostore.NewFromConfig(ctx, mongostore.Config{
		ConnectionURL:  url,
		Database:       "flagkit_test",
		Collection:     "profiles_" + uuid.NewString(),
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    4,
		RetryAttempts:  1,
		RetryInterval:  time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, mongostore.Healthcheck(client)(ctx))

	_, found, err := s.Lookup(ctx, "user_1", "1001")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, "user_1", "1001", "2002"))
	require.NoError(t, s.Save(ctx, "user_1", "1201", "2201"))

	v, found, err := s.Lookup(ctx, "user_1", "1001")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2002", v)

	_, found, err = s.Lookup(ctx, "user_1", "1301")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Remove(ctx, "user_1", "1001"))
	records, err := s.Profile(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1201": "2201"}, records)

	require.NoError(t, s.Remove(ctx, "user_1", ""))
	records, err = s.Profile(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, records)

	require.ErrorIs(t, s.Save(ctx, "user_1", "", "2001"), profile.ErrInvalidKey)
}
