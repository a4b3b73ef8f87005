package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeStore_Claim_NewKey(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewDedupeStore(client)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "wd:tx-1", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "fresh key should be claimable")
}

func TestDedupeStore_Claim_SecondClaimRejected(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewDedupeStore(client)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "wd:tx-2", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "wd:tx-2", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held key must not be claimable twice")
}

func TestDedupeStore_Release(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewDedupeStore(client)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "wd:tx-3", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "wd:tx-3"))

	ok, err = store.Claim(ctx, "wd:tx-3", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released key should be claimable again")
}

func TestDedupeStore_Claim_Expiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewDedupeStore(client)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "wd:tx-4", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	s.FastForward(2 * time.Second)

	ok, err = store.Claim(ctx, "wd:tx-4", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired key should be claimable")
}
