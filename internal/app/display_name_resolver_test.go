package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/logger"
)

func TestDisplayNameResolver_Uncached(t *testing.T) {
	alice := newUser("alice", false)
	users := newMockUserRepo(alice)
	r := NewDisplayNameResolver(users, logger.NewNop())

	unknown := shared.NewID()
	names, err := r.Resolve(context.Background(), []shared.ID{alice.ID(), unknown})
	require.NoError(t, err)
	assert.Equal(t, map[shared.ID]string{alice.ID(): "alice"}, names)

	names, err = r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Len(t, users.namesCalls, 1)
}

func TestDisplayNameResolver_Cached(t *testing.T) {
	alice := newUser("alice", false)
	bob := newUser("bob", false)
	users := newMockUserRepo(alice, bob)
	cache := newMockNameCache()
	cache.values[alice.ID().String()] = "Alice (cached)"

	r := NewDisplayNameResolver(users, logger.NewNop())
	r.cache = cache

	names, err := r.Resolve(context.Background(), []shared.ID{alice.ID(), bob.ID()})
	require.NoError(t, err)
	assert.Equal(t, "Alice (cached)", names[alice.ID()])
	assert.Equal(t, "bob", names[bob.ID()])

	require.Len(t, users.namesCalls, 1)
	assert.Equal(t, []shared.ID{bob.ID()}, users.namesCalls[0])
	assert.Equal(t, 1, cache.sets)

	// Everything cached now: no database read.
	_, err = r.Resolve(context.Background(), []shared.ID{alice.ID(), bob.ID()})
	require.NoError(t, err)
	assert.Len(t, users.namesCalls, 1)
}

func TestDisplayNameResolver_CacheDown(t *testing.T) {
	alice := newUser("alice", false)
	users := newMockUserRepo(alice)
	cache := newMockNameCache()
	cache.getErr = errBoom

	r := NewDisplayNameResolver(users, logger.NewNop())
	r.cache = cache

	names, err := r.Resolve(context.Background(), []shared.ID{alice.ID()})
	require.NoError(t, err)
	assert.Equal(t, "alice", names[alice.ID()])
}

func TestDisplayNameResolver_DatabaseError(t *testing.T) {
	users := newMockUserRepo()
	users.namesErr = errBoom
	r := NewDisplayNameResolver(users, logger.NewNop())

	_, err := r.Resolve(context.Background(), []shared.ID{shared.NewID()})
	assert.ErrorIs(t, err, errBoom)
}
