package app

import (
	"context"
	"fmt"
	"time"

	"github.com/openctemio/scanledger/internal/infra/redis"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/user"
	"github.com/openctemio/scanledger/pkg/logger"
)

const (
	displayNameCachePrefix = "user_display_name"
	defaultDisplayNameTTL  = 10 * time.Minute
)

// displayNameCache is the subset of redis.StringCache the resolver uses.
type displayNameCache interface {
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	SetMany(ctx context.Context, entries map[string]string) error
}

// DisplayNameResolver maps assignee ids to display names. Names are read
// through a Redis cache when one is configured; the cache is only an
// accelerator and any cache failure falls back to the database.
type DisplayNameResolver struct {
	users  user.Repository
	cache  displayNameCache
	logger *logger.Logger
}

// NewDisplayNameResolver creates a resolver without a cache.
func NewDisplayNameResolver(users user.Repository, log *logger.Logger) *DisplayNameResolver {
	return &DisplayNameResolver{
		users:  users,
		logger: log.With("service", "display_names"),
	}
}

// NewCachedDisplayNameResolver creates a resolver backed by Redis.
func NewCachedDisplayNameResolver(users user.Repository, client *redis.Client, ttl time.Duration, log *logger.Logger) (*DisplayNameResolver, error) {
	if ttl <= 0 {
		ttl = defaultDisplayNameTTL
	}
	cache, err := redis.NewStringCache(client, displayNameCachePrefix, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create display name cache: %w", err)
	}

	r := NewDisplayNameResolver(users, log)
	r.cache = cache
	return r, nil
}

// Resolve returns display names for ids. Ids with no matching user are
// omitted.
func (r *DisplayNameResolver) Resolve(ctx context.Context, ids []shared.ID) (map[shared.ID]string, error) {
	names := make(map[shared.ID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	missing := ids
	if r.cache != nil {
		missing = r.fromCache(ctx, ids, names)
		if len(missing) == 0 {
			return names, nil
		}
	}

	loaded, err := r.users.GetDisplayNames(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("get display names: %w", err)
	}
	fresh := make(map[string]string, len(loaded))
	for id, name := range loaded {
		names[id] = name
		fresh[id.String()] = name
	}
	if r.cache != nil {
		if err := r.cache.SetMany(ctx, fresh); err != nil {
			r.logger.Warn("failed to cache display names", "count", len(fresh), "error", err)
		}
	}
	return names, nil
}

// fromCache fills names with cached entries and returns the ids still
// unresolved.
func (r *DisplayNameResolver) fromCache(ctx context.Context, ids []shared.ID, names map[shared.ID]string) []shared.ID {
	cached, err := r.cache.GetMany(ctx, shared.IDStrings(ids))
	if err != nil {
		r.logger.Warn("display name cache unavailable", "error", err)
		return ids
	}

	missing := make([]shared.ID, 0, len(ids))
	for _, id := range ids {
		if name, ok := cached[id.String()]; ok {
			names[id] = name
			continue
		}
		missing = append(missing, id)
	}
	return missing
}
