// Package roles resolves role keys to permission sets using the catalog
// served by the back-office API. Lookups fail closed: an unknown role, an
// empty cache or a store error all yield an empty permission set.
package roles

import (
	"context"
	"log/slog"

	"finadmin.org/internal/backoffice"
	"finadmin.org/internal/obs"
)

// Catalog is the full set of role definitions.
type Catalog []backoffice.RoleEntry

// Permissions returns the permission list of the role with the given key,
// or nil when the role is absent.
func (c Catalog) Permissions(roleKey string) []string {
	for _, entry := range c {
		if entry.Key == roleKey {
			return entry.Permissions
		}
	}
	return nil
}

// CatalogStore is the injectable cache behind the resolver. Implementations
// must treat a missing catalog as (nil, false, nil), not an error.
type CatalogStore interface {
	Get(ctx context.Context) (Catalog, bool, error)
	Set(ctx context.Context, c Catalog) error
	Clear(ctx context.Context) error
}

// API is the slice of the upstream client the resolver needs.
type API interface {
	Roles(ctx context.Context, token string) ([]backoffice.RoleEntry, error)
}

// Resolver fetches and caches the role catalog.
type Resolver struct {
	api   API
	store CatalogStore
	log   *slog.Logger
}

// NewResolver wires the resolver to an upstream client and a cache.
func NewResolver(api API, store CatalogStore, log *slog.Logger) *Resolver {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = obs.Discard()
	}
	return &Resolver{api: api, store: store, log: log}
}

// Fetch pulls the catalog from the upstream and replaces the cache.
// On failure the previous cache is left untouched and an empty catalog is
// returned for this call only. Callers must hold an authenticated session;
// the token is the session's bearer token.
func (r *Resolver) Fetch(ctx context.Context, token string) Catalog {
	entries, err := r.api.Roles(ctx, token)
	if err != nil {
		obs.CatalogFetches.WithLabelValues("error").Inc()
		r.log.ErrorContext(ctx, "role catalog fetch failed", "err", err)
		return Catalog{}
	}
	catalog := normalize(entries)
	if err := r.store.Set(ctx, catalog); err != nil {
		r.log.WarnContext(ctx, "role catalog cache write failed", "err", err)
	}
	obs.CatalogFetches.WithLabelValues("ok").Inc()
	return catalog
}

// Ensure answers from the cache, hitting the upstream only on a miss.
// Together with Clear on logout this bounds catalog traffic to one fetch
// per session lifetime, regardless of how many requests consult it.
func (r *Resolver) Ensure(ctx context.Context, token string) Catalog {
	catalog, ok, err := r.store.Get(ctx)
	if err != nil {
		r.log.WarnContext(ctx, "role catalog cache read failed", "err", err)
	}
	if ok {
		obs.CatalogFetches.WithLabelValues("cached").Inc()
		return catalog
	}
	return r.Fetch(ctx, token)
}

// Permissions resolves roleKey against the cached catalog.
func (r *Resolver) Permissions(ctx context.Context, roleKey string) []string {
	catalog, ok, err := r.store.Get(ctx)
	if err != nil {
		r.log.WarnContext(ctx, "role catalog cache read failed", "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	return catalog.Permissions(roleKey)
}

// Clear drops the cached catalog; called on logout so the next login
// resolves permissions freshly.
func (r *Resolver) Clear(ctx context.Context) {
	if err := r.store.Clear(ctx); err != nil {
		r.log.WarnContext(ctx, "role catalog cache clear failed", "err", err)
	}
}

// normalize deduplicates permission lists while keeping their order.
func normalize(entries []backoffice.RoleEntry) Catalog {
	catalog := make(Catalog, 0, len(entries))
	for _, entry := range entries {
		seen := make(map[string]struct{}, len(entry.Permissions))
		perms := make([]string, 0, len(entry.Permissions))
		for _, p := range entry.Permissions {
			if _, dup := seen[p]; dup || p == "" {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
		entry.Permissions = perms
		catalog = append(catalog, entry)
	}
	return catalog
}
