// Package loader resolves the environment variables a running surface needs
// from the hierarchical store. A request host is mapped through the roster to
// its tenant and surface, and every secret under the surface's systems is
// fetched and exposed under its canonical variable name.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/Activ8-AI/maosec/internal/hierarchy"
	"github.com/Activ8-AI/maosec/internal/logging"
	"github.com/Activ8-AI/maosec/internal/roster"
	"github.com/Activ8-AI/maosec/internal/store"
)

// Loader fetches and caches per-surface secret sets.
type Loader struct {
	logger *logging.Logger
	store  store.Store
	roster *roster.Roster
	prefix string

	mu    sync.Mutex
	cache map[string]map[string]string
}

// New creates a Loader.
func New(logger *logging.Logger, st store.Store, r *roster.Roster, prefix string) *Loader {
	return &Loader{
		logger: logger,
		store:  st,
		roster: r,
		prefix: prefix,
		cache:  make(map[string]map[string]string),
	}
}

// ForHost returns the environment variables for the surface serving host in
// the given environment. Results are cached until Invalidate; secrets rotate
// through sync, not through loader restarts.
func (l *Loader) ForHost(ctx context.Context, host, env string) (map[string]string, error) {
	key := hierarchy.Sanitize(env) + "|" + host

	l.mu.Lock()
	if cached, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return copyEnv(cached), nil
	}
	l.mu.Unlock()

	ts, err := l.roster.LookupHost(host)
	if err != nil {
		return nil, err
	}
	systems := l.roster.SurfaceSystems(ts)
	if len(systems) == 0 {
		return nil, fmt.Errorf("surface %s/%s has no systems to load", ts.Tenant, ts.Surface)
	}

	vars := make(map[string]string)
	for _, system := range systems {
		if err := l.loadSystem(ctx, env, ts.Tenant, system, vars); err != nil {
			return nil, err
		}
	}
	l.logger.Debug("loaded %d secrets for %s (%s)", len(vars), host, env)

	l.mu.Lock()
	l.cache[key] = vars
	l.mu.Unlock()
	return copyEnv(vars), nil
}

// ForSystem returns the environment variables for one tenant system,
// uncached. Used by render and exec, which run once per invocation.
func (l *Loader) ForSystem(ctx context.Context, tenant, system, env string) (map[string]string, error) {
	vars := make(map[string]string)
	if err := l.loadSystem(ctx, env, tenant, system, vars); err != nil {
		return nil, err
	}
	return vars, nil
}

func (l *Loader) loadSystem(ctx context.Context, env, tenant, system string, vars map[string]string) error {
	path := hierarchy.New(l.prefix, env, tenant, system, "")
	ids, err := l.store.List(ctx, path.SystemPrefix())
	if err != nil {
		return fmt.Errorf("list secrets for %s/%s: %w", tenant, system, err)
	}
	for _, id := range ids {
		value, err := l.store.Get(ctx, id, "")
		if err != nil {
			return fmt.Errorf("fetch %s: %w", id, err)
		}
		vars[hierarchy.EnvVarForID(id)] = string(value.Data)
	}
	return nil
}

// Invalidate drops every cached surface set.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]map[string]string)
}

func copyEnv(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
