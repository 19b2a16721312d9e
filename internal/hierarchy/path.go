// Package hierarchy implements the secret naming contract: sanitization of
// name components, the canonical prefix/env/tenant/system/name secret ID,
// the environment variable mapping, and parsing of legacy flat names.
package hierarchy

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPrefix is the top-level namespace for all platform secrets.
const DefaultPrefix = "maos"

// Separator joins hierarchy levels in a canonical secret ID.
const Separator = "/"

var invalidRunes = regexp.MustCompile(`[^a-z0-9_-]`)

// Sanitize normalizes a single hierarchy component: lowercased, spaces become
// underscores, and anything outside [a-z0-9_-] becomes an underscore.
func Sanitize(component string) string {
	c := strings.ToLower(component)
	c = strings.ReplaceAll(c, " ", "_")
	return invalidRunes.ReplaceAllString(c, "_")
}

// Path identifies a secret within the hierarchy. All fields are stored in
// sanitized form.
type Path struct {
	Prefix string
	Env    string
	Tenant string
	System string
	Name   string
}

// New builds a Path, sanitizing every component. An empty prefix falls back
// to DefaultPrefix.
func New(prefix, env, tenant, system, name string) Path {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Path{
		Prefix: Sanitize(prefix),
		Env:    Sanitize(env),
		Tenant: Sanitize(tenant),
		System: Sanitize(system),
		Name:   Sanitize(name),
	}
}

// Validate reports an error if any component is empty after sanitization.
func (p Path) Validate() error {
	for _, c := range []struct {
		field, value string
	}{
		{"prefix", p.Prefix},
		{"env", p.Env},
		{"tenant", p.Tenant},
		{"system", p.System},
		{"name", p.Name},
	} {
		if c.value == "" {
			return fmt.Errorf("hierarchy path has empty %s component", c.field)
		}
	}
	return nil
}

// ID returns the canonical slash-separated secret ID, e.g.
// maos/prod/activ8ai/codex_portal/jwt_secret.
func (p Path) ID() string {
	return strings.Join([]string{p.Prefix, p.Env, p.Tenant, p.System, p.Name}, Separator)
}

// String returns the canonical ID.
func (p Path) String() string {
	return p.ID()
}

// SystemPrefix returns the listing prefix for all secrets of one system,
// including the trailing separator: maos/prod/activ8ai/slack/.
func (p Path) SystemPrefix() string {
	return strings.Join([]string{p.Prefix, p.Env, p.Tenant, p.System}, Separator) + Separator
}

// TenantPrefix returns the listing prefix for all secrets of one tenant.
func (p Path) TenantPrefix() string {
	return strings.Join([]string{p.Prefix, p.Env, p.Tenant}, Separator) + Separator
}

// EnvVar returns the environment variable name a secret is exported under:
// separators and hyphens become underscores and the whole ID is uppercased.
// maos/prod/activ8ai/codex_portal/jwt_secret -> MAOS_PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET.
func (p Path) EnvVar() string {
	v := strings.ReplaceAll(p.ID(), Separator, "_")
	v = strings.ReplaceAll(v, "-", "_")
	return strings.ToUpper(v)
}

// EnvVarForID maps a raw canonical ID to its environment variable name.
func EnvVarForID(id string) string {
	v := strings.ReplaceAll(id, Separator, "_")
	v = strings.ReplaceAll(v, "-", "_")
	return strings.ToUpper(v)
}

// Parse splits a canonical ID back into its components. The ID must have
// exactly five non-empty segments.
func Parse(id string) (Path, error) {
	segments := strings.Split(id, Separator)
	if len(segments) != 5 {
		return Path{}, fmt.Errorf("invalid secret ID %q: expected 5 segments, got %d", id, len(segments))
	}
	p := Path{
		Prefix: segments[0],
		Env:    segments[1],
		Tenant: segments[2],
		System: segments[3],
		Name:   segments[4],
	}
	if err := p.Validate(); err != nil {
		return Path{}, fmt.Errorf("invalid secret ID %q: %w", id, err)
	}
	return p, nil
}

// IsHierarchical reports whether id already follows the canonical scheme
// under the given prefix.
func IsHierarchical(id, prefix string) bool {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	p, err := Parse(id)
	return err == nil && p.Prefix == Sanitize(prefix)
}
