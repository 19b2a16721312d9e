// Package roster loads the tenant/system registry that scopes every secret
// in the hierarchy: which environments exist, which tenants are onboarded,
// which systems each tenant uses, and how request hosts map to a tenant
// surface. The roster is the single source used to disambiguate legacy flat
// secret names during migration.
package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
	"github.com/Activ8-AI/maosec/internal/hierarchy"
)

// Roster is the parsed registry file.
type Roster struct {
	Version int               `yaml:"version" json:"version"`
	Envs    []string          `yaml:"envs" json:"envs"`
	Tenants map[string]Tenant `yaml:"tenants" json:"tenants"`
}

// Tenant describes one onboarded tenant: its systems and its surfaces.
type Tenant struct {
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Systems     []string           `yaml:"systems" json:"systems"`
	Surfaces    map[string]Surface `yaml:"surfaces,omitempty" json:"surfaces,omitempty"`
	Owner       string             `yaml:"owner,omitempty" json:"owner,omitempty"`
}

// Surface is an externally reachable application for a tenant. Its Systems
// list selects which credential namespaces the surface loads at runtime.
type Surface struct {
	Host    string   `yaml:"host" json:"host"`
	Systems []string `yaml:"systems" json:"systems"`
}

// TenantSurface is the result of resolving a request host.
type TenantSurface struct {
	Tenant  string
	Surface string
}

// Load reads, parses, and schema-validates a roster file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, maoserrors.ConfigError{
				Field:      "roster",
				Value:      path,
				Message:    "roster file not found",
				Suggestion: "Create the roster file or point the 'roster' config field at it",
			}
		}
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, maoserrors.ConfigError{
			Field:      "roster",
			Value:      path,
			Message:    "invalid YAML syntax in roster file",
			Suggestion: "Check for indentation errors or missing quotes",
		}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// envVarFold collapses a component the way env var derivation does: sanitize,
// then fold `-` into `_`. Two components with equal folds would produce
// colliding environment variable names despite having distinct secret IDs.
func envVarFold(component string) string {
	return strings.ReplaceAll(hierarchy.Sanitize(component), "-", "_")
}

// Validate checks the roster against the embedded JSON Schema plus the
// referential rules the schema cannot express: surface systems must be a
// subset of the tenant's systems, and no two envs, tenants, or systems of
// one tenant may collide once folded into env var form.
func (r *Roster) Validate() error {
	jsonData, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal roster for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(Schema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("roster schema validation error: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return maoserrors.ConfigError{
			Field:      "roster",
			Message:    "roster failed schema validation:\n  - " + strings.Join(msgs, "\n  - "),
			Suggestion: "Fix the listed fields and run 'maosec roster validate'",
		}
	}

	envFolds := make(map[string]string, len(r.Envs))
	for _, e := range r.Envs {
		if prev, dup := envFolds[envVarFold(e)]; dup {
			return maoserrors.ConfigError{
				Field:      "envs",
				Value:      e,
				Message:    fmt.Sprintf("environment collides with %q in environment variable names", prev),
				Suggestion: "Rename one of them; '-' and '_' fold together in variable names",
			}
		}
		envFolds[envVarFold(e)] = e
	}

	tenantFolds := make(map[string]string, len(r.Tenants))
	for tenantName := range r.Tenants {
		if prev, dup := tenantFolds[envVarFold(tenantName)]; dup {
			return maoserrors.ConfigError{
				Field:      "tenants",
				Value:      tenantName,
				Message:    fmt.Sprintf("tenant collides with %q in environment variable names", prev),
				Suggestion: "Rename one of them; '-' and '_' fold together in variable names",
			}
		}
		tenantFolds[envVarFold(tenantName)] = tenantName
	}

	for tenantName, tenant := range r.Tenants {
		known := make(map[string]bool, len(tenant.Systems))
		systemFolds := make(map[string]string, len(tenant.Systems))
		for _, s := range tenant.Systems {
			if prev, dup := systemFolds[envVarFold(s)]; dup {
				return maoserrors.ConfigError{
					Field:      fmt.Sprintf("tenants.%s.systems", tenantName),
					Value:      s,
					Message:    fmt.Sprintf("system collides with %q in environment variable names", prev),
					Suggestion: "Rename one of them; '-' and '_' fold together in variable names",
				}
			}
			systemFolds[envVarFold(s)] = s
			known[hierarchy.Sanitize(s)] = true
		}
		for surfaceName, surface := range tenant.Surfaces {
			for _, s := range surface.Systems {
				if !known[hierarchy.Sanitize(s)] {
					return maoserrors.ConfigError{
						Field:   fmt.Sprintf("tenants.%s.surfaces.%s", tenantName, surfaceName),
						Value:   s,
						Message: "surface references a system the tenant does not declare",
						Suggestion: fmt.Sprintf(
							"Add '%s' to tenants.%s.systems or remove it from the surface", s, tenantName),
					}
				}
			}
		}
	}

	return nil
}

// KnownEnvs returns the declared environment names, sanitized.
func (r *Roster) KnownEnvs() []string {
	out := make([]string, 0, len(r.Envs))
	for _, e := range r.Envs {
		out = append(out, hierarchy.Sanitize(e))
	}
	return out
}

// KnownTenants returns the tenant names in sorted order.
func (r *Roster) KnownTenants() []string {
	out := make([]string, 0, len(r.Tenants))
	for name := range r.Tenants {
		out = append(out, hierarchy.Sanitize(name))
	}
	sort.Strings(out)
	return out
}

// SystemsFor returns the declared systems for a tenant, sanitized.
func (r *Roster) SystemsFor(tenant string) []string {
	for name, t := range r.Tenants {
		if hierarchy.Sanitize(name) == hierarchy.Sanitize(tenant) {
			out := make([]string, 0, len(t.Systems))
			for _, s := range t.Systems {
				out = append(out, hierarchy.Sanitize(s))
			}
			return out
		}
	}
	return nil
}

// HasEnv reports whether env is declared in the roster.
func (r *Roster) HasEnv(env string) bool {
	s := hierarchy.Sanitize(env)
	for _, e := range r.KnownEnvs() {
		if e == s {
			return true
		}
	}
	return false
}

// Vocabulary adapts the roster to hierarchy.ParseFlat.
func (r *Roster) Vocabulary() hierarchy.Vocabulary {
	return rosterVocab{r}
}

type rosterVocab struct{ r *Roster }

func (v rosterVocab) Envs() []string                 { return v.r.KnownEnvs() }
func (v rosterVocab) Tenants() []string              { return v.r.KnownTenants() }
func (v rosterVocab) Systems(tenant string) []string { return v.r.SystemsFor(tenant) }

var hostParts = regexp.MustCompile(`^([^.]+)\.([^.]+)\.([^.]+)$`)

// LookupHost resolves a request host to its tenant and surface. Exact surface
// hosts win; otherwise a sub.domain.tld host falls back to tenant=domain,
// surface=sub when the domain matches a known tenant.
func (r *Roster) LookupHost(host string) (TenantSurface, error) {
	host = strings.ToLower(strings.TrimSpace(host))

	for tenantName, tenant := range r.Tenants {
		for surfaceName, surface := range tenant.Surfaces {
			if strings.ToLower(surface.Host) == host {
				return TenantSurface{
					Tenant:  hierarchy.Sanitize(tenantName),
					Surface: hierarchy.Sanitize(surfaceName),
				}, nil
			}
		}
	}

	if m := hostParts.FindStringSubmatch(host); m != nil {
		sub, domain := m[1], m[2]
		for tenantName := range r.Tenants {
			if hierarchy.Sanitize(tenantName) == hierarchy.Sanitize(domain) {
				return TenantSurface{
					Tenant:  hierarchy.Sanitize(domain),
					Surface: hierarchy.Sanitize(sub),
				}, nil
			}
		}
	}

	return TenantSurface{}, maoserrors.UserError{
		Message:    fmt.Sprintf("no tenant surface registered for host %q", host),
		Suggestion: "Add the host to a surface in the roster file",
	}
}

// SurfaceSystems returns the systems a resolved surface loads. When the
// surface is not declared, it falls back to every system of the tenant.
func (r *Roster) SurfaceSystems(ts TenantSurface) []string {
	for tenantName, tenant := range r.Tenants {
		if hierarchy.Sanitize(tenantName) != ts.Tenant {
			continue
		}
		for surfaceName, surface := range tenant.Surfaces {
			if hierarchy.Sanitize(surfaceName) == ts.Surface {
				out := make([]string, 0, len(surface.Systems))
				for _, s := range surface.Systems {
					out = append(out, hierarchy.Sanitize(s))
				}
				return out
			}
		}
		return r.SystemsFor(tenantName)
	}
	return nil
}
