package hierarchy

import (
	"fmt"
	"sort"
	"strings"
)

// Vocabulary supplies the known envs, tenants, and per-tenant systems used to
// disambiguate legacy flat names. Tenants and systems may themselves contain
// underscores (codex_portal), so a flat name like
// PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET cannot be split positionally.
type Vocabulary interface {
	Envs() []string
	Tenants() []string
	Systems(tenant string) []string
}

// ParseFlat parses a legacy flat secret name (ENV_TENANT_SYSTEM_NAME in upper
// snake case, optionally preceded by the hierarchy prefix) into a Path under
// the given prefix. Matching is greedy: the longest known tenant, then the
// longest known system for that tenant. Whatever remains is the base name.
func ParseFlat(flat, prefix string, vocab Vocabulary) (Path, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = Sanitize(prefix)

	tokens := strings.Split(strings.ToLower(flat), "_")
	if len(tokens) < 4 {
		return Path{}, fmt.Errorf("flat name %q has too few segments", flat)
	}

	// Some legacy names carry the namespace prefix as their first token.
	if tokens[0] == prefix {
		tokens = tokens[1:]
	}

	env := tokens[0]
	if !containsFold(vocab.Envs(), env) {
		return Path{}, fmt.Errorf("flat name %q: unknown environment %q", flat, env)
	}
	rest := tokens[1:]

	tenant, rest, err := consumeLongest(rest, vocab.Tenants())
	if err != nil {
		return Path{}, fmt.Errorf("flat name %q: no known tenant matches: %w", flat, err)
	}

	system, rest, err := consumeLongest(rest, vocab.Systems(tenant))
	if err != nil {
		return Path{}, fmt.Errorf("flat name %q: no known system for tenant %q: %w", flat, tenant, err)
	}

	if len(rest) == 0 {
		return Path{}, fmt.Errorf("flat name %q has no base name after %s/%s", flat, tenant, system)
	}

	return New(prefix, env, tenant, system, strings.Join(rest, "_")), nil
}

// consumeLongest finds the candidate (itself underscore-separated) that
// matches the longest run of leading tokens, and returns it with the
// remaining tokens.
func consumeLongest(tokens []string, candidates []string) (string, []string, error) {
	sanitized := make([]string, 0, len(candidates))
	for _, c := range candidates {
		sanitized = append(sanitized, Sanitize(c))
	}
	// Longest candidates first so codex_portal wins over codex.
	sort.Slice(sanitized, func(i, j int) bool {
		return len(sanitized[i]) > len(sanitized[j])
	})

	joined := strings.Join(tokens, "_")
	for _, c := range sanitized {
		if joined == c {
			return c, nil, nil
		}
		if strings.HasPrefix(joined, c+"_") {
			consumed := strings.Count(c, "_") + 1
			return c, tokens[consumed:], nil
		}
	}
	return "", nil, fmt.Errorf("none of %d candidates match %q", len(candidates), joined)
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if Sanitize(h) == needle {
			return true
		}
	}
	return false
}
