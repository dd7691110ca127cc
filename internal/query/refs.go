package query

import "regexp"

// identPattern matches identifier-shaped tokens. Reference extraction is a
// deliberate over-approximation: a saved-query name appearing inside a
// string literal or comment still counts as a reference. The harmless
// failure mode is resolving a table nobody reads.
var identPattern = regexp.MustCompile(`[A-Za-z_]\w*`)

// Identifiers returns the set of identifier tokens in a script body.
func Identifiers(script string) map[string]struct{} {
	tokens := identPattern.FindAllString(script, -1)
	out := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		out[tok] = struct{}{}
	}
	return out
}

// References returns the saved queries whose names appear as identifier
// tokens in the script, in registry order. Each query is reported once
// even when its name occurs multiple times.
func (r *Registry) References(script string) []SavedQuery {
	idents := Identifiers(script)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var refs []SavedQuery
	seen := make(map[string]struct{})
	for _, q := range r.queries {
		if _, ok := idents[q.Name]; !ok {
			continue
		}
		if _, dup := seen[q.Name]; dup {
			continue
		}
		seen[q.Name] = struct{}{}
		refs = append(refs, q)
	}
	return refs
}
